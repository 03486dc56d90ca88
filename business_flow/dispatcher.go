package businessflow

import (
	"context"
	"time"

	"github.com/kairan-app/kairan/app/services"
	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/repository"
	"github.com/kairan-app/kairan/utils"
)

// Sleeper abstracts delay between retry attempts so tests run without
// real waiting
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// RealSleeper sleeps on the wall clock, honoring context cancellation
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// NoopSleeper skips delays entirely; used in tests
type NoopSleeper struct{}

func (NoopSleeper) Sleep(ctx context.Context, d time.Duration) {}

// RetryPolicy bounds delivery attempts per recipient. Backoff receives the
// 1-based attempt number that just failed and returns how long to wait
// before the next attempt.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultRetryPolicy retries a small fixed number of times with linear backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: utils.DeliveryMaxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * utils.DeliveryBackoffBase
		},
	}
}

// DeliveryResult is the terminal outcome of one recipient's dispatch
type DeliveryResult struct {
	Recipient  *models.Member
	Delivered  bool
	ProviderID string
	Err        error
	Elapsed    time.Duration
}

// Dispatcher delivers one rendered message to one recipient with bounded
// retries and records the outcome as a DeliveryLog row. It never escalates
// a recipient's failure; the caller reads the result for accounting.
type Dispatcher struct {
	gateway         services.SMSGatewayService
	deliveryLogRepo repository.DeliveryLogRepository
	policy          RetryPolicy
	sleeper         Sleeper
}

// NewDispatcher creates a new delivery dispatcher
func NewDispatcher(
	gateway services.SMSGatewayService,
	deliveryLogRepo repository.DeliveryLogRepository,
	policy RetryPolicy,
	sleeper Sleeper,
) *Dispatcher {
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	return &Dispatcher{
		gateway:         gateway,
		deliveryLogRepo: deliveryLogRepo,
		policy:          policy,
		sleeper:         sleeper,
	}
}

// Dispatch attempts delivery to a single recipient. Exactly one DeliveryLog
// row is written per call, whatever the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, messageID uint, recipient *models.Member, body string) DeliveryResult {
	start := utils.UTCNow()
	result := DeliveryResult{Recipient: recipient}

	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		providerID, err := d.gateway.Send(ctx, recipient.Phone, body)
		if err == nil {
			result.Delivered = true
			result.ProviderID = providerID
			break
		}
		result.Err = err
		if attempt < d.policy.MaxAttempts && d.policy.Backoff != nil {
			d.sleeper.Sleep(ctx, d.policy.Backoff(attempt))
		}
	}
	result.Elapsed = utils.UTCNow().Sub(start)

	log := &models.DeliveryLog{
		MessageID:   messageID,
		RecipientID: recipient.ID,
		Method:      "sms",
		ElapsedMS:   result.Elapsed.Milliseconds(),
		CreatedAt:   utils.UTCNow(),
	}
	if result.Delivered {
		log.Status = models.DeliveryOutcomeDelivered
		if result.ProviderID != "" {
			log.ProviderID = utils.ToPtr(result.ProviderID)
		}
	} else {
		log.Status = models.DeliveryOutcomeFailed
		if result.Err != nil {
			log.Error = utils.ToPtr(result.Err.Error())
		}
	}
	if err := d.deliveryLogRepo.Save(ctx, log); err != nil && result.Err == nil {
		result.Err = err
	}
	return result
}
