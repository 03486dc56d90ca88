package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kairan-app/kairan/app/dto"
	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/repository"
	"github.com/kairan-app/kairan/utils"
)

// BroadcastStats summarizes one completed fan-out
type BroadcastStats struct {
	MessageID  uint
	Recipients int
	Sent       int
	Failed     int
	Elapsed    time.Duration
}

// BroadcastFlow relays one member's message to every other active member
// and records per-recipient delivery outcomes
type BroadcastFlow interface {
	Broadcast(ctx context.Context, sender *models.Member, body string, attachments []dto.InboundAttachment, metadata *ClientMetadata) (string, error)
	BroadcastSystem(ctx context.Context, body string) (*BroadcastStats, error)
}

// BroadcastFlowImpl implements BroadcastFlow
type BroadcastFlowImpl struct {
	memberRepo  repository.MemberRepository
	messageRepo repository.BroadcastMessageRepository
	dispatcher  *Dispatcher
	mediaFlow   MediaFlow
	logger      *log.Logger
}

// NewBroadcastFlow creates a new broadcast flow
func NewBroadcastFlow(
	memberRepo repository.MemberRepository,
	messageRepo repository.BroadcastMessageRepository,
	dispatcher *Dispatcher,
	mediaFlow MediaFlow,
	logger *log.Logger,
) BroadcastFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &BroadcastFlowImpl{
		memberRepo:  memberRepo,
		messageRepo: messageRepo,
		dispatcher:  dispatcher,
		mediaFlow:   mediaFlow,
		logger:      logger,
	}
}

// Broadcast relays a member's message to all other active members. Admin
// senders get a confirmation string; regular senders get an empty reply so
// the group never sees an echo.
func (f *BroadcastFlowImpl) Broadcast(ctx context.Context, sender *models.Member, body string, attachments []dto.InboundAttachment, metadata *ClientMetadata) (string, error) {
	if sender == nil {
		return "", ErrSenderNotRecognized
	}
	if !utils.IsTrue(sender.IsActive) {
		return "", ErrMemberInactive
	}
	if strings.TrimSpace(body) == "" && len(attachments) == 0 {
		return "", ErrEmptyBroadcastBody
	}

	recipients, err := f.resolveRecipients(ctx, sender)
	if err != nil {
		return "", err
	}
	if len(recipients) == 0 {
		return "", ErrNoActiveRecipients
	}

	message := &models.BroadcastMessage{
		SenderID:         utils.ToPtr(sender.ID),
		SenderName:       displayName(sender),
		OriginalText:     strings.TrimSpace(body),
		ProcessingStatus: models.ProcessingStatusProcessing,
		DeliveryStatus:   models.DeliveryStatusPending,
		MediaCount:       len(attachments),
	}
	if err := f.messageRepo.Save(ctx, message); err != nil {
		return "", NewBusinessError("BROADCAST_PERSIST_FAILED", "failed to persist broadcast", err)
	}

	var rehosted []*RehostedMedia
	if len(attachments) > 0 && f.mediaFlow != nil {
		var mediaErrs []error
		rehosted, mediaErrs = f.mediaFlow.RehostAll(ctx, attachments)
		for _, e := range mediaErrs {
			f.logger.Printf("broadcast %d: media rehost failed: %v", message.ID, e)
		}
	}

	rendered := renderBroadcast(displayName(sender), message.OriginalText, rehosted)
	message.RenderedText = rendered
	message.ProcessingStatus = models.ProcessingStatusCompleted
	if err := f.messageRepo.Update(ctx, message); err != nil {
		return "", NewBusinessError("BROADCAST_UPDATE_FAILED", "failed to update broadcast", err)
	}

	stats := f.fanOut(ctx, message, recipients, rendered)

	message.DeliveryStatus = models.DeliveryStatusCompleted
	if err := f.messageRepo.Update(ctx, message); err != nil {
		f.logger.Printf("broadcast %d: failed to finalize delivery status: %v", message.ID, err)
	}

	if err := f.memberRepo.RecordActivity(ctx, sender.ID, utils.UTCNow()); err != nil {
		f.logger.Printf("broadcast %d: failed to record sender activity: %v", message.ID, err)
	}

	role := "member"
	if sender.IsAdmin {
		role = "admin"
	}
	broadcastsTotal.WithLabelValues(role).Inc()

	f.logger.Printf("broadcast %d: sent=%d failed=%d recipients=%d elapsed=%s",
		message.ID, stats.Sent, stats.Failed, stats.Recipients, stats.Elapsed)

	if sender.IsAdmin {
		return fmt.Sprintf("Broadcast sent to %d members (%d failed) in %s.",
			stats.Sent, stats.Failed, stats.Elapsed.Round(time.Millisecond)), nil
	}
	return "", nil
}

// BroadcastSystem delivers a system-originated message (digests, notices)
// to every active member. There is no sender to exclude or confirm to.
func (f *BroadcastFlowImpl) BroadcastSystem(ctx context.Context, body string) (*BroadcastStats, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBroadcastBody
	}
	recipients, err := f.memberRepo.ListActive(ctx)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LOOKUP_FAILED", "failed to resolve recipients", err)
	}
	if len(recipients) == 0 {
		return nil, ErrNoActiveRecipients
	}

	message := &models.BroadcastMessage{
		SenderName:       "Kairan",
		OriginalText:     strings.TrimSpace(body),
		RenderedText:     strings.TrimSpace(body),
		ProcessingStatus: models.ProcessingStatusCompleted,
		DeliveryStatus:   models.DeliveryStatusPending,
	}
	if err := f.messageRepo.Save(ctx, message); err != nil {
		return nil, NewBusinessError("BROADCAST_PERSIST_FAILED", "failed to persist broadcast", err)
	}

	stats := f.fanOut(ctx, message, recipients, message.RenderedText)

	message.DeliveryStatus = models.DeliveryStatusCompleted
	if err := f.messageRepo.Update(ctx, message); err != nil {
		f.logger.Printf("broadcast %d: failed to finalize delivery status: %v", message.ID, err)
	}
	broadcastsTotal.WithLabelValues("system").Inc()
	return &stats, nil
}

// resolveRecipients returns all active members except the sender
func (f *BroadcastFlowImpl) resolveRecipients(ctx context.Context, sender *models.Member) ([]*models.Member, error) {
	active, err := f.memberRepo.ListActive(ctx)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LOOKUP_FAILED", "failed to resolve recipients", err)
	}
	recipients := make([]*models.Member, 0, len(active))
	for _, m := range active {
		if m.ID == sender.ID {
			continue
		}
		recipients = append(recipients, m)
	}
	return recipients, nil
}

// fanOut dispatches to every recipient concurrently and waits for all to
// settle. One recipient's permanent failure never blocks or cancels the
// others; the stats report counts instead.
func (f *BroadcastFlowImpl) fanOut(ctx context.Context, message *models.BroadcastMessage, recipients []*models.Member, rendered string) BroadcastStats {
	start := utils.UTCNow()
	results := make([]DeliveryResult, len(recipients))

	var wg sync.WaitGroup
	for i, recipient := range recipients {
		wg.Add(1)
		go func(i int, recipient *models.Member) {
			defer wg.Done()
			results[i] = f.dispatcher.Dispatch(ctx, message.ID, recipient, rendered)
		}(i, recipient)
	}
	wg.Wait()

	stats := BroadcastStats{
		MessageID:  message.ID,
		Recipients: len(recipients),
		Elapsed:    utils.UTCNow().Sub(start),
	}
	for _, r := range results {
		if r.Delivered {
			stats.Sent++
			deliveriesTotal.WithLabelValues("delivered").Inc()
		} else {
			stats.Failed++
			deliveriesTotal.WithLabelValues("failed").Inc()
		}
	}
	broadcastDuration.Observe(stats.Elapsed.Seconds())
	return stats
}

// renderBroadcast builds the outbound text: sender name, body, media links.
// When the body is absent the rendered message carries only the links.
func renderBroadcast(senderName, body string, media []*RehostedMedia) string {
	var parts []string
	if body != "" {
		parts = append(parts, fmt.Sprintf("%s: %s", senderName, body))
	} else if len(media) > 0 {
		parts = append(parts, fmt.Sprintf("%s sent media:", senderName))
	}
	for _, m := range media {
		parts = append(parts, m.PublicURL)
	}
	return strings.Join(parts, "\n")
}
