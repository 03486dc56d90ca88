// Package testing provides test utilities and database setup for testing the relay engine
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestMember creates an active member with a random phone number
func (tf *TestFixtures) CreateTestMember(name string, isAdmin bool) (*models.Member, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	member := &models.Member{
		UUID:     uuid.New(),
		Phone:    fmt.Sprintf("+1555%s", randomDigits[:7]),
		Name:     name,
		IsAdmin:  isAdmin,
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(member).Error; err != nil {
		return nil, fmt.Errorf("failed to create test member: %w", err)
	}
	return member, nil
}

// CreateTestBroadcast creates a completed broadcast sent by the given member
func (tf *TestFixtures) CreateTestBroadcast(sender *models.Member, text string, createdAt time.Time) (*models.BroadcastMessage, error) {
	msg := &models.BroadcastMessage{
		UUID:             uuid.New(),
		SenderID:         &sender.ID,
		SenderName:       sender.Name,
		OriginalText:     text,
		RenderedText:     fmt.Sprintf("%s: %s", sender.Name, text),
		ProcessingStatus: models.ProcessingStatusCompleted,
		DeliveryStatus:   models.DeliveryStatusCompleted,
		CreatedAt:        createdAt,
	}

	if err := tf.DB.DB.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create test broadcast: %w", err)
	}
	return msg, nil
}

// CreateTestReaction creates an unprocessed reaction from the given member
func (tf *TestFixtures) CreateTestReaction(msg *models.BroadcastMessage, reactor *models.Member, reactionType models.ReactionType) (*models.MessageReaction, error) {
	reaction := &models.MessageReaction{
		MessageID:        msg.ID,
		MessageHash:      fmt.Sprintf("%064d", msg.ID),
		ReactorPhone:     reactor.Phone,
		ReactorName:      reactor.Name,
		ReactionType:     reactionType,
		Emoji:            reactionType.Glyph(),
		RawText:          fmt.Sprintf("%s to \"%s\"", reactionType.Glyph(), msg.OriginalText),
		ResolutionMethod: models.ResolutionMethodExact,
		Confidence:       1.0,
	}

	if err := tf.DB.DB.Create(reaction).Error; err != nil {
		return nil, fmt.Errorf("failed to create test reaction: %w", err)
	}
	return reaction, nil
}

// CreateTestDeliveryLog creates a delivery log row for the given broadcast and recipient
func (tf *TestFixtures) CreateTestDeliveryLog(msg *models.BroadcastMessage, recipient *models.Member, status models.DeliveryOutcome) (*models.DeliveryLog, error) {
	entry := &models.DeliveryLog{
		MessageID:   msg.ID,
		RecipientID: recipient.ID,
		Method:      "sms",
		Status:      status,
	}
	if status == models.DeliveryOutcomeDelivered {
		entry.ProviderID = utils.ToPtr(fmt.Sprintf("prov-%d", rand.Intn(100000)))
	} else {
		entry.Error = utils.ToPtr("gateway rejected")
	}

	if err := tf.DB.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create test delivery log: %w", err)
	}
	return entry, nil
}
