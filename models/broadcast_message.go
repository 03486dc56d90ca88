package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessingStatus represents the media/render pipeline state of a broadcast
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// String returns the string representation of the status
func (s ProcessingStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ProcessingStatus) Valid() bool {
	switch s {
	case ProcessingStatusPending, ProcessingStatusProcessing,
		ProcessingStatusCompleted, ProcessingStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ProcessingStatus
func (s *ProcessingStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = ProcessingStatus(v)
	case []byte:
		*s = ProcessingStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ProcessingStatus", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for ProcessingStatus
func (s ProcessingStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ProcessingStatus: %s", s)
	}
	return string(s), nil
}

// DeliveryStatus represents the fan-out state of a broadcast
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusCompleted DeliveryStatus = "completed"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// String returns the string representation of the status
func (s DeliveryStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusCompleted, DeliveryStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DeliveryStatus
func (s *DeliveryStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = DeliveryStatus(v)
	case []byte:
		*s = DeliveryStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliveryStatus", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for DeliveryStatus
func (s DeliveryStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DeliveryStatus: %s", s)
	}
	return string(s), nil
}

// BroadcastMessage records one inbound message that was fanned out to the group.
// SenderID, SenderName, and OriginalText are immutable after creation;
// RenderedText and the two statuses are updated as processing and delivery
// complete.
type BroadcastMessage struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_broadcast_messages_uuid" json:"uuid"`
	SenderID         *uint            `gorm:"index:idx_broadcast_messages_sender_id" json:"sender_id,omitempty"`
	SenderName       string           `gorm:"size:100;not null" json:"sender_name"`
	OriginalText     string           `gorm:"type:text;not null" json:"original_text"`
	RenderedText     string           `gorm:"type:text" json:"rendered_text"`
	MediaCount       int              `gorm:"not null;default:0" json:"media_count"`
	ProcessingStatus ProcessingStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_broadcast_messages_processing_status" json:"processing_status"`
	DeliveryStatus   DeliveryStatus   `gorm:"type:varchar(20);not null;default:'pending';index:idx_broadcast_messages_delivery_status" json:"delivery_status"`
	CreatedAt        time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_broadcast_messages_created_at" json:"created_at"`
	UpdatedAt        *time.Time       `json:"updated_at,omitempty"`

	// Relations
	Sender *Member `gorm:"foreignKey:SenderID;references:ID" json:"sender,omitempty"`
}

// TableName returns the table name for the model
func (BroadcastMessage) TableName() string {
	return "broadcast_messages"
}

// BeforeCreate is called before creating a new record
func (m *BroadcastMessage) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.ProcessingStatus == "" {
		m.ProcessingStatus = ProcessingStatusPending
	}
	if m.DeliveryStatus == "" {
		m.DeliveryStatus = DeliveryStatusPending
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BroadcastMessageFilter represents filter criteria for broadcast messages
type BroadcastMessageFilter struct {
	ID               *uint             `json:"id,omitempty"`
	UUID             *uuid.UUID        `json:"uuid,omitempty"`
	SenderID         *uint             `json:"sender_id,omitempty"`
	ProcessingStatus *ProcessingStatus `json:"processing_status,omitempty"`
	DeliveryStatus   *DeliveryStatus   `json:"delivery_status,omitempty"`
	CreatedAfter     *time.Time        `json:"created_after,omitempty"`
	CreatedBefore    *time.Time        `json:"created_before,omitempty"`
}
