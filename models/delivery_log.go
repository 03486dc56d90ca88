package models

import "time"

// DeliveryOutcome enumerates the terminal status of one recipient delivery
type DeliveryOutcome string

const (
	DeliveryOutcomeDelivered DeliveryOutcome = "delivered"
	DeliveryOutcomeFailed    DeliveryOutcome = "failed"
)

// DeliveryLog records one recipient's delivery outcome for a broadcast.
// Rows are written once and never mutated.
type DeliveryLog struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	MessageID   uint            `gorm:"not null;index:idx_delivery_logs_message_id" json:"message_id"`
	RecipientID uint            `gorm:"not null;index:idx_delivery_logs_recipient_id" json:"recipient_id"`
	Method      string          `gorm:"size:20;not null;default:'sms'" json:"method"`
	Status      DeliveryOutcome `gorm:"type:varchar(20);not null;index:idx_delivery_logs_status" json:"status"`
	ProviderID  *string         `gorm:"size:64" json:"provider_id,omitempty"`
	Error       *string         `gorm:"type:text" json:"error,omitempty"`
	ElapsedMS   int64           `gorm:"not null;default:0" json:"elapsed_ms"`
	CreatedAt   time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_delivery_logs_created_at" json:"created_at"`
}

// TableName returns the table name for the model
func (DeliveryLog) TableName() string {
	return "delivery_logs"
}

// DeliveryLogFilter represents filter criteria for delivery logs
type DeliveryLogFilter struct {
	ID            *uint            `json:"id,omitempty"`
	MessageID     *uint            `json:"message_id,omitempty"`
	RecipientID   *uint            `json:"recipient_id,omitempty"`
	Status        *DeliveryOutcome `json:"status,omitempty"`
	CreatedAfter  *time.Time       `json:"created_after,omitempty"`
	CreatedBefore *time.Time       `json:"created_before,omitempty"`
}
