package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Member represents a registered participant of the relay group
type Member struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_members_uuid" json:"uuid"`
	Phone        string         `gorm:"size:20;not null;uniqueIndex:uk_members_phone" json:"phone"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	IsAdmin      bool           `gorm:"not null;default:false" json:"is_admin"`
	IsActive     *bool          `gorm:"not null;default:true;index:idx_members_is_active" json:"is_active"`
	GroupRefs    pq.StringArray `gorm:"type:text[]" json:"group_refs,omitempty"`
	LastActiveAt *time.Time     `json:"last_active_at,omitempty"`
	MessageCount int64          `gorm:"not null;default:0" json:"message_count"`
	CreatedAt    time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Member) TableName() string {
	return "members"
}

// BeforeCreate is called before creating a new record
func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

// MemberFilter represents filter criteria for members
type MemberFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	IsAdmin       *bool      `json:"is_admin,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
	GroupRef      *string    `json:"group_ref,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
