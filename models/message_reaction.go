package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ReactionType is the closed set of recognized reaction kinds
type ReactionType string

const (
	ReactionTypeLove     ReactionType = "love"
	ReactionTypeLike     ReactionType = "like"
	ReactionTypeDislike  ReactionType = "dislike"
	ReactionTypeLaugh    ReactionType = "laugh"
	ReactionTypeSurprise ReactionType = "surprise"
	ReactionTypeSad      ReactionType = "sad"
	ReactionTypeAngry    ReactionType = "angry"
	ReactionTypePray     ReactionType = "pray"
	ReactionTypePraise   ReactionType = "praise"
	ReactionTypeAmen     ReactionType = "amen"
	ReactionTypeEmphasis ReactionType = "emphasis"
	ReactionTypeQuestion ReactionType = "question"
)

// String returns the string representation of the reaction type
func (t ReactionType) String() string {
	return string(t)
}

// Valid checks if the reaction type is one of the closed set
func (t ReactionType) Valid() bool {
	switch t {
	case ReactionTypeLove, ReactionTypeLike, ReactionTypeDislike,
		ReactionTypeLaugh, ReactionTypeSurprise, ReactionTypeSad,
		ReactionTypeAngry, ReactionTypePray, ReactionTypePraise,
		ReactionTypeAmen, ReactionTypeEmphasis, ReactionTypeQuestion:
		return true
	default:
		return false
	}
}

// Glyph returns the emoji used when rendering this reaction type in a digest
func (t ReactionType) Glyph() string {
	switch t {
	case ReactionTypeLove:
		return "❤️"
	case ReactionTypeLike:
		return "👍"
	case ReactionTypeDislike:
		return "👎"
	case ReactionTypeLaugh:
		return "😂"
	case ReactionTypeSurprise:
		return "😮"
	case ReactionTypeSad:
		return "😢"
	case ReactionTypeAngry:
		return "😠"
	case ReactionTypePray:
		return "🙏"
	case ReactionTypePraise:
		return "🙌"
	case ReactionTypeAmen:
		return "🙏"
	case ReactionTypeEmphasis:
		return "‼️"
	case ReactionTypeQuestion:
		return "❓"
	default:
		return ""
	}
}

// Scan implements the sql.Scanner interface for ReactionType
func (t *ReactionType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*t = ReactionType(v)
	case []byte:
		*t = ReactionType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ReactionType", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for ReactionType
func (t ReactionType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid ReactionType: %s", t)
	}
	return string(t), nil
}

// ResolutionMethod records which matching tier identified a reaction's target
type ResolutionMethod string

const (
	ResolutionMethodExact   ResolutionMethod = "exact"
	ResolutionMethodFuzzy   ResolutionMethod = "fuzzy"
	ResolutionMethodKeyword ResolutionMethod = "keyword"
)

// String returns the string representation of the resolution method
func (m ResolutionMethod) String() string {
	return string(m)
}

// Valid checks if the resolution method is valid
func (m ResolutionMethod) Valid() bool {
	switch m {
	case ResolutionMethodExact, ResolutionMethodFuzzy, ResolutionMethodKeyword:
		return true
	default:
		return false
	}
}

// MessageReaction is one resolved reaction to a prior broadcast.
// At most one row exists per (MessageID, ReactorPhone, ReactionType);
// duplicates are dropped silently at the store layer.
type MessageReaction struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	MessageID         uint             `gorm:"not null;uniqueIndex:uk_message_reactions_dedupe,priority:1;index:idx_message_reactions_message_id" json:"message_id"`
	MessageHash       string           `gorm:"size:64;not null;index:idx_message_reactions_message_hash" json:"message_hash"`
	ReactorPhone      string           `gorm:"size:20;not null;uniqueIndex:uk_message_reactions_dedupe,priority:2" json:"reactor_phone"`
	ReactorName       string           `gorm:"size:100;not null" json:"reactor_name"`
	ReactionType      ReactionType     `gorm:"type:varchar(20);not null;uniqueIndex:uk_message_reactions_dedupe,priority:3" json:"reaction_type"`
	Emoji             string           `gorm:"size:16;not null" json:"emoji"`
	RawText           string           `gorm:"type:text;not null" json:"raw_text"`
	DeviceCategory    string           `gorm:"size:30" json:"device_category"`
	ResolutionMethod  ResolutionMethod `gorm:"type:varchar(20);not null" json:"resolution_method"`
	Confidence        float64          `gorm:"not null;default:0" json:"confidence"`
	Processed         bool             `gorm:"not null;default:false;index:idx_message_reactions_processed" json:"processed"`
	IncludedInSummary bool             `gorm:"not null;default:false" json:"included_in_summary"`
	CreatedAt         time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_message_reactions_created_at" json:"created_at"`

	// Relations
	Message *BroadcastMessage `gorm:"foreignKey:MessageID;references:ID" json:"message,omitempty"`
}

// TableName returns the table name for the model
func (MessageReaction) TableName() string {
	return "message_reactions"
}

// MessageReactionFilter represents filter criteria for message reactions
type MessageReactionFilter struct {
	ID            *uint             `json:"id,omitempty"`
	MessageID     *uint             `json:"message_id,omitempty"`
	ReactorPhone  *string           `json:"reactor_phone,omitempty"`
	ReactionType  *ReactionType     `json:"reaction_type,omitempty"`
	Method        *ResolutionMethod `json:"method,omitempty"`
	Processed     *bool             `json:"processed,omitempty"`
	CreatedAfter  *time.Time        `json:"created_after,omitempty"`
	CreatedBefore *time.Time        `json:"created_before,omitempty"`
}
