package dto

import "time"

// AdminLoginRequest exchanges the shared admin secret for a JWT
type AdminLoginRequest struct {
	Phone  string `json:"phone" validate:"required"`
	Secret string `json:"secret" validate:"required,min=16"`
}

// AdminLoginResponse carries the issued token
type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ForceSummaryResponse reports the outcome of a manually triggered digest
type ForceSummaryResponse struct {
	Sent            bool `json:"sent"`
	ReactionCount   int  `json:"reaction_count"`
	MessagesCovered int  `json:"messages_covered"`
}

// MemberResponse is the admin API view of a member
type MemberResponse struct {
	ID           uint       `json:"id"`
	UUID         string     `json:"uuid"`
	Phone        string     `json:"phone"`
	Name         string     `json:"name"`
	IsAdmin      bool       `json:"is_admin"`
	IsActive     bool       `json:"is_active"`
	MessageCount int64      `json:"message_count"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

// DeliveryReportRequest bounds the XLSX delivery report
type DeliveryReportRequest struct {
	StartDate *time.Time `json:"start_date" validate:"omitempty"`
	EndDate   *time.Time `json:"end_date" validate:"omitempty"`
}
