// Package businessflow contains the core business logic for broadcast relay and reaction correlation
package businessflow

import (
	"context"
	"strings"

	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/repository"
)

// ClientMetadata holds client-related information for audit logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// getMemberByPhone loads a member by normalized phone, mapping absence to a business error
func getMemberByPhone(ctx context.Context, repo repository.MemberRepository, phone string) (*models.Member, error) {
	member, err := repo.ByPhone(ctx, phone)
	if err != nil {
		return nil, NewBusinessError("MEMBER_LOOKUP_FAILED", "failed to look up member", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// truncatePreview shortens a message body for digest rendering. Slicing is
// done on runes so a curly quote or emoji at the boundary cannot produce
// invalid UTF-8 in an outgoing digest.
func truncatePreview(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// displayName returns the member's name, falling back to the phone number
func displayName(m *models.Member) string {
	if m == nil {
		return ""
	}
	if strings.TrimSpace(m.Name) != "" {
		return m.Name
	}
	return m.Phone
}
