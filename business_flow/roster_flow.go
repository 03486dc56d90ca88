package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/repository"
	"github.com/kairan-app/kairan/utils"
)

// RosterFlow manages group membership through admin commands
type RosterFlow interface {
	AddMember(ctx context.Context, phone, name string) (string, error)
	RemoveMember(ctx context.Context, phone string) (string, error)
	PromoteMember(ctx context.Context, phone string) (string, error)
	ListMembers(ctx context.Context) (string, error)
}

// RosterFlowImpl implements RosterFlow
type RosterFlowImpl struct {
	memberRepo repository.MemberRepository
}

// NewRosterFlow creates a new roster flow
func NewRosterFlow(memberRepo repository.MemberRepository) RosterFlow {
	return &RosterFlowImpl{memberRepo: memberRepo}
}

// AddMember registers a new active member or reactivates a removed one
func (f *RosterFlowImpl) AddMember(ctx context.Context, phone, name string) (string, error) {
	normalized := utils.NormalizePhone(phone)
	if normalized == "" {
		return "", ErrCommandPhoneNeeded
	}

	existing, err := f.memberRepo.ByPhone(ctx, normalized)
	if err != nil {
		return "", NewBusinessError("MEMBER_LOOKUP_FAILED", "failed to look up member", err)
	}
	if existing != nil {
		if utils.IsTrue(existing.IsActive) {
			return "", ErrMemberAlreadyExists
		}
		existing.IsActive = utils.ToPtr(true)
		if name != "" {
			existing.Name = name
		}
		if err := f.memberRepo.Update(ctx, existing); err != nil {
			return "", NewBusinessError("MEMBER_UPDATE_FAILED", "failed to reactivate member", err)
		}
		return fmt.Sprintf("Welcome back %s (%s).", displayName(existing), existing.Phone), nil
	}

	member := &models.Member{
		Phone:    normalized,
		Name:     name,
		IsActive: utils.ToPtr(true),
	}
	if err := f.memberRepo.Save(ctx, member); err != nil {
		return "", NewBusinessError("MEMBER_PERSIST_FAILED", "failed to add member", err)
	}
	return fmt.Sprintf("Added %s (%s).", displayName(member), member.Phone), nil
}

// RemoveMember deactivates a member; history is kept, deliveries stop
func (f *RosterFlowImpl) RemoveMember(ctx context.Context, phone string) (string, error) {
	normalized := utils.NormalizePhone(phone)
	if normalized == "" {
		return "", ErrCommandPhoneNeeded
	}
	member, err := getMemberByPhone(ctx, f.memberRepo, normalized)
	if err != nil {
		return "", err
	}
	member.IsActive = utils.ToPtr(false)
	if err := f.memberRepo.Update(ctx, member); err != nil {
		return "", NewBusinessError("MEMBER_UPDATE_FAILED", "failed to remove member", err)
	}
	return fmt.Sprintf("Removed %s (%s).", displayName(member), member.Phone), nil
}

// PromoteMember grants admin rights
func (f *RosterFlowImpl) PromoteMember(ctx context.Context, phone string) (string, error) {
	normalized := utils.NormalizePhone(phone)
	if normalized == "" {
		return "", ErrCommandPhoneNeeded
	}
	member, err := getMemberByPhone(ctx, f.memberRepo, normalized)
	if err != nil {
		return "", err
	}
	if member.IsAdmin {
		return fmt.Sprintf("%s is already an admin.", displayName(member)), nil
	}
	member.IsAdmin = true
	if err := f.memberRepo.Update(ctx, member); err != nil {
		return "", NewBusinessError("MEMBER_UPDATE_FAILED", "failed to promote member", err)
	}
	return fmt.Sprintf("%s is now an admin.", displayName(member)), nil
}

// ListMembers renders the active roster for an admin reply
func (f *RosterFlowImpl) ListMembers(ctx context.Context) (string, error) {
	members, err := f.memberRepo.ListActive(ctx)
	if err != nil {
		return "", NewBusinessError("MEMBER_LOOKUP_FAILED", "failed to list members", err)
	}
	if len(members) == 0 {
		return "No active members.", nil
	}
	lines := make([]string, 0, len(members)+1)
	lines = append(lines, fmt.Sprintf("%d active members:", len(members)))
	for _, m := range members {
		suffix := ""
		if m.IsAdmin {
			suffix = " (admin)"
		}
		lines = append(lines, fmt.Sprintf("%s %s%s", m.Phone, displayName(m), suffix))
	}
	return strings.Join(lines, "\n"), nil
}
