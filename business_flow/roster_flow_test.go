package businessflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairan-app/kairan/utils"
)

func TestAddMember(t *testing.T) {
	repo := newFakeMemberRepo()
	flow := NewRosterFlow(repo)

	reply, err := flow.AddMember(context.Background(), "(555) 123-4567", "Ruth")
	require.NoError(t, err)
	assert.Equal(t, "Added Ruth (+15551234567).", reply)

	member, err := repo.ByPhone(context.Background(), "+15551234567")
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.True(t, utils.IsTrue(member.IsActive))
	assert.False(t, member.IsAdmin)
}

func TestAddMemberAlreadyActive(t *testing.T) {
	repo := newFakeMemberRepo()
	repo.addMember("+15551234567", "Ruth", false)
	flow := NewRosterFlow(repo)

	_, err := flow.AddMember(context.Background(), "+15551234567", "Ruth")
	assert.True(t, IsMemberAlreadyExists(err))
}

func TestAddMemberReactivates(t *testing.T) {
	repo := newFakeMemberRepo()
	gone := repo.addMember("+15551234567", "Ruth", false)
	gone.IsActive = utils.ToPtr(false)
	flow := NewRosterFlow(repo)

	reply, err := flow.AddMember(context.Background(), "+15551234567", "Ruthie")
	require.NoError(t, err)
	assert.Equal(t, "Welcome back Ruthie (+15551234567).", reply)
	assert.True(t, utils.IsTrue(gone.IsActive))
	assert.Equal(t, "Ruthie", gone.Name)
}

func TestRemoveMember(t *testing.T) {
	repo := newFakeMemberRepo()
	ruth := repo.addMember("+15551234567", "Ruth", false)
	flow := NewRosterFlow(repo)

	reply, err := flow.RemoveMember(context.Background(), "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "Removed Ruth (+15551234567).", reply)
	assert.False(t, utils.IsTrue(ruth.IsActive))

	_, err = flow.RemoveMember(context.Background(), "+15559999999")
	assert.True(t, IsMemberNotFound(err))
}

func TestPromoteMember(t *testing.T) {
	repo := newFakeMemberRepo()
	ruth := repo.addMember("+15551234567", "Ruth", false)
	flow := NewRosterFlow(repo)

	reply, err := flow.PromoteMember(context.Background(), "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "Ruth is now an admin.", reply)
	assert.True(t, ruth.IsAdmin)

	reply, err = flow.PromoteMember(context.Background(), "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "Ruth is already an admin.", reply)
}

func TestListMembers(t *testing.T) {
	repo := newFakeMemberRepo()
	flow := NewRosterFlow(repo)

	reply, err := flow.ListMembers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No active members.", reply)

	repo.addMember("+15550000001", "Pastor Dave", true)
	repo.addMember("+15550000002", "Ruth", false)
	gone := repo.addMember("+15550000003", "Left", false)
	gone.IsActive = utils.ToPtr(false)

	reply, err = flow.ListMembers(context.Background())
	require.NoError(t, err)
	assert.Contains(t, reply, "2 active members:")
	assert.Contains(t, reply, "+15550000001 Pastor Dave (admin)")
	assert.Contains(t, reply, "+15550000002 Ruth")
	assert.NotContains(t, reply, "Left")
}
