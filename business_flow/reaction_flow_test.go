package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairan-app/kairan/config"
	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/utils"
)

type reactionTestEnv struct {
	messageRepo  *fakeMessageRepo
	reactionRepo *fakeReactionRepo
	flow         ReactionFlow
}

func newReactionTestEnv(t *testing.T) *reactionTestEnv {
	t.Helper()
	env := &reactionTestEnv{
		messageRepo:  newFakeMessageRepo(),
		reactionRepo: newFakeReactionRepo(),
	}
	resolver := NewReactionResolver(env.messageRepo, nil, &config.CacheConfig{}, testReactionConfig())
	env.flow = NewReactionFlow(resolver, env.reactionRepo, nil, &config.CacheConfig{}, nil)
	return env
}

func testMember(id uint, phone, name string) *models.Member {
	return &models.Member{ID: id, Phone: phone, Name: name, IsActive: utils.ToPtr(true)}
}

func TestHandleReactionStoresResolvedReaction(t *testing.T) {
	env := newReactionTestEnv(t)
	target := env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", utils.UTCNow().Add(-time.Hour))
	ruth := testMember(5, "+15550000005", "Ruth")

	handled, err := env.flow.HandleReaction(context.Background(), ruth, `❤️ to "Potluck is at 6pm Saturday"`)
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, env.reactionRepo.reactions, 1)
	r := env.reactionRepo.reactions[0]
	assert.Equal(t, target.ID, r.MessageID)
	assert.Equal(t, "+15550000005", r.ReactorPhone)
	assert.Equal(t, "Ruth", r.ReactorName)
	assert.Equal(t, models.ReactionTypeLove, r.ReactionType)
	assert.Equal(t, "❤️", r.Emoji)
	assert.Equal(t, models.ResolutionMethodExact, r.ResolutionMethod)
	assert.Equal(t, 1.0, r.Confidence)
	assert.False(t, r.Processed)
	assert.NotEmpty(t, r.MessageHash)
}

func TestHandleReactionDedupes(t *testing.T) {
	env := newReactionTestEnv(t)
	env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", utils.UTCNow().Add(-time.Hour))
	ruth := testMember(5, "+15550000005", "Ruth")

	for i := 0; i < 3; i++ {
		handled, err := env.flow.HandleReaction(context.Background(), ruth, `❤️ to "Potluck is at 6pm Saturday"`)
		require.NoError(t, err)
		assert.True(t, handled)
	}
	// Same (message, reactor, type) stays a single row
	assert.Len(t, env.reactionRepo.reactions, 1)
}

func TestHandleReactionDifferentTypesCoexist(t *testing.T) {
	env := newReactionTestEnv(t)
	env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", utils.UTCNow().Add(-time.Hour))
	ruth := testMember(5, "+15550000005", "Ruth")
	tom := testMember(6, "+15550000006", "Tom")

	handled, err := env.flow.HandleReaction(context.Background(), ruth, `❤️ to "Potluck is at 6pm Saturday"`)
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = env.flow.HandleReaction(context.Background(), ruth, `👍 to "Potluck is at 6pm Saturday"`)
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = env.flow.HandleReaction(context.Background(), tom, `❤️ to "Potluck is at 6pm Saturday"`)
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Len(t, env.reactionRepo.reactions, 3)
}

func TestHandleReactionUnresolvedIsAbsorbed(t *testing.T) {
	env := newReactionTestEnv(t)
	ruth := testMember(5, "+15550000005", "Ruth")

	// No broadcast matches, but the text is conclusively a reaction: it is
	// absorbed, never broadcast, and nothing is stored
	handled, err := env.flow.HandleReaction(context.Background(), ruth, `❤️ to "some message nobody ever sent"`)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Empty(t, env.reactionRepo.reactions)
}

func TestHandleReactionIgnoresOrdinaryText(t *testing.T) {
	env := newReactionTestEnv(t)
	env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", utils.UTCNow().Add(-time.Hour))
	ruth := testMember(5, "+15550000005", "Ruth")

	handled, err := env.flow.HandleReaction(context.Background(), ruth, "Can someone bring chairs?")
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, env.reactionRepo.reactions)
}

func TestHandleReactionStoreFailureStillAbsorbs(t *testing.T) {
	env := newReactionTestEnv(t)
	env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", utils.UTCNow().Add(-time.Hour))
	env.reactionRepo.failSave = true
	ruth := testMember(5, "+15550000005", "Ruth")

	handled, err := env.flow.HandleReaction(context.Background(), ruth, `❤️ to "Potluck is at 6pm Saturday"`)
	assert.True(t, handled)
	assert.Error(t, err)
}
