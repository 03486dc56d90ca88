package businessflow

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairan-app/kairan/app/dto"
	"github.com/kairan-app/kairan/config"
	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/utils"
)

// stubBroadcaster captures system digests without a real fan-out
type stubBroadcaster struct {
	digests []string
	fail    bool
}

func (s *stubBroadcaster) Broadcast(ctx context.Context, sender *models.Member, body string, attachments []dto.InboundAttachment, metadata *ClientMetadata) (string, error) {
	return "", nil
}

func (s *stubBroadcaster) BroadcastSystem(ctx context.Context, body string) (*BroadcastStats, error) {
	if s.fail {
		return nil, fmt.Errorf("stub broadcaster failure")
	}
	s.digests = append(s.digests, body)
	return &BroadcastStats{Recipients: 3, Sent: 3}, nil
}

type summaryTestEnv struct {
	reactionRepo *fakeReactionRepo
	messageRepo  *fakeMessageRepo
	broadcaster  *stubBroadcaster
	flow         SummaryFlow
}

func newSummaryTestEnv(t *testing.T) *summaryTestEnv {
	t.Helper()
	env := &summaryTestEnv{
		reactionRepo: newFakeReactionRepo(),
		messageRepo:  newFakeMessageRepo(),
		broadcaster:  &stubBroadcaster{},
	}
	cfg := &config.SummaryConfig{
		CheckInterval:       5 * time.Minute,
		SilenceThreshold:    30 * time.Minute,
		MinPendingReactions: 3,
	}
	env.flow = NewSummaryFlow(env.reactionRepo, env.messageRepo, env.broadcaster, cfg, nil)
	return env
}

func (env *summaryTestEnv) addReaction(t *testing.T, msg *models.BroadcastMessage, phone, name string, reactionType models.ReactionType, at time.Time) {
	t.Helper()
	err := env.reactionRepo.Save(context.Background(), &models.MessageReaction{
		MessageID:        msg.ID,
		MessageHash:      ContentHash(NormalizeFragment(msg.OriginalText)),
		ReactorPhone:     phone,
		ReactorName:      name,
		ReactionType:     reactionType,
		Emoji:            reactionType.Glyph(),
		RawText:          fmt.Sprintf("%s to \"%s\"", reactionType.Glyph(), msg.OriginalText),
		ResolutionMethod: models.ResolutionMethodExact,
		Confidence:       1.0,
		CreatedAt:        at,
	})
	require.NoError(t, err)
}

func TestRunSummaryNothingPending(t *testing.T) {
	env := newSummaryTestEnv(t)
	result, err := env.flow.RunSummary(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Zero(t, result.ReactionCount)
	assert.Empty(t, env.broadcaster.digests)
}

func TestRunSummaryRendersDigest(t *testing.T) {
	env := newSummaryTestEnv(t)
	now := utils.UTCNow()
	potluck := env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", now.Add(-2*time.Hour))
	joke := env.messageRepo.addBroadcast(2, "Mike", "That joke about the ladder", now.Add(-90*time.Minute))

	env.addReaction(t, potluck, "+15550000005", "Ruth", models.ReactionTypeLove, now.Add(-time.Hour))
	env.addReaction(t, potluck, "+15550000006", "Tom", models.ReactionTypeLove, now.Add(-55*time.Minute))
	env.addReaction(t, potluck, "+15550000007", "Ann", models.ReactionTypeLike, now.Add(-50*time.Minute))
	env.addReaction(t, joke, "+15550000005", "Ruth", models.ReactionTypeLaugh, now.Add(-45*time.Minute))

	result, err := env.flow.RunSummary(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Equal(t, 4, result.ReactionCount)
	assert.Equal(t, 2, result.MessagesCovered)

	require.Len(t, env.broadcaster.digests, 1)
	digest := env.broadcaster.digests[0]
	lines := strings.Split(digest, "\n")
	assert.Equal(t, "Reaction summary:", lines[0])
	assert.Contains(t, digest, `"Potluck is at 6pm Saturday" - Sarah`)
	assert.Contains(t, digest, `"That joke about the ladder" - Mike`)
	assert.Contains(t, digest, "❤️ Ruth and Tom")
	assert.Contains(t, digest, "👍 Ann")
	assert.Contains(t, digest, "😂 Ruth")

	// The two-reactor love line must come before the single-reactor like line
	loveIdx := strings.Index(digest, "❤️ Ruth and Tom")
	likeIdx := strings.Index(digest, "👍 Ann")
	assert.Less(t, loveIdx, likeIdx)
}

func TestRunSummaryIsIdempotent(t *testing.T) {
	env := newSummaryTestEnv(t)
	now := utils.UTCNow()
	msg := env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", now.Add(-2*time.Hour))
	env.addReaction(t, msg, "+15550000005", "Ruth", models.ReactionTypeLove, now.Add(-time.Hour))
	env.addReaction(t, msg, "+15550000006", "Tom", models.ReactionTypeLike, now.Add(-time.Hour))

	first, err := env.flow.RunSummary(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Sent)
	assert.Equal(t, 2, first.ReactionCount)

	// All covered reactions are flagged
	for _, r := range env.reactionRepo.reactions {
		assert.True(t, r.Processed)
		assert.True(t, r.IncludedInSummary)
	}

	second, err := env.flow.RunSummary(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Sent)
	assert.Len(t, env.broadcaster.digests, 1)
}

func TestRunSummaryMarksBeforeSend(t *testing.T) {
	env := newSummaryTestEnv(t)
	env.broadcaster.fail = true
	now := utils.UTCNow()
	msg := env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", now.Add(-2*time.Hour))
	env.addReaction(t, msg, "+15550000005", "Ruth", models.ReactionTypeLove, now.Add(-time.Hour))

	result, err := env.flow.RunSummary(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Equal(t, 1, result.ReactionCount)

	// Marked even though the send failed; the next run must not re-report
	assert.True(t, env.reactionRepo.reactions[0].Processed)

	env.broadcaster.fail = false
	again, err := env.flow.RunSummary(context.Background())
	require.NoError(t, err)
	assert.False(t, again.Sent)
	assert.Empty(t, env.broadcaster.digests)
}

func TestRunSummaryDeletedMessageFallback(t *testing.T) {
	env := newSummaryTestEnv(t)
	now := utils.UTCNow()
	ghost := &models.BroadcastMessage{ID: 999, SenderName: "Sarah", OriginalText: "gone"}
	env.addReaction(t, ghost, "+15550000005", "Ruth", models.ReactionTypeLove, now.Add(-time.Hour))

	result, err := env.flow.RunSummary(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Contains(t, env.broadcaster.digests[0], "(deleted message)")
}

func TestRunIfQuietBelowMinimum(t *testing.T) {
	env := newSummaryTestEnv(t)
	now := utils.UTCNow()
	msg := env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", now.Add(-2*time.Hour))
	env.addReaction(t, msg, "+15550000005", "Ruth", models.ReactionTypeLove, now.Add(-time.Hour))
	env.addReaction(t, msg, "+15550000006", "Tom", models.ReactionTypeLike, now.Add(-time.Hour))

	result, err := env.flow.RunIfQuiet(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Empty(t, env.broadcaster.digests)
}

func TestRunIfQuietDuringActiveConversation(t *testing.T) {
	env := newSummaryTestEnv(t)
	now := utils.UTCNow()
	msg := env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", now.Add(-2*time.Hour))
	env.addReaction(t, msg, "+15550000005", "Ruth", models.ReactionTypeLove, now.Add(-time.Hour))
	env.addReaction(t, msg, "+15550000006", "Tom", models.ReactionTypeLike, now.Add(-time.Hour))
	env.addReaction(t, msg, "+15550000007", "Ann", models.ReactionTypeLaugh, now.Add(-time.Hour))

	// A fresh broadcast means the group is still talking
	env.messageRepo.addBroadcast(2, "Mike", "On my way", now.Add(-5*time.Minute))

	result, err := env.flow.RunIfQuiet(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Empty(t, env.broadcaster.digests)
}

func TestRunIfQuietAfterSilence(t *testing.T) {
	env := newSummaryTestEnv(t)
	now := utils.UTCNow()
	msg := env.messageRepo.addBroadcast(1, "Sarah", "Potluck is at 6pm Saturday", now.Add(-2*time.Hour))
	env.addReaction(t, msg, "+15550000005", "Ruth", models.ReactionTypeLove, now.Add(-time.Hour))
	env.addReaction(t, msg, "+15550000006", "Tom", models.ReactionTypeLike, now.Add(-time.Hour))
	env.addReaction(t, msg, "+15550000007", "Ann", models.ReactionTypeLaugh, now.Add(-time.Hour))

	result, err := env.flow.RunIfQuiet(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Equal(t, 3, result.ReactionCount)
	require.Len(t, env.broadcaster.digests, 1)
}
