package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairan-app/kairan/app/dto"
	"github.com/kairan-app/kairan/app/services"
	"github.com/kairan-app/kairan/config"
	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/utils"
)

type inboundTestEnv struct {
	memberRepo   *fakeMemberRepo
	messageRepo  *fakeMessageRepo
	logRepo      *fakeDeliveryLogRepo
	reactionRepo *fakeReactionRepo
	gateway      *services.MockSMSGateway
	flow         InboundFlow
}

func newInboundTestEnv(t *testing.T) *inboundTestEnv {
	t.Helper()
	env := &inboundTestEnv{
		memberRepo:   newFakeMemberRepo(),
		messageRepo:  newFakeMessageRepo(),
		logRepo:      newFakeDeliveryLogRepo(),
		reactionRepo: newFakeReactionRepo(),
		gateway:      services.NewMockSMSGateway(),
	}

	dispatcher := NewDispatcher(env.gateway, env.logRepo, testRetryPolicy(1), NoopSleeper{})
	broadcasts := NewBroadcastFlow(env.memberRepo, env.messageRepo, dispatcher, nil, nil)
	resolver := NewReactionResolver(env.messageRepo, nil, &config.CacheConfig{}, testReactionConfig())
	reactions := NewReactionFlow(resolver, env.reactionRepo, nil, &config.CacheConfig{}, nil)
	roster := NewRosterFlow(env.memberRepo)
	summaries := NewSummaryFlow(env.reactionRepo, env.messageRepo, broadcasts, &config.SummaryConfig{
		SilenceThreshold:    30 * time.Minute,
		MinPendingReactions: 3,
	}, nil)
	env.flow = NewInboundFlow(env.memberRepo, reactions, broadcasts, roster, summaries, nil)
	return env
}

func (env *inboundTestEnv) inbound(from, body string) string {
	req := &dto.InboundMessageRequest{From: from, Body: body}
	return env.flow.HandleInbound(context.Background(), req, NewClientMetadata("127.0.0.1", "test"))
}

func TestHandleInboundUnknownSender(t *testing.T) {
	env := newInboundTestEnv(t)
	env.memberRepo.addMember("+15550000001", "Sarah", false)

	reply := env.inbound("+15559999999", "hello everyone")
	assert.Equal(t, notMemberReply, reply)
	assert.Empty(t, env.gateway.SentMessages)
}

func TestHandleInboundBroadcast(t *testing.T) {
	env := newInboundTestEnv(t)
	mike := env.memberRepo.addMember("+15550000001", "Mike", false)
	env.memberRepo.addMember("+15550000002", "Sarah", false)
	env.memberRepo.addMember("+15550000003", "Tom", false)
	env.memberRepo.addMember("+15550000004", "Ruth", false)

	reply := env.inbound(mike.Phone, "Potluck is at 6pm Saturday")
	assert.Empty(t, reply)
	assert.Len(t, env.gateway.SentMessages, 3)
	assert.Empty(t, env.gateway.MessagesTo(mike.Phone))
}

func TestHandleInboundReactionIsAbsorbed(t *testing.T) {
	env := newInboundTestEnv(t)
	sarah := env.memberRepo.addMember("+15550000001", "Sarah", false)
	ruth := env.memberRepo.addMember("+15550000002", "Ruth", false)
	env.memberRepo.addMember("+15550000003", "Tom", false)

	reply := env.inbound(sarah.Phone, "Potluck is at 6pm Saturday")
	assert.Empty(t, reply)
	sent := len(env.gateway.SentMessages)

	reply = env.inbound(ruth.Phone, `❤️ to "Potluck is at 6pm Saturday"`)
	assert.Empty(t, reply)
	// The reaction is stored but never relayed to the group
	assert.Len(t, env.gateway.SentMessages, sent)
	require.Len(t, env.reactionRepo.reactions, 1)
	assert.Equal(t, models.ReactionTypeLove, env.reactionRepo.reactions[0].ReactionType)
	assert.Equal(t, ruth.Phone, env.reactionRepo.reactions[0].ReactorPhone)
}

func TestHandleInboundAdminCommands(t *testing.T) {
	env := newInboundTestEnv(t)
	admin := env.memberRepo.addMember("+15550000001", "Pastor Dave", true)

	reply := env.inbound(admin.Phone, "/add (555) 000-0002 Ruth")
	assert.Equal(t, "Added Ruth (+15550000002).", reply)

	reply = env.inbound(admin.Phone, "/promote +15550000002")
	assert.Equal(t, "Ruth is now an admin.", reply)

	reply = env.inbound(admin.Phone, "/list")
	assert.Contains(t, reply, "2 active members:")

	reply = env.inbound(admin.Phone, "/remove +15550000002")
	assert.Equal(t, "Removed Ruth (+15550000002).", reply)

	reply = env.inbound(admin.Phone, "/remove +15559999999")
	assert.Equal(t, "No member with that number.", reply)

	reply = env.inbound(admin.Phone, "/bogus")
	assert.Contains(t, reply, "Commands:")

	reply = env.inbound(admin.Phone, "/add")
	assert.Contains(t, reply, "Commands:")
}

func TestHandleInboundForcedSummary(t *testing.T) {
	env := newInboundTestEnv(t)
	admin := env.memberRepo.addMember("+15550000001", "Pastor Dave", true)
	sarah := env.memberRepo.addMember("+15550000002", "Sarah", false)
	ruth := env.memberRepo.addMember("+15550000003", "Ruth", false)

	reply := env.inbound(admin.Phone, "/summary")
	assert.Equal(t, "No pending reactions to summarize.", reply)

	reply = env.inbound(sarah.Phone, "Potluck is at 6pm Saturday")
	assert.Empty(t, reply)
	env.messageRepo.messages[len(env.messageRepo.messages)-1].CreatedAt = utils.UTCNow().Add(-time.Hour)

	reply = env.inbound(ruth.Phone, `❤️ to "Potluck is at 6pm Saturday"`)
	assert.Empty(t, reply)
	reply = env.inbound(admin.Phone, `👍 to "Potluck is at 6pm Saturday"`)
	assert.Empty(t, reply)

	env.gateway.ClearSentMessages()
	reply = env.inbound(admin.Phone, "/summary")
	assert.Equal(t, "Summary sent.", reply)

	// Digest reaches every active member, reactors included
	require.Len(t, env.gateway.SentMessages, 3)
	assert.Contains(t, env.gateway.SentMessages[0].Body, "Reaction summary:")
	assert.Contains(t, env.gateway.SentMessages[0].Body, `"Potluck is at 6pm Saturday" - Sarah`)
}

func TestHandleInboundSlashCommandFromNonAdmin(t *testing.T) {
	env := newInboundTestEnv(t)
	sarah := env.memberRepo.addMember("+15550000001", "Sarah", false)
	env.memberRepo.addMember("+15550000002", "Tom", false)

	// Non-admins have no commands; the text relays like any other message
	reply := env.inbound(sarah.Phone, "/list")
	assert.Empty(t, reply)
	require.Len(t, env.gateway.SentMessages, 1)
	assert.Equal(t, "Sarah: /list", env.gateway.SentMessages[0].Body)
}

func TestHandleInboundEmptyBody(t *testing.T) {
	env := newInboundTestEnv(t)
	sarah := env.memberRepo.addMember("+15550000001", "Sarah", false)
	env.memberRepo.addMember("+15550000002", "Tom", false)

	reply := env.inbound(sarah.Phone, "   ")
	assert.Empty(t, reply)
	assert.Empty(t, env.gateway.SentMessages)
}

func TestHandleInboundLookupFailure(t *testing.T) {
	env := newInboundTestEnv(t)
	env.memberRepo.failAll = true

	reply := env.inbound("+15550000001", "hello")
	assert.Equal(t, unavailableReply, reply)
}
