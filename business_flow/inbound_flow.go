package businessflow

import (
	"context"
	"log"
	"strings"
	"unicode"

	"github.com/kairan-app/kairan/app/dto"
	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/repository"
	"github.com/kairan-app/kairan/utils"
)

const unavailableReply = "The group is temporarily unavailable. Please try again shortly."
const notMemberReply = "This number is not registered with the group."

// InboundFlow is the single entry point for inbound messages. The returned
// reply is sent back to the sender only; an empty reply means silence
// (absorbed reaction or non-admin broadcast).
type InboundFlow interface {
	HandleInbound(ctx context.Context, req *dto.InboundMessageRequest, metadata *ClientMetadata) string
}

// InboundFlowImpl implements InboundFlow
type InboundFlowImpl struct {
	memberRepo repository.MemberRepository
	reactions  ReactionFlow
	broadcasts BroadcastFlow
	roster     RosterFlow
	summaries  SummaryFlow
	logger     *log.Logger
}

// NewInboundFlow creates a new inbound flow
func NewInboundFlow(
	memberRepo repository.MemberRepository,
	reactions ReactionFlow,
	broadcasts BroadcastFlow,
	roster RosterFlow,
	summaries SummaryFlow,
	logger *log.Logger,
) InboundFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &InboundFlowImpl{
		memberRepo: memberRepo,
		reactions:  reactions,
		broadcasts: broadcasts,
		roster:     roster,
		summaries:  summaries,
		logger:     logger,
	}
}

// HandleInbound classifies and processes one inbound message. A single
// message can never crash the process: unexpected errors are caught here,
// logged with context, and answered with a generic reply.
func (f *InboundFlowImpl) HandleInbound(ctx context.Context, req *dto.InboundMessageRequest, metadata *ClientMetadata) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Printf("inbound from %s: panic: %v", req.From, r)
			reply = unavailableReply
		}
	}()

	phone := utils.NormalizePhone(req.From)
	sender, err := f.memberRepo.ByPhone(ctx, phone)
	if err != nil {
		f.logger.Printf("inbound from %s: member lookup failed: %v", phone, err)
		return unavailableReply
	}
	if sender == nil {
		return notMemberReply
	}

	// Reaction detection runs first and must complete before any broadcast
	// decision: a message conclusively identified as a reaction is never
	// broadcast, whatever else it looks like.
	handled, err := f.reactions.HandleReaction(ctx, sender, req.Body)
	if err != nil {
		f.logger.Printf("inbound from %s: reaction handling failed: %v", phone, err)
	}
	if handled {
		return ""
	}

	if sender.IsAdmin && strings.HasPrefix(strings.TrimSpace(req.Body), "/") {
		return f.handleCommand(ctx, sender, req.Body)
	}

	confirmation, err := f.broadcasts.Broadcast(ctx, sender, req.Body, req.Attachments, metadata)
	if err != nil {
		switch {
		case IsMemberInactive(err):
			return notMemberReply
		case IsEmptyBroadcastBody(err):
			return "" // nothing to relay
		case IsNoActiveRecipients(err):
			f.logger.Printf("inbound from %s: no active recipients", phone)
			return ""
		default:
			f.logger.Printf("inbound from %s: broadcast failed: %v", phone, err)
			return unavailableReply
		}
	}
	return confirmation
}

// handleCommand dispatches admin slash commands
func (f *InboundFlowImpl) handleCommand(ctx context.Context, sender *models.Member, body string) string {
	fields := strings.Fields(strings.TrimSpace(body))
	if len(fields) == 0 {
		return commandUsage()
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]

	var reply string
	var err error
	switch command {
	case "/add":
		phone, rest := splitPhoneArgs(args)
		if phone == "" {
			err = ErrCommandPhoneNeeded
			break
		}
		reply, err = f.roster.AddMember(ctx, phone, strings.Join(rest, " "))
	case "/remove":
		phone, _ := splitPhoneArgs(args)
		if phone == "" {
			err = ErrCommandPhoneNeeded
			break
		}
		reply, err = f.roster.RemoveMember(ctx, phone)
	case "/promote":
		phone, _ := splitPhoneArgs(args)
		if phone == "" {
			err = ErrCommandPhoneNeeded
			break
		}
		reply, err = f.roster.PromoteMember(ctx, phone)
	case "/list":
		reply, err = f.roster.ListMembers(ctx)
	case "/summary":
		var result *SummaryResult
		result, err = f.summaries.RunSummary(ctx)
		if err == nil {
			if result.Sent {
				reply = "Summary sent."
			} else {
				reply = "No pending reactions to summarize."
			}
		}
	default:
		return commandUsage()
	}

	if err != nil {
		switch {
		case IsMemberNotFound(err):
			return "No member with that number."
		case IsMemberAlreadyExists(err):
			return "That number is already a member."
		case err == ErrCommandPhoneNeeded:
			return commandUsage()
		default:
			f.logger.Printf("command %s from %s failed: %v", command, sender.Phone, err)
			return unavailableReply
		}
	}
	return reply
}

// splitPhoneArgs rejoins the leading run of phone-shaped tokens so formatted
// numbers like "(555) 000-0002" survive whitespace splitting; the remaining
// tokens are the name
func splitPhoneArgs(args []string) (string, []string) {
	i := 0
	for ; i < len(args); i++ {
		if !isPhoneToken(args[i]) {
			break
		}
	}
	if i == 0 {
		return "", args
	}
	return strings.Join(args[:i], " "), args[i:]
}

func isPhoneToken(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune("+()-.", r):
		default:
			return false
		}
	}
	return hasDigit
}

func commandUsage() string {
	return "Commands: /add <phone> [name], /remove <phone>, /promote <phone>, /list, /summary"
}
