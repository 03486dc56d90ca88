package businessflow

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/kairan-app/kairan/config"
	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/repository"
	"github.com/kairan-app/kairan/utils"
)

// SummaryResult reports one aggregation pass
type SummaryResult struct {
	Sent            bool
	ReactionCount   int
	MessagesCovered int
}

// SummaryFlow aggregates unprocessed reactions into a single digest
// broadcast. Reactions are marked processed before the digest is handed to
// the broadcaster, so a send failure cannot cause reprocessing loops.
type SummaryFlow interface {
	RunSummary(ctx context.Context) (*SummaryResult, error)
	RunIfQuiet(ctx context.Context) (*SummaryResult, error)
}

// SummaryFlowImpl implements SummaryFlow
type SummaryFlowImpl struct {
	reactionRepo repository.MessageReactionRepository
	messageRepo  repository.BroadcastMessageRepository
	broadcaster  BroadcastFlow
	cfg          *config.SummaryConfig
	logger       *log.Logger
}

// NewSummaryFlow creates a new summary flow
func NewSummaryFlow(
	reactionRepo repository.MessageReactionRepository,
	messageRepo repository.BroadcastMessageRepository,
	broadcaster BroadcastFlow,
	cfg *config.SummaryConfig,
	logger *log.Logger,
) SummaryFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &SummaryFlowImpl{
		reactionRepo: reactionRepo,
		messageRepo:  messageRepo,
		broadcaster:  broadcaster,
		cfg:          cfg,
		logger:       logger,
	}
}

// RunSummary aggregates all unprocessed reactions and broadcasts the
// digest unconditionally. A run with nothing pending sends nothing, which
// makes back-to-back runs idempotent.
func (f *SummaryFlowImpl) RunSummary(ctx context.Context) (*SummaryResult, error) {
	pending, err := f.reactionRepo.ListUnprocessed(ctx)
	if err != nil {
		return nil, NewBusinessError("SUMMARY_LOAD_FAILED", "failed to load unprocessed reactions", err)
	}
	if len(pending) == 0 {
		return &SummaryResult{}, nil
	}

	digest, covered, err := f.renderDigest(ctx, pending)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(pending))
	for _, r := range pending {
		ids = append(ids, r.ID)
	}
	// Marking happens before the send so partial delivery failure cannot
	// double-report the same reactions on the next tick.
	if err := f.reactionRepo.MarkProcessed(ctx, ids); err != nil {
		return nil, NewBusinessError("SUMMARY_MARK_FAILED", "failed to mark reactions processed", err)
	}

	if _, err := f.broadcaster.BroadcastSystem(ctx, digest); err != nil {
		f.logger.Printf("summary: digest broadcast failed after marking %d reactions: %v", len(ids), err)
		return &SummaryResult{Sent: false, ReactionCount: len(ids), MessagesCovered: covered}, nil
	}

	summariesTotal.Inc()
	f.logger.Printf("summary: sent digest covering %d reactions on %d messages", len(ids), covered)
	return &SummaryResult{Sent: true, ReactionCount: len(ids), MessagesCovered: covered}, nil
}

// RunIfQuiet runs a summary only when the group has been silent long
// enough and enough reactions are pending. This avoids summarizing a
// single stray reaction mid-conversation while not waiting indefinitely
// during a lull.
func (f *SummaryFlowImpl) RunIfQuiet(ctx context.Context) (*SummaryResult, error) {
	count, err := f.reactionRepo.CountUnprocessed(ctx)
	if err != nil {
		return nil, NewBusinessError("SUMMARY_COUNT_FAILED", "failed to count unprocessed reactions", err)
	}
	if count < int64(f.cfg.MinPendingReactions) {
		return &SummaryResult{}, nil
	}

	latest, err := f.messageRepo.Latest(ctx)
	if err != nil {
		return nil, NewBusinessError("SUMMARY_LATEST_FAILED", "failed to load latest broadcast", err)
	}
	if latest != nil && !latest.CreatedAt.IsZero() {
		if utils.UTCNow().Sub(latest.CreatedAt) < f.cfg.SilenceThreshold {
			return &SummaryResult{}, nil
		}
	}
	return f.RunSummary(ctx)
}

// renderDigest groups reactions by target message, then by type, and
// renders one preview line per message followed by one line per type
func (f *SummaryFlowImpl) renderDigest(ctx context.Context, pending []*models.MessageReaction) (string, int, error) {
	byMessage := make(map[uint][]*models.MessageReaction)
	var messageOrder []uint
	for _, r := range pending {
		if _, seen := byMessage[r.MessageID]; !seen {
			messageOrder = append(messageOrder, r.MessageID)
		}
		byMessage[r.MessageID] = append(byMessage[r.MessageID], r)
	}

	var lines []string
	lines = append(lines, "Reaction summary:")
	for _, messageID := range messageOrder {
		reactions := byMessage[messageID]

		message, err := f.messageRepo.ByID(ctx, messageID)
		if err != nil {
			return "", 0, NewBusinessError("SUMMARY_MESSAGE_LOOKUP_FAILED", "failed to load reacted message", err)
		}
		preview := "(deleted message)"
		sender := ""
		if message != nil {
			preview = truncatePreview(message.OriginalText, 60)
			sender = message.SenderName
		}
		lines = append(lines, fmt.Sprintf("\"%s\" - %s", preview, sender))

		byType := make(map[models.ReactionType][]*models.MessageReaction)
		var typeOrder []models.ReactionType
		for _, r := range reactions {
			if _, seen := byType[r.ReactionType]; !seen {
				typeOrder = append(typeOrder, r.ReactionType)
			}
			byType[r.ReactionType] = append(byType[r.ReactionType], r)
		}
		sort.Slice(typeOrder, func(i, j int) bool {
			return len(byType[typeOrder[i]]) > len(byType[typeOrder[j]])
		})

		for _, t := range typeOrder {
			lines = append(lines, fmt.Sprintf("  %s %s", t.Glyph(), reactorPhrase(byType[t])))
		}
	}
	return strings.Join(lines, "\n"), len(messageOrder), nil
}

// reactorPhrase names reactors: the name for one, both names for two, a
// count otherwise
func reactorPhrase(reactions []*models.MessageReaction) string {
	switch len(reactions) {
	case 1:
		return reactions[0].ReactorName
	case 2:
		return reactions[0].ReactorName + " and " + reactions[1].ReactorName
	default:
		return fmt.Sprintf("%d members", len(reactions))
	}
}
