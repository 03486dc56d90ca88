package businessflow

import (
	"context"
	"log"

	"github.com/kairan-app/kairan/config"
	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/repository"
	"github.com/kairan-app/kairan/utils"
	"github.com/redis/go-redis/v9"
)

// ReactionFlow detects reactions in inbound texts and stores them for
// later summarization. A text conclusively identified as a reaction is
// absorbed: it is never broadcast and the reactor gets no reply, whether
// or not the target message could be resolved.
type ReactionFlow interface {
	HandleReaction(ctx context.Context, sender *models.Member, text string) (bool, error)
}

// ReactionFlowImpl implements ReactionFlow
type ReactionFlowImpl struct {
	resolver     *ReactionResolver
	reactionRepo repository.MessageReactionRepository
	rc           *redis.Client
	cacheConfig  *config.CacheConfig
	logger       *log.Logger
}

// NewReactionFlow creates a new reaction flow. rc may be nil when caching
// is disabled.
func NewReactionFlow(
	resolver *ReactionResolver,
	reactionRepo repository.MessageReactionRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	logger *log.Logger,
) ReactionFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &ReactionFlowImpl{
		resolver:     resolver,
		reactionRepo: reactionRepo,
		rc:           rc,
		cacheConfig:  cacheConfig,
		logger:       logger,
	}
}

// HandleReaction classifies, resolves, and stores a reaction. The boolean
// reports whether the text was a reaction (and therefore must not be
// broadcast); the error covers storage problems only.
func (f *ReactionFlowImpl) HandleReaction(ctx context.Context, sender *models.Member, text string) (bool, error) {
	match, ok := MatchReaction(text)
	if !ok {
		return false, nil
	}

	reactionType, known := ResolveToken(match.Token)
	if !known {
		// MatchReaction only returns known tokens; kept as a guard
		return false, nil
	}

	resolution, err := f.resolver.Resolve(ctx, match.QuotedFragment)
	if err != nil {
		f.logger.Printf("reaction from %s: resolve failed: %v", sender.Phone, err)
		return true, nil
	}
	if resolution == nil {
		reactionsDroppedTotal.WithLabelValues("unresolved").Inc()
		f.logger.Printf("reaction from %s: no matching broadcast for %q", sender.Phone, match.QuotedFragment)
		return true, nil
	}

	existing, err := f.reactionRepo.ByDedupeKey(ctx, resolution.Message.ID, sender.Phone, reactionType)
	if err != nil {
		return true, NewBusinessError("REACTION_LOOKUP_FAILED", "failed to check reaction dedupe key", err)
	}
	if existing != nil {
		reactionsDroppedTotal.WithLabelValues("duplicate").Inc()
		return true, nil
	}

	reaction := &models.MessageReaction{
		MessageID:        resolution.Message.ID,
		MessageHash:      resolution.Hash,
		ReactorPhone:     sender.Phone,
		ReactorName:      displayName(sender),
		ReactionType:     reactionType,
		Emoji:            TokenGlyph(match.Token, reactionType),
		RawText:          text,
		DeviceCategory:   match.DeviceCategory,
		ResolutionMethod: resolution.Method,
		Confidence:       resolution.Confidence,
		Processed:        false,
		CreatedAt:        utils.UTCNow(),
	}
	if err := f.reactionRepo.Save(ctx, reaction); err != nil {
		return true, NewBusinessError("REACTION_PERSIST_FAILED", "failed to store reaction", err)
	}

	reactionsTotal.WithLabelValues(reactionType.String(), resolution.Method.String()).Inc()
	f.recordUsage(ctx, reactionType)
	return true, nil
}

// recordUsage bumps a lightweight per-type usage counter in the cache
func (f *ReactionFlowImpl) recordUsage(ctx context.Context, reactionType models.ReactionType) {
	if f.rc == nil || f.cacheConfig == nil || !f.cacheConfig.Enabled {
		return
	}
	key := f.cacheConfig.RedisPrefix + "reaction:usage:" + reactionType.String()
	if err := f.rc.Incr(ctx, key).Err(); err != nil {
		f.logger.Printf("reaction usage counter %s: %v", key, err)
	}
}
