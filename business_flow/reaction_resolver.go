package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"

	"github.com/kairan-app/kairan/config"
	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/repository"
	"github.com/kairan-app/kairan/utils"
	"github.com/redis/go-redis/v9"
)

// Resolution is the outcome of matching a quoted fragment to a prior broadcast
type Resolution struct {
	Message    *models.BroadcastMessage
	Method     models.ResolutionMethod
	Confidence float64
	Hash       string
}

// ReactionResolver matches a reaction's quoted fragment against recent
// broadcasts using tiered matching: exact hash, then fuzzy similarity,
// then keyword overlap. Device-generated quoting is lossy (truncation,
// re-encoding, sender-name prefixing), so the tiers trade precision for
// recall in a controlled order.
type ReactionResolver struct {
	messageRepo repository.BroadcastMessageRepository
	rc          *redis.Client
	cacheConfig *config.CacheConfig
	cfg         *config.ReactionConfig
}

// NewReactionResolver creates a new reaction resolver. rc may be nil when
// caching is disabled.
func NewReactionResolver(
	messageRepo repository.BroadcastMessageRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	cfg *config.ReactionConfig,
) *ReactionResolver {
	return &ReactionResolver{
		messageRepo: messageRepo,
		rc:          rc,
		cacheConfig: cacheConfig,
		cfg:         cfg,
	}
}

// NormalizeFragment canonicalizes quoted text for matching: lowercase,
// collapsed whitespace, straight quotes, punctuation outside .,!?- removed
func NormalizeFragment(s string) string {
	s = strings.ToLower(s)
	replacer := strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
	s = replacer.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			switch r {
			case '.', ',', '!', '?', '-':
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ContentHash returns the hex digest used for exact-tier matching
func ContentHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Resolve finds the broadcast a quoted fragment refers to, or nil when no
// tier produces a match. Search is bounded to the configured window; older
// messages are not reaction targets.
func (r *ReactionResolver) Resolve(ctx context.Context, fragment string) (*Resolution, error) {
	variants := r.fragmentVariants(fragment)
	if len(variants) == 0 {
		return nil, nil
	}

	since := utils.UTCNow().Add(-r.cfg.MatchWindow)
	candidates, err := r.messageRepo.ListRecent(ctx, since, 0)
	if err != nil {
		return nil, NewBusinessError("REACTION_CANDIDATES_FAILED", "failed to load candidate messages", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	type normalizedCandidate struct {
		message *models.BroadcastMessage
		text    string
		hash    string
	}
	normalized := make([]normalizedCandidate, 0, len(candidates))
	for _, c := range candidates {
		text := NormalizeFragment(c.OriginalText)
		if text == "" {
			continue
		}
		normalized = append(normalized, normalizedCandidate{message: c, text: text, hash: ContentHash(text)})
	}

	// Tier 1: exact content hash
	for _, v := range variants {
		hash := ContentHash(v)
		if msg := r.cachedMessage(ctx, hash, candidates); msg != nil {
			return &Resolution{Message: msg, Method: models.ResolutionMethodExact, Confidence: 1.0, Hash: hash}, nil
		}
		for _, c := range normalized {
			if c.hash == hash {
				r.cacheHash(ctx, hash, c.message.ID)
				return &Resolution{Message: c.message, Method: models.ResolutionMethodExact, Confidence: 1.0, Hash: hash}, nil
			}
		}
	}

	// Tier 2: best fuzzy similarity above threshold
	var bestMsg *models.BroadcastMessage
	var bestRatio float64
	var bestHash string
	for _, v := range variants {
		for _, c := range normalized {
			ratio := similarityRatio(v, c.text)
			if ratio > bestRatio {
				bestRatio = ratio
				bestMsg = c.message
				bestHash = ContentHash(v)
			}
		}
	}
	if bestMsg != nil && bestRatio > r.cfg.FuzzyThreshold {
		return &Resolution{Message: bestMsg, Method: models.ResolutionMethodFuzzy, Confidence: bestRatio, Hash: bestHash}, nil
	}

	// Tier 3: keyword overlap, only for short fragments
	for _, v := range variants {
		if len(v) >= r.cfg.KeywordMaxFragmentLen {
			continue
		}
		words := significantWords(v, r.cfg.KeywordMinWordLen)
		if len(words) == 0 {
			continue
		}
		required := len(words)
		if required > 2 {
			required = 2
		}
		for _, c := range normalized {
			hits := 0
			for _, w := range words {
				if strings.Contains(c.text, w) {
					hits++
				}
			}
			if hits >= required {
				return &Resolution{
					Message:    c.message,
					Method:     models.ResolutionMethodKeyword,
					Confidence: r.cfg.KeywordConfidence,
					Hash:       ContentHash(v),
				}, nil
			}
		}
	}

	return nil, nil
}

// fragmentVariants returns the normalized fragment plus, when it contains a
// colon, the normalized substring after the last colon. Devices that quote
// as "SENDER: message" need the second form.
func (r *ReactionResolver) fragmentVariants(fragment string) []string {
	var variants []string
	full := NormalizeFragment(fragment)
	if full != "" {
		variants = append(variants, full)
	}
	if idx := strings.LastIndex(fragment, ":"); idx >= 0 && idx < len(fragment)-1 {
		tail := NormalizeFragment(fragment[idx+1:])
		if tail != "" && tail != full {
			variants = append(variants, tail)
		}
	}
	return variants
}

func (r *ReactionResolver) cacheKey(hash string) string {
	return r.cacheConfig.RedisPrefix + "reaction:hash:" + hash
}

// cachedMessage resolves a content hash through the cache, accepting the
// hit only when the message is still inside the candidate window
func (r *ReactionResolver) cachedMessage(ctx context.Context, hash string, candidates []*models.BroadcastMessage) *models.BroadcastMessage {
	if r.rc == nil || r.cacheConfig == nil || !r.cacheConfig.Enabled {
		return nil
	}
	val, err := r.rc.Get(ctx, r.cacheKey(hash)).Result()
	if err != nil {
		return nil
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return nil
	}
	for _, c := range candidates {
		if c.ID == uint(id) {
			return c
		}
	}
	return nil
}

func (r *ReactionResolver) cacheHash(ctx context.Context, hash string, messageID uint) {
	if r.rc == nil || r.cacheConfig == nil || !r.cacheConfig.Enabled {
		return
	}
	_ = r.rc.Set(ctx, r.cacheKey(hash), strconv.FormatUint(uint64(messageID), 10), r.cfg.MatchWindow).Err()
}

// similarityRatio is the normalized edit-distance ratio (maxLen - dist) / maxLen
func similarityRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	ar := []rune(a)
	br := []rune(b)
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein(ar, br)
	return float64(maxLen-dist) / float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// significantWords splits a normalized fragment into words longer than the
// configured minimum, with punctuation trimmed
func significantWords(s string, minLen int) []string {
	var words []string
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,!?-")
		if len(w) > minLen {
			words = append(words, w)
		}
	}
	return words
}
