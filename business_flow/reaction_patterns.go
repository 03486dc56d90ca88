package businessflow

import (
	"regexp"
	"strings"

	"github.com/kairan-app/kairan/models"
)

// ReactionMatch is the result of classifying an inbound text as a reaction
type ReactionMatch struct {
	Token          string
	QuotedFragment string
	DeviceCategory string
}

// reactionPattern pairs a device category with a compiled pattern and an
// extractor for its capture groups. The table below is evaluated in order
// and the first match wins; order encodes real-world ambiguity resolution
// between device formats, so changing it changes behavior.
type reactionPattern struct {
	category string
	re       *regexp.Regexp
	extract  func(groups []string) (token, quote string, ok bool)
}

// twoPart reads (token, quote) captures
func twoPart(groups []string) (string, string, bool) {
	if len(groups) < 3 {
		return "", "", false
	}
	return groups[1], groups[2], true
}

// threePart reads (token, sender, message) captures where the quote embeds
// "SENDER: message"; only the trailing message segment is the quote.
func threePart(groups []string) (string, string, bool) {
	if len(groups) < 4 {
		return "", "", false
	}
	return groups[1], groups[3], true
}

var reactionPatterns = []reactionPattern{
	// Generic: a lone token (emoji or word) followed by "to" and a quote
	{category: "generic", re: regexp.MustCompile(`^\s*(\S+)\s+to\s+["\x{201C}]([^:"\x{201D}]+):\s*(.+?)["\x{201D}]\s*$`), extract: threePart},
	{category: "generic", re: regexp.MustCompile(`^\s*(\S+)\s+to\s+["\x{201C}](.+?)["\x{201D}]\s*$`), extract: twoPart},
	// Android-style: Reacted <emoji> to "quote"
	{category: "android", re: regexp.MustCompile(`(?i)^reacted\s+(\S+)\s+to\s+["\x{201C}]([^:"\x{201D}]+):\s*(.+?)["\x{201D}]\s*$`), extract: threePart},
	{category: "android", re: regexp.MustCompile(`(?i)^reacted\s+(\S+)\s+to\s+["\x{201C}](.+?)["\x{201D}]\s*$`), extract: twoPart},
	// iOS tapback verbs, with and without embedded "SENDER: message" quoting
	{category: "ios", re: regexp.MustCompile(`(?i)^(loved|liked|disliked|laughed at|emphasized|questioned)\s+["\x{201C}]([^:"\x{201D}]+):\s*(.+?)["\x{201D}]\s*$`), extract: threePart},
	{category: "ios", re: regexp.MustCompile(`(?i)^(loved|liked|disliked|laughed at|emphasized|questioned)\s+["\x{201C}](.+?)["\x{201D}]\s*$`), extract: twoPart},
	// Trailing-token quoting: "quote" <emoji>
	{category: "generic", re: regexp.MustCompile(`^\s*["\x{201C}](.+?)["\x{201D}]\s+(\S+)\s*$`), extract: func(groups []string) (string, string, bool) {
		if len(groups) < 3 {
			return "", "", false
		}
		return groups[2], groups[1], true
	}},
}

// verbTokens maps English reaction verbs to reaction types
var verbTokens = map[string]models.ReactionType{
	"loved":      models.ReactionTypeLove,
	"liked":      models.ReactionTypeLike,
	"disliked":   models.ReactionTypeDislike,
	"laughed at": models.ReactionTypeLaugh,
	"emphasized": models.ReactionTypeEmphasis,
	"questioned": models.ReactionTypeQuestion,
	"amen":       models.ReactionTypeAmen,
	"praise":     models.ReactionTypePraise,
	"praying":    models.ReactionTypePray,
}

// emojiTokens maps emoji glyphs to reaction types
var emojiTokens = map[string]models.ReactionType{
	"❤️": models.ReactionTypeLove,
	"❤":  models.ReactionTypeLove,
	"♥️": models.ReactionTypeLove,
	"😍": models.ReactionTypeLove,
	"🥰": models.ReactionTypeLove,
	"👍": models.ReactionTypeLike,
	"👎": models.ReactionTypeDislike,
	"😂": models.ReactionTypeLaugh,
	"🤣": models.ReactionTypeLaugh,
	"😆": models.ReactionTypeLaugh,
	"😮": models.ReactionTypeSurprise,
	"😲": models.ReactionTypeSurprise,
	"😯": models.ReactionTypeSurprise,
	"😱": models.ReactionTypeSurprise,
	"😢": models.ReactionTypeSad,
	"😭": models.ReactionTypeSad,
	"😞": models.ReactionTypeSad,
	"😠": models.ReactionTypeAngry,
	"😡": models.ReactionTypeAngry,
	"🙏": models.ReactionTypePray,
	"🙌": models.ReactionTypePraise,
	"‼️": models.ReactionTypeEmphasis,
	"❗": models.ReactionTypeEmphasis,
	"❓": models.ReactionTypeQuestion,
}

// ResolveToken maps a matched token (emoji glyph or English verb) to its
// reaction type. Unknown tokens mean the text is not a reaction.
func ResolveToken(token string) (models.ReactionType, bool) {
	trimmed := strings.TrimSpace(token)
	if t, ok := emojiTokens[trimmed]; ok {
		return t, true
	}
	if t, ok := verbTokens[strings.ToLower(trimmed)]; ok {
		return t, true
	}
	return "", false
}

// TokenGlyph returns the emoji to store for a matched token: the token
// itself when it is an emoji, otherwise the type's canonical glyph.
func TokenGlyph(token string, reactionType models.ReactionType) string {
	trimmed := strings.TrimSpace(token)
	if _, ok := emojiTokens[trimmed]; ok {
		return trimmed
	}
	return reactionType.Glyph()
}

// MatchReaction classifies an inbound text against the ordered pattern
// table. It is pure: no side effects, and it never fails — text that fits
// no pattern, or whose token is not a known reaction, is simply not a
// reaction.
func MatchReaction(text string) (*ReactionMatch, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	for _, p := range reactionPatterns {
		groups := p.re.FindStringSubmatch(trimmed)
		if groups == nil {
			continue
		}
		token, quote, ok := p.extract(groups)
		if !ok {
			continue
		}
		if _, known := ResolveToken(token); !known {
			continue
		}
		if strings.TrimSpace(quote) == "" {
			continue
		}
		return &ReactionMatch{
			Token:          token,
			QuotedFragment: quote,
			DeviceCategory: p.category,
		}, true
	}
	return nil, false
}
