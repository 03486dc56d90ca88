package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairan-app/kairan/models"
)

func TestMatchReactionFormats(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		token    string
		quote    string
		category string
	}{
		{
			name:     "generic emoji with quote",
			text:     `❤️ to "Potluck is at 6pm Saturday"`,
			token:    "❤️",
			quote:    "Potluck is at 6pm Saturday",
			category: "generic",
		},
		{
			name:     "android reacted prefix",
			text:     `Reacted 😂 to "That joke about the ladder"`,
			token:    "😂",
			quote:    "That joke about the ladder",
			category: "android",
		},
		{
			name:     "ios tapback verb",
			text:     `Loved "Potluck is at 6pm Saturday"`,
			token:    "Loved",
			quote:    "Potluck is at 6pm Saturday",
			category: "ios",
		},
		{
			name:     "ios verb with sender-prefixed quote",
			text:     `Laughed at "Mike: That joke about the ladder"`,
			token:    "Laughed at",
			quote:    "That joke about the ladder",
			category: "ios",
		},
		{
			name:     "generic with sender-prefixed quote",
			text:     `👍 to "Sarah: Meeting moved to Tuesday"`,
			token:    "👍",
			quote:    "Meeting moved to Tuesday",
			category: "generic",
		},
		{
			name:     "curly quotes",
			text:     "\U0001F64F to “Please pray for the Hendersons”",
			token:    "🙏",
			quote:    "Please pray for the Hendersons",
			category: "generic",
		},
		{
			name:     "trailing token",
			text:     `"Potluck is at 6pm Saturday" ❤️`,
			token:    "❤️",
			quote:    "Potluck is at 6pm Saturday",
			category: "generic",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			match, ok := MatchReaction(c.text)
			require.True(t, ok, "expected %q to match", c.text)
			assert.Equal(t, c.token, match.Token)
			assert.Equal(t, c.quote, match.QuotedFragment)
			assert.Equal(t, c.category, match.DeviceCategory)
		})
	}
}

func TestMatchReactionNonReactions(t *testing.T) {
	texts := []string{
		"",
		"Potluck is at 6pm Saturday",
		`I went to "the store" earlier`,       // unknown token before "to"
		`xyz to "Potluck is at 6pm Saturday"`, // unknown token
		`❤️ to ""`,                            // empty quote
		`Loved the sermon today`,              // verb without quote
		"Can someone bring chairs?",
	}
	for _, text := range texts {
		_, ok := MatchReaction(text)
		assert.False(t, ok, "expected %q not to match", text)
	}
}

func TestResolveToken(t *testing.T) {
	cases := []struct {
		token string
		want  models.ReactionType
	}{
		{"❤️", models.ReactionTypeLove},
		{"❤", models.ReactionTypeLove},
		{"😍", models.ReactionTypeLove},
		{"👍", models.ReactionTypeLike},
		{"👎", models.ReactionTypeDislike},
		{"🤣", models.ReactionTypeLaugh},
		{"😱", models.ReactionTypeSurprise},
		{"😭", models.ReactionTypeSad},
		{"😡", models.ReactionTypeAngry},
		{"🙏", models.ReactionTypePray},
		{"🙌", models.ReactionTypePraise},
		{"‼️", models.ReactionTypeEmphasis},
		{"❓", models.ReactionTypeQuestion},
		{"Loved", models.ReactionTypeLove},
		{"laughed at", models.ReactionTypeLaugh},
		{"Amen", models.ReactionTypeAmen},
	}
	for _, c := range cases {
		got, ok := ResolveToken(c.token)
		require.True(t, ok, "token %q", c.token)
		assert.Equal(t, c.want, got, "token %q", c.token)
	}

	_, ok := ResolveToken("banana")
	assert.False(t, ok)
	_, ok = ResolveToken("🍌")
	assert.False(t, ok)
}

func TestTokenGlyph(t *testing.T) {
	// Emoji tokens keep their own glyph, verbs fall back to the canonical one
	assert.Equal(t, "😍", TokenGlyph("😍", models.ReactionTypeLove))
	assert.Equal(t, "❤️", TokenGlyph("Loved", models.ReactionTypeLove))
	assert.Equal(t, "😂", TokenGlyph("laughed at", models.ReactionTypeLaugh))
}
