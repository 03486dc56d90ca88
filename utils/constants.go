package utils

import (
	"time"
)

// Reaction matching constants
const (
	// FuzzyMatchThreshold is the minimum normalized edit-distance similarity
	// for the fuzzy tier to accept a candidate
	FuzzyMatchThreshold = 0.6

	// KeywordMatchConfidence is the fixed confidence assigned to keyword-tier matches
	KeywordMatchConfidence = 0.6

	// KeywordMaxFragmentLen bounds the fragment length for which the keyword
	// tier is attempted
	KeywordMaxFragmentLen = 50

	// KeywordMinWordLen filters out short words before keyword matching
	KeywordMinWordLen = 2

	// ReactionMatchWindow bounds how far back a reaction can target a broadcast
	ReactionMatchWindow = 7 * 24 * time.Hour
)

// Delivery constants
const (
	// DeliveryMaxAttempts is the default bounded retry count per recipient
	DeliveryMaxAttempts = 3

	// DeliveryBackoffBase is the base for linear backoff between attempts
	DeliveryBackoffBase = 2 * time.Second
)

// Summary scheduling constants
const (
	// SummaryCheckInterval is how often the silence check runs
	SummaryCheckInterval = 5 * time.Minute

	// SummarySilenceThreshold is how quiet the group must be before a digest fires
	SummarySilenceThreshold = 30 * time.Minute

	// SummaryMinPendingReactions is the minimum unprocessed reaction count
	// before the silence check produces a digest
	SummaryMinPendingReactions = 3
)
