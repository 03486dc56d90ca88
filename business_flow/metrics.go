package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Broadcasts processed, partitioned by sender role
	broadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairan_broadcasts_total",
			Help: "Total number of broadcast messages processed",
		},
		[]string{"sender_role"},
	)

	// Per-recipient delivery outcomes
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairan_deliveries_total",
			Help: "Total number of per-recipient delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Stored reactions partitioned by type and resolution method
	reactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairan_reactions_total",
			Help: "Total number of stored reactions by type and resolution method",
		},
		[]string{"type", "method"},
	)

	// Reactions dropped before storage, by reason
	reactionsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairan_reactions_dropped_total",
			Help: "Total number of matched reactions dropped before storage",
		},
		[]string{"reason"},
	)

	// Digest broadcasts sent
	summariesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kairan_summaries_total",
			Help: "Total number of reaction digest broadcasts sent",
		},
	)

	// Fan-out wall time per broadcast
	broadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kairan_broadcast_duration_seconds",
			Help:    "Wall time spent fanning out one broadcast to all recipients",
			Buckets: prometheus.DefBuckets,
		},
	)
)
