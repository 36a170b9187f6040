package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InviteSends records invite dispatch outcomes (sent|send_failed|quota_exceeded|invalid_contact).
	InviteSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumo_invite_sends_total",
			Help: "Total number of invitation send attempts by outcome",
		},
		[]string{"outcome"},
	)

	// SendRetries counts individual channel attempts that failed and were retried.
	SendRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lumo_invite_send_retries_total",
			Help: "Total number of retried channel attempts",
		},
	)

	// LifecycleTransitions counts funnel transitions (clicked|installed|expired|reminded).
	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumo_invite_lifecycle_transitions_total",
			Help: "Total number of invitation lifecycle transitions",
		},
		[]string{"transition"},
	)

	// RewardsGranted counts reward transactions by reason.
	RewardsGranted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumo_rewards_granted_total",
			Help: "Total number of reward transactions appended",
		},
		[]string{"reason"},
	)

	// SuggestionRefreshDuration measures suggestion ranking latency.
	SuggestionRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lumo_suggestion_refresh_seconds",
			Help:    "Duration of contact normalisation and suggestion ranking",
			Buckets: prometheus.DefBuckets,
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lumo_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
