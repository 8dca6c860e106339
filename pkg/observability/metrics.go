// Package observability provides Prometheus instrumentation for the engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for processed events.
const (
	OutcomeApplied      = "applied"
	OutcomeInvalidInput = "invalid_input"
	OutcomeInvalidField = "invalid_field"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	EventsProcessed       *prometheus.CounterVec
	Transitions           prometheus.Counter
	ConversationsStarted  prometheus.Counter
	ConversationsFinished *prometheus.CounterVec
	EventDuration         prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "persona",
			Name:      "events_processed_total",
			Help:      "Events processed, labeled by outcome.",
		}, []string{"outcome"}),
		Transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "persona",
			Name:      "transitions_total",
			Help:      "State transitions applied.",
		}),
		ConversationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "persona",
			Name:      "conversations_started_total",
			Help:      "Conversations started.",
		}),
		ConversationsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "persona",
			Name:      "conversations_ended_total",
			Help:      "Conversations ended, labeled by final status.",
		}, []string{"status"}),
		EventDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "persona",
			Name:      "event_duration_seconds",
			Help:      "Wall time of ProcessEvent calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.EventsProcessed,
		m.Transitions,
		m.ConversationsStarted,
		m.ConversationsFinished,
		m.EventDuration,
	)
	return m
}
