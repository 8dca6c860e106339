package observability_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personakit/persona"
	"github.com/personakit/persona/pkg/adapters/memory"
	"github.com/personakit/persona/pkg/domain"
	"github.com/personakit/persona/pkg/observability"
)

func TestEngineInstrumentation(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.New(registry)
	engine := persona.New(memory.NewPersonaStore(), memory.NewConversationStore(),
		persona.WithMetrics(metrics))
	ctx := context.Background()

	graph := domain.StateGraph{
		InitialState: "start",
		States:       []string{"start", "done"},
		Transitions:  []domain.Transition{{From: "start", Event: "GO", To: "done"}},
	}
	views := domain.ViewMap{Nodes: []domain.ViewNode{
		{StateID: "start", Components: []domain.ComponentDescriptor{{Type: domain.ComponentMessage, Properties: map[string]any{"text": "hi"}}}},
		{StateID: "done", Components: []domain.ComponentDescriptor{{Type: domain.ComponentMessage, Properties: map[string]any{"text": "bye"}}}},
	}}
	personaID, err := engine.DefinePersona(ctx, "greeter", graph, nil, views)
	require.NoError(t, err)

	_, err = engine.StartConversation(ctx, personaID, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConversationsStarted))

	_, err = engine.ProcessEvent(ctx, "chan-1", "BOGUS", nil)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsProcessed.WithLabelValues(observability.OutcomeInvalidInput)))

	result, err := engine.ProcessEvent(ctx, "chan-1", "GO", nil)
	require.NoError(t, err)
	require.True(t, result.Finished)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsProcessed.WithLabelValues(observability.OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConversationsFinished.WithLabelValues(string(domain.StatusFinished))))

	// A second registration on the same registry must panic via MustRegister.
	assert.Panics(t, func() { observability.New(registry) })
}
