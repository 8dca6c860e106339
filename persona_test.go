package persona_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personakit/persona"
	"github.com/personakit/persona/pkg/adapters/memory"
	"github.com/personakit/persona/pkg/domain"
)

var startedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// capturePresenter records every view handed to the presentation port.
type capturePresenter struct {
	mu    sync.Mutex
	views []*domain.ResolvedView
}

func (p *capturePresenter) Present(_ context.Context, _ string, view *domain.ResolvedView) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = append(p.views, view)
	return nil
}

func (p *capturePresenter) states() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.views))
	for i, v := range p.views {
		out[i] = v.StateID
	}
	return out
}

type fixture struct {
	engine    *persona.Engine
	presenter *capturePresenter
	personaID string
}

func newFixture(t *testing.T, opts ...persona.Option) *fixture {
	t.Helper()

	seq := 0
	presenter := &capturePresenter{}
	opts = append([]persona.Option{
		persona.WithClock(func() time.Time { return startedAt }),
		persona.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
		persona.WithPresenter(presenter),
	}, opts...)
	engine := persona.New(memory.NewPersonaStore(), memory.NewConversationStore(), opts...)

	graph := domain.StateGraph{
		InitialState: "welcome",
		States:       []string{"welcome", "ask_name", "done"},
		Transitions: []domain.Transition{
			{From: "welcome", Event: "START", To: "ask_name"},
			{From: "ask_name", Event: "TEXT", To: "done", Assign: []domain.Assignment{
				{Field: "name", Spec: domain.AssignSpec{Kind: domain.AssignPayload, Path: "text"}},
			}},
		},
	}
	schema := domain.FormSchema{
		{ID: "name", Type: domain.FieldString, Validation: &domain.Validation{Required: true, MinLength: 2}},
	}
	views := domain.ViewMap{Nodes: []domain.ViewNode{
		{StateID: "welcome", Components: []domain.ComponentDescriptor{{Type: domain.ComponentMessage, Properties: map[string]any{"text": "Welcome!"}}}},
		{StateID: "ask_name", Components: []domain.ComponentDescriptor{{Type: domain.ComponentMessage, Properties: map[string]any{"text": "Name?"}}}},
		{StateID: "done", Components: []domain.ComponentDescriptor{{Type: domain.ComponentMessage, Properties: map[string]any{"text": "Thanks, {{name}}!"}}}},
	}}

	id, err := engine.DefinePersona(context.Background(), "onboarding", graph, schema, views)
	require.NoError(t, err)

	return &fixture{engine: engine, presenter: presenter, personaID: id}
}

func TestDefinePersonaRejectsInvalid(t *testing.T) {
	engine := persona.New(memory.NewPersonaStore(), memory.NewConversationStore())

	_, err := engine.DefinePersona(context.Background(), "", domain.StateGraph{}, nil, domain.ViewMap{})

	var defErr *domain.DefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Contains(t, defErr.Reasons, "persona name is required")

	ids, err := engine.Personas().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStartConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.engine.StartConversation(ctx, f.personaID, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, "welcome", view.StateID)
	assert.Equal(t, "Welcome!", view.Components[0].Properties["text"])
	assert.Equal(t, []string{"welcome"}, f.presenter.states())

	conv, err := f.engine.GetConversation(ctx, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, conv.Status)
	assert.Equal(t, startedAt, conv.CreatedAt)
}

func TestStartConversationUnknownPersona(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.StartConversation(context.Background(), "ghost", "chan-1")
	assert.ErrorIs(t, err, domain.ErrPersonaNotFound)
}

func TestStartConversationReplacesActive(t *testing.T) {
	ended := make([]domain.Status, 0, 2)
	f := newFixture(t, persona.WithLifecycleHooks(domain.LifecycleHooks{
		OnConversationEnd: func(_ context.Context, ev *domain.ConversationEvent) {
			ended = append(ended, ev.Status)
		},
	}))
	ctx := context.Background()

	_, err := f.engine.StartConversation(ctx, f.personaID, "chan-1")
	require.NoError(t, err)
	first, err := f.engine.GetConversation(ctx, "chan-1")
	require.NoError(t, err)

	_, err = f.engine.StartConversation(ctx, f.personaID, "chan-1")
	require.NoError(t, err)
	second, err := f.engine.GetConversation(ctx, "chan-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []domain.Status{domain.StatusCancelled}, ended)
}

func TestProcessEventJourney(t *testing.T) {
	var transitions []*domain.TransitionEvent
	f := newFixture(t, persona.WithLifecycleHooks(domain.LifecycleHooks{
		OnTransition: func(_ context.Context, ev *domain.TransitionEvent) {
			transitions = append(transitions, ev)
		},
	}))
	ctx := context.Background()

	_, err := f.engine.StartConversation(ctx, f.personaID, "chan-1")
	require.NoError(t, err)

	result, err := f.engine.ProcessEvent(ctx, "chan-1", "START", nil)
	require.NoError(t, err)
	assert.False(t, result.Finished)
	assert.Equal(t, "ask_name", result.View.StateID)

	result, err = f.engine.ProcessEvent(ctx, "chan-1", "TEXT", map[string]any{"text": "Ada"})
	require.NoError(t, err)
	assert.True(t, result.Finished)
	assert.Equal(t, "Thanks, Ada!", result.View.Components[0].Properties["text"])

	require.Len(t, transitions, 2)
	assert.Equal(t, "welcome", transitions[0].FromStateID)
	assert.Equal(t, "ask_name", transitions[0].ToStateID)
	assert.True(t, transitions[1].Finished)

	assert.Equal(t, []string{"welcome", "ask_name", "done"}, f.presenter.states())

	// The finished conversation released the channel.
	_, err = f.engine.GetConversation(ctx, "chan-1")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestProcessEventRecoverableErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StartConversation(ctx, f.personaID, "chan-1")
	require.NoError(t, err)

	t.Run("unknown event", func(t *testing.T) {
		_, err := f.engine.ProcessEvent(ctx, "chan-1", "NONSENSE", nil)
		assert.ErrorIs(t, err, domain.ErrNoApplicableTransition)
		assert.True(t, domain.IsRecoverable(err))
	})

	t.Run("field validation", func(t *testing.T) {
		_, err := f.engine.ProcessEvent(ctx, "chan-1", "START", nil)
		require.NoError(t, err)

		_, err = f.engine.ProcessEvent(ctx, "chan-1", "TEXT", map[string]any{"text": "A"})
		var fieldErr *domain.FieldValidationError
		require.ErrorAs(t, err, &fieldErr)
		assert.True(t, domain.IsRecoverable(err))

		// The rejection changed nothing; a valid retry still lands.
		result, err := f.engine.ProcessEvent(ctx, "chan-1", "TEXT", map[string]any{"text": "Ada"})
		require.NoError(t, err)
		assert.True(t, result.Finished)
	})
}

func TestProcessEventNoActiveConversation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ProcessEvent(context.Background(), "chan-1", "START", nil)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestFinishAndCancelConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StartConversation(ctx, f.personaID, "chan-1")
	require.NoError(t, err)
	require.NoError(t, f.engine.FinishConversation(ctx, "chan-1"))
	assert.ErrorIs(t, f.engine.FinishConversation(ctx, "chan-1"), domain.ErrConversationNotFound)

	_, err = f.engine.StartConversation(ctx, f.personaID, "chan-2")
	require.NoError(t, err)
	require.NoError(t, f.engine.CancelConversation(ctx, "chan-2"))
	_, err = f.engine.GetConversation(ctx, "chan-2")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestConversationsOnDifferentChannelsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StartConversation(ctx, f.personaID, "chan-1")
	require.NoError(t, err)
	_, err = f.engine.StartConversation(ctx, f.personaID, "chan-2")
	require.NoError(t, err)

	_, err = f.engine.ProcessEvent(ctx, "chan-1", "START", nil)
	require.NoError(t, err)

	conv1, err := f.engine.GetConversation(ctx, "chan-1")
	require.NoError(t, err)
	conv2, err := f.engine.GetConversation(ctx, "chan-2")
	require.NoError(t, err)

	assert.Equal(t, "ask_name", conv1.CurrentStateID)
	assert.Equal(t, "welcome", conv2.CurrentStateID)
}
