// Package persona is a conversational bot engine. A persona definition
// (state graph + form schema + view map) describes a dialogue; the Engine
// advances live conversations through that graph in response to external
// events, resolving a presentation view after every step.
package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/personakit/persona/internal/logging"
	"github.com/personakit/persona/pkg/domain"
	"github.com/personakit/persona/pkg/observability"
	"github.com/personakit/persona/pkg/ports"
	"github.com/personakit/persona/pkg/session"
)

// Engine is the high-level entry point. It wires the domain core to the
// persistence and presentation ports and serializes all work per
// conversation through a session manager.
type Engine struct {
	personas  ports.PersonaStore
	sessions  *session.Manager
	presenter ports.Presenter
	locker    ports.DistributedLocker
	hooks     domain.LifecycleHooks
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPresenter sets the presentation collaborator that receives resolved
// views. Without one, views are only returned to the caller.
func WithPresenter(p ports.Presenter) Option {
	return func(e *Engine) {
		e.presenter = p
	}
}

// WithLocker enables distributed locking for multi-replica deployments.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides the id source, used in tests.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// New creates an Engine over the given stores.
func New(personas ports.PersonaStore, conversations ports.ConversationStore, opts ...Option) *Engine {
	e := &Engine{
		personas: personas,
		logger:   logging.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(conversations, sessionOpts...)
	return e
}

// EventResult is the outcome of a successfully processed event.
type EventResult struct {
	View     *domain.ResolvedView
	Finished bool
}

// DefinePersona validates and stores a persona definition, returning its
// generated id. On a *domain.DefinitionError nothing is persisted.
func (e *Engine) DefinePersona(ctx context.Context, name string, graph domain.StateGraph, schema domain.FormSchema, viewMap domain.ViewMap) (string, error) {
	def, err := domain.NewPersonaDefinition(e.newID(), name, graph, schema, viewMap)
	if err != nil {
		return "", err
	}
	if err := e.personas.Save(ctx, def); err != nil {
		return "", fmt.Errorf("save persona %q: %w", name, err)
	}
	e.logger.Info("persona defined", "persona_id", def.ID, "name", name,
		"states", len(graph.States), "transitions", len(graph.Transitions))
	return def.ID, nil
}

// StartConversation begins a conversation for a persona on a channel and
// returns the resolved view of the initial state. An active conversation
// already bound to the channel is cancelled and replaced.
func (e *Engine) StartConversation(ctx context.Context, personaID, channelConversationID string) (*domain.ResolvedView, error) {
	def, err := e.personas.Find(ctx, personaID)
	if err != nil {
		return nil, fmt.Errorf("find persona %q: %w", personaID, err)
	}

	var view *domain.ResolvedView
	var started *domain.Conversation
	err = e.sessions.WithLock(ctx, channelConversationID, func(ctx context.Context) error {
		store := e.sessions.Store()

		existing, err := store.FindActiveByChannel(ctx, channelConversationID)
		switch {
		case err == nil:
			if err := existing.Cancel(e.now()); err != nil {
				return err
			}
			if err := store.Save(ctx, existing); err != nil {
				return fmt.Errorf("cancel previous conversation: %w", err)
			}
			e.emitEnd(ctx, existing)
		case errors.Is(err, domain.ErrConversationNotFound):
		default:
			return err
		}

		conv := domain.NewConversation(e.newID(), def, channelConversationID, e.now())
		if err := store.Save(ctx, conv); err != nil {
			return fmt.Errorf("save conversation: %w", err)
		}

		view, err = conv.View()
		if err != nil {
			return err
		}
		started = conv
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.ConversationsStarted.Inc()
	}
	if e.hooks.OnConversationStart != nil {
		e.hooks.OnConversationStart(ctx, &domain.ConversationEvent{
			ConversationID:        started.ID,
			ChannelConversationID: channelConversationID,
			PersonaID:             personaID,
			Status:                started.Status,
			At:                    started.CreatedAt,
		})
	}
	e.logger.Info("conversation started",
		"conversation_id", started.ID, "persona_id", personaID, "channel_id", channelConversationID)

	e.present(ctx, channelConversationID, view)
	return view, nil
}

// ProcessEvent applies an external event to the channel's active
// conversation. Invalid input (no applicable transition) and field
// validation failures leave the conversation unchanged and are returned as
// recoverable errors; callers should re-prompt rather than fail.
func (e *Engine) ProcessEvent(ctx context.Context, channelConversationID, event string, payload map[string]any) (*EventResult, error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.EventDuration.Observe(time.Since(start).Seconds())
		}
	}()

	var result *EventResult
	err := e.sessions.WithLock(ctx, channelConversationID, func(ctx context.Context) error {
		store := e.sessions.Store()

		conv, err := store.FindActiveByChannel(ctx, channelConversationID)
		if err != nil {
			return fmt.Errorf("channel %q: %w", channelConversationID, err)
		}

		from := conv.CurrentStateID
		view, err := conv.ApplyEvent(event, payload, e.now())
		if err != nil {
			return err
		}

		if err := store.Save(ctx, conv); err != nil {
			return fmt.Errorf("save conversation: %w", err)
		}

		if e.metrics != nil {
			e.metrics.Transitions.Inc()
		}
		if e.hooks.OnTransition != nil {
			e.hooks.OnTransition(ctx, &domain.TransitionEvent{
				ConversationID:        conv.ID,
				ChannelConversationID: channelConversationID,
				Event:                 event,
				FromStateID:           from,
				ToStateID:             conv.CurrentStateID,
				Finished:              conv.Status == domain.StatusFinished,
				At:                    conv.UpdatedAt,
			})
		}
		if conv.Status == domain.StatusFinished {
			e.emitEnd(ctx, conv)
		}

		result = &EventResult{View: view, Finished: conv.Status == domain.StatusFinished}
		return nil
	})
	if err != nil {
		e.observeOutcome(err)
		if domain.IsRecoverable(err) {
			e.logger.Debug("event rejected", "channel_id", channelConversationID, "event", event, "err", err)
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.EventsProcessed.WithLabelValues(observability.OutcomeApplied).Inc()
	}
	e.present(ctx, channelConversationID, result.View)
	return result, nil
}

// FinishConversation marks the channel's active conversation as finished.
func (e *Engine) FinishConversation(ctx context.Context, channelConversationID string) error {
	return e.endConversation(ctx, channelConversationID, (*domain.Conversation).Finish)
}

// CancelConversation marks the channel's active conversation as cancelled.
func (e *Engine) CancelConversation(ctx context.Context, channelConversationID string) error {
	return e.endConversation(ctx, channelConversationID, (*domain.Conversation).Cancel)
}

// GetConversation returns a snapshot of the channel's active conversation.
func (e *Engine) GetConversation(ctx context.Context, channelConversationID string) (*domain.Conversation, error) {
	return e.sessions.FindActiveByChannel(ctx, channelConversationID)
}

// Personas returns the persona store, for adapters that list definitions.
func (e *Engine) Personas() ports.PersonaStore {
	return e.personas
}

func (e *Engine) endConversation(ctx context.Context, channelID string, end func(*domain.Conversation, time.Time) error) error {
	return e.sessions.WithLock(ctx, channelID, func(ctx context.Context) error {
		store := e.sessions.Store()
		conv, err := store.FindActiveByChannel(ctx, channelID)
		if err != nil {
			return fmt.Errorf("channel %q: %w", channelID, err)
		}
		if err := end(conv, e.now()); err != nil {
			return err
		}
		if err := store.Save(ctx, conv); err != nil {
			return fmt.Errorf("save conversation: %w", err)
		}
		e.emitEnd(ctx, conv)
		return nil
	})
}

func (e *Engine) emitEnd(ctx context.Context, conv *domain.Conversation) {
	if e.metrics != nil {
		e.metrics.ConversationsFinished.WithLabelValues(string(conv.Status)).Inc()
	}
	if e.hooks.OnConversationEnd != nil {
		e.hooks.OnConversationEnd(ctx, &domain.ConversationEvent{
			ConversationID:        conv.ID,
			ChannelConversationID: conv.ChannelConversationID,
			PersonaID:             conv.PersonaID,
			Status:                conv.Status,
			At:                    conv.UpdatedAt,
		})
	}
}

// present forwards a view to the presentation collaborator. Presentation
// failures are logged, not propagated: the conversation state is already
// persisted and a retry will re-render.
func (e *Engine) present(ctx context.Context, channelID string, view *domain.ResolvedView) {
	if e.presenter == nil || view == nil {
		return
	}
	if err := e.presenter.Present(ctx, channelID, view); err != nil {
		e.logger.Warn("presenter failed", "channel_id", channelID, "state_id", view.StateID, "err", err)
	}
}

func (e *Engine) observeOutcome(err error) {
	if e.metrics == nil {
		return
	}
	var fieldErr *domain.FieldValidationError
	switch {
	case errors.Is(err, domain.ErrNoApplicableTransition):
		e.metrics.EventsProcessed.WithLabelValues(observability.OutcomeInvalidInput).Inc()
	case errors.As(err, &fieldErr):
		e.metrics.EventsProcessed.WithLabelValues(observability.OutcomeInvalidField).Inc()
	case errors.Is(err, domain.ErrConversationNotFound), errors.Is(err, domain.ErrPersonaNotFound):
		e.metrics.EventsProcessed.WithLabelValues(observability.OutcomeNotFound).Inc()
	default:
		e.metrics.EventsProcessed.WithLabelValues(observability.OutcomeError).Inc()
	}
}
