package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle phase of a conversation.
type Status string

const (
	StatusActive    Status = "active"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// Conversation is one live instance of a persona bound to a channel chat id.
// It embeds snapshots of the persona's state graph and view map taken at
// start time, so later edits to the definition cannot affect it.
type Conversation struct {
	ID                    string        `json:"id"`
	PersonaID             string        `json:"persona_id"`
	ChannelConversationID string        `json:"channel_conversation_id"`
	Status                Status        `json:"status"`
	CurrentStateID        string        `json:"current_state_id"`
	Form                  *FormInstance `json:"form"`
	StateGraph            StateGraph    `json:"state_graph"`
	ViewMap               ViewMap       `json:"view_map"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// NewConversation starts a conversation at the definition's initial state
// with the form initialized from schema defaults.
func NewConversation(id string, def *PersonaDefinition, channelConversationID string, now time.Time) *Conversation {
	return &Conversation{
		ID:                    id,
		PersonaID:             def.ID,
		ChannelConversationID: channelConversationID,
		Status:                StatusActive,
		CurrentStateID:        def.StateGraph.InitialState,
		Form:                  NewFormInstance(id, def.FormSchema.Clone()),
		StateGraph:            def.StateGraph.Clone(),
		ViewMap:               def.ViewMap.Clone(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// ApplyEvent advances the conversation in response to an external event.
//
// Candidate transitions are walked in declaration order and the first whose
// guard passes wins. Its assignments are resolved and validated in full
// before any value is written, so a failing assignment leaves the
// conversation untouched. Entering a state with no outgoing transitions
// finishes the conversation on the same call.
//
// ErrNoApplicableTransition and *FieldValidationError are recoverable: the
// conversation is unchanged and the caller should re-prompt.
func (c *Conversation) ApplyEvent(event string, payload map[string]any, now time.Time) (*ResolvedView, error) {
	if c.Status != StatusActive {
		return nil, fmt.Errorf("apply %q to %s conversation: %w", event, c.Status, ErrConversationNotActive)
	}

	candidates := c.StateGraph.FindTransitions(c.CurrentStateID, event)
	var selected *Transition
	for i := range candidates {
		if candidates[i].Guard.Evaluate(c.Form) {
			selected = &candidates[i]
			break
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("state %q, event %q: %w", c.CurrentStateID, event, ErrNoApplicableTransition)
	}

	if len(selected.Assign) > 0 {
		writes, err := resolveAssignments(selected.Assign, c.Form, payload)
		if err != nil {
			return nil, err
		}
		for _, w := range writes {
			if err := c.Form.Set(w.fieldID, w.value); err != nil {
				// Staged writes were validated already; a failure here means
				// the schema and stage disagree, which is a programming error.
				return nil, fmt.Errorf("commit assignment for %q: %w", w.fieldID, err)
			}
		}
	}

	c.CurrentStateID = selected.To
	if c.StateGraph.IsTerminal(c.CurrentStateID) {
		c.Status = StatusFinished
	}
	c.UpdatedAt = now

	return c.View()
}

// View resolves the presentation view for the current state.
func (c *Conversation) View() (*ResolvedView, error) {
	return c.ViewMap.Resolve(c.CurrentStateID, c.Form.Data())
}

// Finish marks an active conversation as finished.
func (c *Conversation) Finish(now time.Time) error {
	if c.Status != StatusActive {
		return fmt.Errorf("finish %s conversation: %w", c.Status, ErrAlreadyTerminal)
	}
	c.Status = StatusFinished
	c.UpdatedAt = now
	return nil
}

// Cancel marks an active conversation as cancelled.
func (c *Conversation) Cancel(now time.Time) error {
	if c.Status != StatusActive {
		return fmt.Errorf("cancel %s conversation: %w", c.Status, ErrAlreadyTerminal)
	}
	c.Status = StatusCancelled
	c.UpdatedAt = now
	return nil
}

// IsActive reports whether the conversation still accepts events.
func (c *Conversation) IsActive() bool {
	return c.Status == StatusActive
}

// Clone returns a deep copy, used by stores to isolate callers from shared
// pointers.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Form = c.Form.Clone()
	out.StateGraph = c.StateGraph.Clone()
	out.ViewMap = c.ViewMap.Clone()
	return &out
}
