package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the runtime taxonomy. Callers match with errors.Is.
var (
	// ErrPersonaNotFound is returned when a persona id cannot be resolved.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrConversationNotFound is returned when no conversation exists for an
	// id or channel conversation id.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrConversationNotActive is returned when an event is applied to a
	// finished or cancelled conversation.
	ErrConversationNotActive = errors.New("conversation is not active")

	// ErrAlreadyTerminal is returned when Finish or Cancel is called on a
	// conversation that already left the active status.
	ErrAlreadyTerminal = errors.New("conversation already terminal")

	// ErrNoApplicableTransition signals that the current state has no
	// transition for the received event, or every candidate's guard failed.
	// The conversation is left untouched; callers should re-prompt.
	ErrNoApplicableTransition = errors.New("no applicable transition")

	// ErrUnknownField is returned when a form field id cannot be resolved
	// against the schema.
	ErrUnknownField = errors.New("unknown form field")
)

// DefinitionError reports one or more invariant violations found while
// constructing a PersonaDefinition. Nothing is persisted when it is returned.
type DefinitionError struct {
	Persona string
	Reasons []string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid persona definition %q: %s", e.Persona, strings.Join(e.Reasons, "; "))
}

// FieldValidationError reports a form field rejecting a value. It is
// recoverable: the transition is aborted and the conversation is unchanged.
type FieldValidationError struct {
	Field   string
	Value   any
	Reasons []string
}

func (e *FieldValidationError) Error() string {
	return fmt.Sprintf("field %q rejected value: %s", e.Field, strings.Join(e.Reasons, "; "))
}

// IsRecoverable reports whether err is an expected user-input failure that
// should produce a re-prompt rather than a fault.
func IsRecoverable(err error) bool {
	var fieldErr *FieldValidationError
	return errors.Is(err, ErrNoApplicableTransition) || errors.As(err, &fieldErr)
}
