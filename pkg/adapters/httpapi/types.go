package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/personakit/persona/pkg/domain"
)

// DefinePersonaRequest is the body of POST /personas.
type DefinePersonaRequest struct {
	Name       string            `json:"name"`
	StateGraph domain.StateGraph `json:"state_graph"`
	FormSchema domain.FormSchema `json:"form_schema"`
	ViewMap    domain.ViewMap    `json:"view_map"`
}

// DefinePersonaResponse carries the generated persona id.
type DefinePersonaResponse struct {
	PersonaID string `json:"persona_id"`
}

// StartConversationRequest is the body of POST /conversations.
type StartConversationRequest struct {
	PersonaID             string `json:"persona_id"`
	ChannelConversationID string `json:"channel_conversation_id"`
}

// EventRequest is the body of POST /conversations/{channelID}/events.
type EventRequest struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ViewResponse wraps a resolved view.
type ViewResponse struct {
	View     *domain.ResolvedView `json:"view"`
	Finished bool                 `json:"finished"`
}

// ConversationResponse is a read-only conversation snapshot.
type ConversationResponse struct {
	ID                    string         `json:"id"`
	PersonaID             string         `json:"persona_id"`
	ChannelConversationID string         `json:"channel_conversation_id"`
	Status                domain.Status  `json:"status"`
	CurrentStateID        string         `json:"current_state_id"`
	FormData              map[string]any `json:"form_data"`
	FormComplete          bool           `json:"form_complete"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the runtime error taxonomy to HTTP statuses: definition
// errors 400, not found 404, terminal misuse 409, invalid input and field
// validation 422, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	var defErr *domain.DefinitionError
	var fieldErr *domain.FieldValidationError
	switch {
	case errors.As(err, &defErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_definition", Message: err.Error()})
	case errors.Is(err, domain.ErrPersonaNotFound), errors.Is(err, domain.ErrConversationNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: "not_found", Message: err.Error()})
	case errors.Is(err, domain.ErrNoApplicableTransition):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Code: "invalid_input", Message: err.Error()})
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Code: "invalid_field", Message: err.Error()})
	case errors.Is(err, domain.ErrConversationNotActive), errors.Is(err, domain.ErrAlreadyTerminal):
		writeJSON(w, http.StatusConflict, ErrorResponse{Code: "conversation_terminal", Message: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "internal", Message: err.Error()})
	}
}
