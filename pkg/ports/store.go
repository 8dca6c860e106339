package ports

import (
	"context"

	"github.com/personakit/persona/pkg/domain"
)

// PersonaStore persists immutable persona definitions.
type PersonaStore interface {
	// Save stores a definition. Definitions are immutable; saving an
	// existing id overwrites it wholesale.
	Save(ctx context.Context, def *domain.PersonaDefinition) error

	// Find returns the definition for an id.
	// Returns domain.ErrPersonaNotFound if it does not exist.
	Find(ctx context.Context, id string) (*domain.PersonaDefinition, error)

	// List returns every stored definition id.
	List(ctx context.Context) ([]string, error)
}

// ConversationStore persists conversation state.
type ConversationStore interface {
	// Save stores the full conversation snapshot.
	Save(ctx context.Context, conv *domain.Conversation) error

	// Find returns a conversation by its id.
	// Returns domain.ErrConversationNotFound if it does not exist.
	Find(ctx context.Context, id string) (*domain.Conversation, error)

	// FindActiveByChannel returns the active conversation bound to a channel
	// conversation id. Returns domain.ErrConversationNotFound when no active
	// conversation exists for the channel.
	FindActiveByChannel(ctx context.Context, channelConversationID string) (*domain.Conversation, error)

	// Delete removes a conversation.
	Delete(ctx context.Context, id string) error

	// List returns every stored conversation id.
	List(ctx context.Context) ([]string, error)
}
