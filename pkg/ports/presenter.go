package ports

import (
	"context"

	"github.com/personakit/persona/pkg/domain"
)

// Presenter receives resolved views and renders them on some channel.
// Implementations translate component types (message, button, card, ...)
// into the channel's native primitives; no channel-specific type names
// appear above this boundary.
type Presenter interface {
	Present(ctx context.Context, channelConversationID string, view *domain.ResolvedView) error
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(ctx context.Context, channelConversationID string, view *domain.ResolvedView) error

func (f PresenterFunc) Present(ctx context.Context, channelConversationID string, view *domain.ResolvedView) error {
	return f(ctx, channelConversationID, view)
}
