package domain

import (
	"context"
	"time"
)

// TransitionEvent describes one applied transition, for observability hooks.
type TransitionEvent struct {
	ConversationID        string    `json:"conversation_id"`
	ChannelConversationID string    `json:"channel_conversation_id"`
	Event                 string    `json:"event"`
	FromStateID           string    `json:"from_state_id"`
	ToStateID             string    `json:"to_state_id"`
	Finished              bool      `json:"finished"`
	At                    time.Time `json:"at"`
}

// ConversationEvent describes a lifecycle change of a conversation.
type ConversationEvent struct {
	ConversationID        string    `json:"conversation_id"`
	ChannelConversationID string    `json:"channel_conversation_id"`
	PersonaID             string    `json:"persona_id"`
	Status                Status    `json:"status"`
	At                    time.Time `json:"at"`
}

// LifecycleHooks are optional callbacks fired by the engine facade. Nil
// callbacks are skipped; hooks must not mutate the conversation.
type LifecycleHooks struct {
	OnConversationStart func(context.Context, *ConversationEvent)
	OnTransition        func(context.Context, *TransitionEvent)
	OnConversationEnd   func(context.Context, *ConversationEvent)
}
