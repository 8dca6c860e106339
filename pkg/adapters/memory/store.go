// Package memory provides in-memory reference stores, useful for tests and
// single-process deployments without external persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/personakit/persona/pkg/domain"
)

// PersonaStore implements ports.PersonaStore in memory.
// Safe for concurrent use.
type PersonaStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PersonaDefinition
}

// NewPersonaStore creates an empty in-memory persona store.
func NewPersonaStore() *PersonaStore {
	return &PersonaStore{data: make(map[string]*domain.PersonaDefinition)}
}

// Save stores a definition. Definitions are immutable aggregates, so the
// pointer is stored as-is.
func (s *PersonaStore) Save(ctx context.Context, def *domain.PersonaDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[def.ID] = def
	return nil
}

// Find returns the definition for an id.
func (s *PersonaStore) Find(ctx context.Context, id string) (*domain.PersonaDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.data[id]
	if !ok {
		return nil, domain.ErrPersonaNotFound
	}
	return def, nil
}

// List returns all stored definition ids in deterministic order.
func (s *PersonaStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ConversationStore implements ports.ConversationStore in memory.
// Conversations are deep-copied on save and load so callers never share
// mutable state with the store.
type ConversationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Conversation
}

// NewConversationStore creates an empty in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{data: make(map[string]*domain.Conversation)}
}

// Save stores a deep copy of the conversation.
func (s *ConversationStore) Save(ctx context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[conv.ID] = conv.Clone()
	return nil
}

// Find returns a copy of the conversation with the given id.
func (s *ConversationStore) Find(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.data[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return conv.Clone(), nil
}

// FindActiveByChannel returns a copy of the active conversation bound to the
// channel conversation id.
func (s *ConversationStore) FindActiveByChannel(ctx context.Context, channelConversationID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conv := range s.data {
		if conv.ChannelConversationID == channelConversationID && conv.IsActive() {
			return conv.Clone(), nil
		}
	}
	return nil, domain.ErrConversationNotFound
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns all stored conversation ids in deterministic order.
func (s *ConversationStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
