// Package redis provides a Redis-backed conversation store and a
// distributed locker for multi-replica deployments.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/personakit/persona/pkg/domain"
)

// Store implements ports.ConversationStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for conversations (default: no expiration).
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix (default "persona:").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "persona:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) convKey(id string) string {
	return s.prefix + "conversation:" + id
}

func (s *Store) channelKey(channelID string) string {
	return s.prefix + "channel:" + channelID
}

func (s *Store) indexKey() string {
	return s.prefix + "conversations"
}

// Save persists the conversation as JSON and keeps the channel binding and
// the ZSET index in step. The channel key points at the active conversation
// for a channel; it is removed once the conversation leaves active status.
func (s *Store) Save(ctx context.Context, conv *domain.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.convKey(conv.ID), data, s.ttl)

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01, effectively "never"
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: conv.ID})

	if conv.IsActive() {
		pipe.Set(ctx, s.channelKey(conv.ChannelConversationID), conv.ID, s.ttl)
	} else {
		pipe.Del(ctx, s.channelKey(conv.ChannelConversationID))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save conversation to redis: %w", err)
	}
	return nil
}

// Find loads a conversation by id.
func (s *Store) Find(ctx context.Context, id string) (*domain.Conversation, error) {
	val, err := s.client.Get(ctx, s.convKey(id)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation from redis: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal([]byte(val), &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	return &conv, nil
}

// FindActiveByChannel resolves the channel binding, then loads the
// conversation it points to.
func (s *Store) FindActiveByChannel(ctx context.Context, channelConversationID string) (*domain.Conversation, error) {
	id, err := s.client.Get(ctx, s.channelKey(channelConversationID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("resolve channel binding: %w", err)
	}

	conv, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.IsActive() {
		// Stale binding, e.g. written by an older version. Treat as absent.
		return nil, domain.ErrConversationNotFound
	}
	return conv, nil
}

// Delete removes a conversation, its index entry and, if it still owns the
// channel binding, the binding.
func (s *Store) Delete(ctx context.Context, id string) error {
	conv, err := s.Find(ctx, id)
	if err != nil {
		if err == domain.ErrConversationNotFound {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.convKey(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	owner, err := s.client.Get(ctx, s.channelKey(conv.ChannelConversationID)).Result()
	if err == nil && owner == id {
		pipe.Del(ctx, s.channelKey(conv.ChannelConversationID))
	}

	_, err = pipe.Exec(ctx)
	return err
}

// List returns stored conversation ids, lazily pruning expired index
// entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("prune expired conversations: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return ids, nil
}

// Client exposes the underlying client so callers can share it, e.g. with a
// Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
