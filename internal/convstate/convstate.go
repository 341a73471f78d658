package convstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// State names where a chat is in the top-up dialog.
type State string

const (
	// Idle means no dialog is in progress; free text is ignored.
	Idle State = "idle"
	// AwaitingAmount means the next free-text message is read as a top-up
	// amount in major units.
	AwaitingAmount State = "awaiting_amount"
)

// Store keeps per-chat dialog state. Entries expire so an abandoned dialog
// falls back to Idle on its own.
type Store interface {
	Set(ctx context.Context, chatID int64, state State, ttl time.Duration) error
	Get(ctx context.Context, chatID int64) (State, error)
	Clear(ctx context.Context, chatID int64) error
}

// RedisStore keeps dialog state in Redis so the bot survives restarts
// mid-dialog.
type RedisStore struct {
	R      *redis.Client
	Prefix string
}

func (s RedisStore) key(chatID int64) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "convstate"
	}
	return fmt.Sprintf("%s:%d", prefix, chatID)
}

func (s RedisStore) Set(ctx context.Context, chatID int64, state State, ttl time.Duration) error {
	if s.R == nil {
		return errors.New("convstate: redis client not configured")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return s.R.Set(ctx, s.key(chatID), string(state), ttl).Err()
}

// Get returns Idle for chats with no stored state.
func (s RedisStore) Get(ctx context.Context, chatID int64) (State, error) {
	if s.R == nil {
		return Idle, errors.New("convstate: redis client not configured")
	}
	raw, err := s.R.Get(ctx, s.key(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return Idle, nil
	}
	if err != nil {
		return Idle, err
	}
	return State(raw), nil
}

func (s RedisStore) Clear(ctx context.Context, chatID int64) error {
	if s.R == nil {
		return errors.New("convstate: redis client not configured")
	}
	return s.R.Del(ctx, s.key(chatID)).Err()
}
