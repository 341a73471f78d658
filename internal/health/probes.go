package health

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
)

// BotProber is the slice of the Bot API used by readiness probes.
// *tgbotapi.BotAPI satisfies it.
type BotProber interface {
	GetMe() (tgbotapi.User, error)
}

// Probes implements Checker against the live clients.
type Probes struct {
	R   *redis.Client
	Bot BotProber
}

func (p Probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.R == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.R.Ping(ctx).Err()
}

// PingTelegram calls getMe. The underlying client has no context plumbing,
// so the probe runs it in a goroutine and gives up after the timeout.
func (p Probes) PingTelegram(ctx context.Context, timeout time.Duration) error {
	if p.Bot == nil {
		return errors.New("telegram not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := p.Bot.GetMe()
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
