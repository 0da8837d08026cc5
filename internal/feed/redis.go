package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisOptions configures a Redis-backed bus.
type RedisOptions struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

// RedisBus publishes events on one channel per round.
type RedisBus struct {
	logger *slog.Logger
	rdb    *goredis.Client
	prefix string
}

// NewRedisBus connects to Redis and verifies the connection.
func NewRedisBus(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisBus, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisBusFromClient(rdb, opts.ChannelPrefix, logger), nil
}

// NewRedisBusFromClient wraps an existing client.
func NewRedisBusFromClient(rdb *goredis.Client, prefix string, logger *slog.Logger) *RedisBus {
	if prefix == "" {
		prefix = "patrol:rounds:"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{
		logger: logger.With("component", "redis_feed"),
		rdb:    rdb,
		prefix: prefix,
	}
}

// Channel returns the channel events for a key are published on.
func (b *RedisBus) Channel(key string) string {
	return b.prefix + key
}

// Publish sends the event on the round's channel, or the client's
// channel for events without a round.
func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	if b == nil || b.rdb == nil {
		return ErrNotInitialized
	}
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.Channel(channelKey(evt)), raw).Err(); err != nil {
		return fmt.Errorf("publishing %s: %w", evt.Type, err)
	}
	return nil
}

// StartForwarder pattern-subscribes to every round channel and calls
// onEvent for each decoded event until ctx is canceled.
func (b *RedisBus) StartForwarder(ctx context.Context, onEvent func(Event)) error {
	if b == nil || b.rdb == nil {
		return ErrNotInitialized
	}
	if onEvent == nil {
		return ErrNoHandler
	}

	sub := b.rdb.PSubscribe(ctx, b.prefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					b.logger.Warn("bad feed payload", "channel", m.Channel, "error", err)
					continue
				}
				onEvent(evt)
			}
		}
	}()

	return nil
}

// Close closes the Redis client.
func (b *RedisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func channelKey(evt Event) string {
	if evt.RoundID != "" {
		return evt.RoundID
	}
	return "client:" + evt.ClientID
}
