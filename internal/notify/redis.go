package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel shared by all instances.
const DefaultRedisChannel = "taskhub:events"

// RedisClient is the go-redis subset RedisRelay uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// ConnectRedis builds a client from a redis:// URL or a host:port address
// and checks it with PING.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// RedisRelay is a Broadcaster that publishes events to a Redis channel so
// every instance delivers them. Run feeds received events to the local
// notifier, including the ones this instance published.
type RedisRelay struct {
	client  RedisClient
	channel string
	timeout time.Duration
	local   Notifier
}

// NewRedisRelay creates a relay publishing on channel and delivering to local.
func NewRedisRelay(client RedisClient, channel string, timeout time.Duration, local Notifier) *RedisRelay {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisRelay{client: client, channel: channel, timeout: timeout, local: local}
}

// BroadcastGlobal publishes an event for every connected client.
func (r *RedisRelay) BroadcastGlobal(ctx context.Context, name string, payload any) error {
	ev, err := NewEvent(name, "", payload)
	if err != nil {
		return err
	}
	return r.publish(ctx, ev)
}

// BroadcastToUser publishes an event for userID's connections.
func (r *RedisRelay) BroadcastToUser(ctx context.Context, userID, name string, payload any) error {
	if userID == "" {
		return errNoUser
	}
	ev, err := NewEvent(name, userID, payload)
	if err != nil {
		return err
	}
	return r.publish(ctx, ev)
}

func (r *RedisRelay) publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing %s: %w", ev.Name, err)
	}
	return nil
}

// Run subscribes to the relay channel and delivers events locally until ctx
// is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close() //nolint:errcheck

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}
	slog.Info("redis relay subscribed", "channel", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver(msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		slog.Warn("redis relay: dropping malformed event", "error", err)
		return
	}
	if ev.Name == "" {
		slog.Warn("redis relay: dropping unnamed event")
		return
	}
	r.local.Notify(ev)
}
