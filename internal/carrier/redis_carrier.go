package carrier

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/redis/go-redis/v9"

	"sms-gateway/internal/config"
	"sms-gateway/pkg/logger"
)

// RedisCarrier publishes payloads on a Redis pub/sub channel.
type RedisCarrier struct {
	client    *redis.Client
	channel   string
	mu        sync.Mutex
	connected bool
}

func NewRedisCarrier(cfg *config.CarrierConfig) *RedisCarrier {
	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		DialTimeout: cfg.ConnectTimeout,
		MaxRetries:  0,
	})
	return NewRedisCarrierWithClient(client, cfg.Channel)
}

func NewRedisCarrierWithClient(client *redis.Client, channel string) *RedisCarrier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisCarrier{client: client, channel: channel}
}

func (c *RedisCarrier) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.Ping(ctx).Err(); err != nil {
		c.connected = false
		logger.Errorf("Failed to connect to redis carrier at %s: %v", c.client.Options().Addr, err)
		return unavailable(err)
	}
	if !c.connected {
		logger.Infof("Connected to redis carrier at %s", c.client.Options().Addr)
	}
	c.connected = true
	return nil
}

func (c *RedisCarrier) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *RedisCarrier) Publish(ctx context.Context, number, message string) (string, error) {
	if !c.isConnected() {
		logger.Info("Redis carrier not connected, attempting to reconnect...")
		if err := c.Connect(ctx); err != nil {
			return "", err
		}
	}

	p, body, err := newPayload(number, message)
	if err != nil {
		return "", err
	}

	if err := c.client.Publish(ctx, c.channel, body).Err(); err != nil {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		return "", fmt.Errorf("publish to %s: %w", c.channel, unavailable(err))
	}

	logger.WithField("message_id", p.MessageID).Infof("Published SMS to %s via redis", number)
	return p.MessageID, nil
}

func (c *RedisCarrier) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (c *RedisCarrier) Close() error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return c.client.Close()
}
