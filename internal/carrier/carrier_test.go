package carrier

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sms-gateway/internal/config"
)

func TestNew_SelectsDriver(t *testing.T) {
	c, err := New(&config.CarrierConfig{Driver: "redis", Host: "localhost", Port: "6379"})
	require.NoError(t, err)
	assert.IsType(t, &RedisCarrier{}, c)

	c, err = New(&config.CarrierConfig{Driver: "mqtt", Host: "localhost", Port: "1883"})
	require.NoError(t, err)
	assert.IsType(t, &MQTTCarrier{}, c)

	_, err = New(&config.CarrierConfig{Driver: "smoke-signals"})
	assert.Error(t, err)
}

func TestPayloadShape(t *testing.T) {
	p, body, err := newPayload("+15551234567", "hello")
	require.NoError(t, err)

	_, err = uuid.Parse(p.MessageID)
	assert.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, map[string]string{
		"message_id": p.MessageID,
		"number":     "+15551234567",
		"message":    "hello",
	}, decoded)
}

func TestRedisCarrier_UnreachableIsUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCarrierWithClient(client, "")
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.ErrorIs(t, c.Connect(ctx), ErrCarrierUnavailable)
	_, err := c.Publish(ctx, "+1555", "hi")
	assert.ErrorIs(t, err, ErrCarrierUnavailable)
	assert.ErrorIs(t, c.Ping(ctx), ErrCarrierUnavailable)
}
