package carrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"sms-gateway/internal/config"
	"sms-gateway/pkg/logger"
)

// MQTTCarrier publishes payloads to an MQTT broker at QoS 1.
type MQTTCarrier struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

func NewMQTTCarrier(cfg *config.CarrierConfig) *MQTTCarrier {
	broker := fmt.Sprintf("tcp://%s:%s", cfg.Host, cfg.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Infof("Connected to MQTT broker at %s", broker)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warnf("Unexpected disconnection from MQTT broker: %v", err)
		})

	topic := cfg.Channel
	if topic == "" {
		topic = DefaultChannel
	}

	return &MQTTCarrier{
		client:  mqtt.NewClient(opts),
		topic:   topic,
		timeout: cfg.ConnectTimeout,
	}
}

func (c *MQTTCarrier) Connect(ctx context.Context) error {
	if c.client.IsConnectionOpen() {
		return nil
	}
	if err := wait(ctx, c.client.Connect(), c.timeout); err != nil {
		logger.Errorf("Failed to connect to MQTT broker: %v", err)
		return unavailable(err)
	}
	return nil
}

func (c *MQTTCarrier) Publish(ctx context.Context, number, message string) (string, error) {
	if !c.client.IsConnectionOpen() {
		logger.Info("MQTT client not connected, attempting to reconnect...")
		if err := c.Connect(ctx); err != nil {
			return "", err
		}
	}

	p, body, err := newPayload(number, message)
	if err != nil {
		return "", err
	}

	logger.WithField("message_id", p.MessageID).Infof("Sending SMS to %s via MQTT", number)
	if err := wait(ctx, c.client.Publish(c.topic, 1, false, body), 0); err != nil {
		logger.WithField("message_id", p.MessageID).Errorf("Failed to publish SMS to %s: %v", number, err)
		return "", fmt.Errorf("publish to %s: %w", c.topic, unavailable(err))
	}
	return p.MessageID, nil
}

func (c *MQTTCarrier) Ping(ctx context.Context) error {
	return c.Connect(ctx)
}

func (c *MQTTCarrier) Close() error {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
		logger.Info("Disconnected from MQTT broker")
	}
	return nil
}

// wait blocks until the token completes, ctx ends or timeout (if > 0) passes.
func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return errors.Join(ctx.Err(), token.Error())
	}
}
