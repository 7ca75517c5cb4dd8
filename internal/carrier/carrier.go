package carrier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sms-gateway/internal/config"
)

// DefaultChannel is the topic the modem bridge listens on.
const DefaultChannel = "sms/send"

var ErrCarrierUnavailable = errors.New("carrier unavailable")

// Carrier hands an outbound message to the external delivery system.
// Delivery failures are returned as errors; a nil error means the message
// was accepted, not that it reached the handset.
type Carrier interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, number, message string) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

type Payload struct {
	MessageID string `json:"message_id"`
	Number    string `json:"number"`
	Message   string `json:"message"`
}

func newPayload(number, message string) (Payload, []byte, error) {
	p := Payload{
		MessageID: uuid.NewString(),
		Number:    number,
		Message:   message,
	}
	body, err := json.Marshal(p)
	return p, body, err
}

// New builds the carrier named by cfg.Driver. It does not connect.
func New(cfg *config.CarrierConfig) (Carrier, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedisCarrier(cfg), nil
	case "mqtt", "":
		return NewMQTTCarrier(cfg), nil
	}
	return nil, fmt.Errorf("unknown carrier driver %q", cfg.Driver)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrCarrierUnavailable, err)
}
