package consumers

import (
	"context"

	"sms-gateway/internal/models"
	"sms-gateway/internal/services"
	"sms-gateway/pkg/logger"
)

type MessageProcessor struct {
	Sms *services.SmsService
}

func NewMessageProcessor(sms *services.SmsService) *MessageProcessor {
	return &MessageProcessor{Sms: sms}
}

// --- DTOs ---

type RedeliveryDTO struct {
	MessageId int `json:"message_id"`
}

// ProcessRedelivery republishes one FAILED message. A publish that fails
// again leaves the message FAILED for the caller to retry; only store
// errors are returned so the queue can retry them.
func (p *MessageProcessor) ProcessRedelivery(ctx context.Context, data RedeliveryDTO) error {
	msg, err := p.Sms.Redeliver(ctx, data.MessageId)
	if err != nil {
		logger.Errorf("Redelivery of SMS %d failed: %v", data.MessageId, err)
		return err
	}

	entry := logger.WithField("sms_id", msg.ID).WithField("retry_count", msg.RetryCount)
	if msg.Status == models.MessageSent {
		entry.Info("SMS redelivered")
	} else {
		entry.Warnf("SMS still %s after redelivery", msg.Status)
	}
	return nil
}
