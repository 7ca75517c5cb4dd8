package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sms-gateway/internal/carrier"
	"sms-gateway/internal/models"
	"sms-gateway/internal/store"
	"sms-gateway/pkg/common"
	"sms-gateway/pkg/logger"
)

// UnitPrice is the flat charge per outbound message.
var UnitPrice = decimal.NewFromInt(1)

// RedeliveryQueue schedules a FAILED outbound message for another publish
// attempt. attempt is the message's retry count when it was scheduled;
// scheduling the same message and attempt twice queues it once.
type RedeliveryQueue interface {
	EnqueueRedelivery(ctx context.Context, messageID, attempt int) error
}

type SmsService struct {
	Store          store.Store
	Wallets        *WalletService
	Carrier        carrier.Carrier
	Queue          RedeliveryQueue
	PublishTimeout time.Duration
	Now            func() time.Time
}

func NewSmsService(s store.Store, wallets *WalletService, c carrier.Carrier, queue RedeliveryQueue, publishTimeout time.Duration) *SmsService {
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	return &SmsService{
		Store:          s,
		Wallets:        wallets,
		Carrier:        c,
		Queue:          queue,
		PublishTimeout: publishTimeout,
		Now:            time.Now,
	}
}

type SendSmsDTO struct {
	UserId          int
	SimIds          []int
	RecipientNumber string
	Content         string
}

func (d SendSmsDTO) validate() error {
	if len(d.SimIds) == 0 {
		return fmt.Errorf("%w: at least one sim_id is required", ErrInvalidRequest)
	}
	seen := make(map[int]bool, len(d.SimIds))
	for _, id := range d.SimIds {
		if seen[id] {
			return fmt.Errorf("%w: sim %d listed more than once", ErrInvalidRequest, id)
		}
		seen[id] = true
	}
	if strings.TrimSpace(d.RecipientNumber) == "" {
		return fmt.Errorf("%w: recipient_number is required", ErrInvalidRequest)
	}
	if d.Content == "" || len([]rune(d.Content)) > models.MaxContentLength {
		return fmt.Errorf("%w: content must be 1-%d characters", ErrInvalidRequest, models.MaxContentLength)
	}
	return nil
}

// SendBatch sends one message through each listed SIM and charges the
// wallet once for the whole batch.
//
// The batch cost is taken from the wallet as soon as the debit transaction
// is recorded, without going through the status machine, and it is kept even
// when some messages fail; the transaction is then marked FAILED. Everything
// runs in one unit of work holding the wallet and SIM row locks, so any store
// error rolls back the debit, the messages and the quota counters together.
func (s *SmsService) SendBatch(ctx context.Context, data SendSmsDTO) ([]models.Message, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	if _, err := s.Wallets.GetOrCreateWallet(ctx, data.UserId); err != nil {
		return nil, dispatchFailed(err)
	}

	cost := UnitPrice.Mul(decimal.NewFromInt(int64(len(data.SimIds))))

	var (
		messages []models.Message
		trx      *models.Transaction
	)
	err := s.Store.WithinTx(ctx, func(repo store.Repository) error {
		messages = nil

		wallet, err := repo.LockWallet(ctx, data.UserId)
		if err != nil {
			return dispatchFailed(err)
		}
		if wallet.Balance.LessThan(cost) {
			return fmt.Errorf("%w: balance %s, required %s", ErrInsufficientBalance,
				wallet.Balance.StringFixed(2), cost.StringFixed(2))
		}

		locked, err := repo.LockSims(ctx, data.SimIds, data.UserId)
		if err != nil {
			return dispatchFailed(err)
		}
		sims := make(map[int]models.Sim, len(locked))
		for _, sim := range locked {
			sims[sim.ID] = sim
		}
		now := s.Now()
		for _, id := range data.SimIds {
			sim, ok := sims[id]
			if !ok {
				return fmt.Errorf("sim %d: %w", id, store.ErrNotFound)
			}
			if !sim.IsActive {
				return fmt.Errorf("%w: sim %d is not active", ErrSimNotEligible, id)
			}
			if sim.ExpiredAt(now) {
				return fmt.Errorf("%w: sim %d expired on %s", ErrSimNotEligible, id, sim.ExpiryDate.Format(time.DateOnly))
			}
			if !sim.CanSend() {
				return fmt.Errorf("%w: sim %d reached its message limit", ErrSimNotEligible, id)
			}
		}

		trx = &models.Transaction{
			UserId:      data.UserId,
			WalletId:    wallet.ID,
			Type:        models.TransactionDebit,
			Amount:      cost,
			Status:      models.TransactionPending,
			Description: fmt.Sprintf("SMS to %s via %d SIM(s)", data.RecipientNumber, len(data.SimIds)),
			Reference:   common.GenerateTrxNo(),
		}
		if err := repo.CreateTransaction(ctx, trx); err != nil {
			return dispatchFailed(err)
		}
		if _, err := repo.ApplyDelta(ctx, wallet.ID, cost.Neg()); err != nil {
			return dispatchFailed(err)
		}

		allSent := true
		for _, id := range data.SimIds {
			sim := sims[id]
			msg := models.Message{
				UserId:          data.UserId,
				SimId:           sim.ID,
				TransactionId:   &trx.ID,
				Direction:       models.DirectionOutbound,
				Status:          models.MessagePending,
				RecipientNumber: data.RecipientNumber,
				SenderNumber:    sim.PhoneNumber,
				Content:         data.Content,
				Price:           UnitPrice,
			}
			if err := repo.CreateMessage(ctx, &msg); err != nil {
				return dispatchFailed(err)
			}

			sim.MessagesUsed++
			if err := repo.SaveSim(ctx, &sim); err != nil {
				return dispatchFailed(err)
			}

			s.deliver(ctx, &msg)
			if msg.Status != models.MessageSent {
				allSent = false
			}
			if err := repo.SaveMessage(ctx, &msg); err != nil {
				return dispatchFailed(err)
			}
			messages = append(messages, msg)
		}

		final := models.TransactionCompleted
		if !allSent {
			final = models.TransactionFailed
		}
		if err := repo.SetTransactionStatus(ctx, trx.ID, final); err != nil {
			return dispatchFailed(err)
		}
		trx.Status = final
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDispatchFailed) {
			logger.WithField("user_id", data.UserId).Errorf("SMS dispatch rolled back: %v", err)
		}
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"user_id":   data.UserId,
		"reference": trx.Reference,
		"status":    trx.Status,
	}).Infof("Dispatched %d SMS to %s", len(messages), data.RecipientNumber)
	return messages, nil
}

// deliver publishes msg and records the outcome on it. Carrier failures
// never abort the batch.
func (s *SmsService) deliver(ctx context.Context, msg *models.Message) {
	carrierID, err := s.publish(ctx, msg.RecipientNumber, msg.Content)
	if err != nil {
		reason := fmt.Sprintf("carrier publish failed: %v", err)
		msg.Status = models.MessageFailed
		msg.ErrorMessage = &reason
		logger.WithField("sms_id", msg.ID).Warn(reason)
		return
	}
	msg.Status = models.MessageSent
	msg.ErrorMessage = nil
	msg.CarrierMessageId = carrierID
}

func (s *SmsService) publish(ctx context.Context, number, content string) (string, error) {
	if s.Carrier == nil {
		return "", carrier.ErrCarrierUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.PublishTimeout)
	defer cancel()
	return s.Carrier.Publish(ctx, number, content)
}

type ReceiveSmsDTO struct {
	SenderNumber string
	Content      string
}

// ReceiveInbound records a message arriving on the SIM whose phone number
// matches the sender. No transaction is created.
func (s *SmsService) ReceiveInbound(ctx context.Context, data ReceiveSmsDTO) (*models.Message, error) {
	if strings.TrimSpace(data.SenderNumber) == "" || data.Content == "" {
		return nil, fmt.Errorf("%w: sender_number and content are required", ErrInvalidRequest)
	}
	if len([]rune(data.Content)) > models.MaxContentLength {
		return nil, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidRequest, models.MaxContentLength)
	}

	sim, err := s.Store.FindSimByPhone(ctx, data.SenderNumber)
	if err != nil {
		return nil, fmt.Errorf("sim for %s: %w", data.SenderNumber, err)
	}

	msg := &models.Message{
		UserId:          sim.UserId,
		SimId:           sim.ID,
		Direction:       models.DirectionInbound,
		Status:          models.MessageReceived,
		RecipientNumber: sim.PhoneNumber,
		SenderNumber:    data.SenderNumber,
		Content:         data.Content,
		Price:           decimal.Zero,
	}
	if err := s.Store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *SmsService) GetMessage(ctx context.Context, userID, id int) (*models.Message, error) {
	return s.Store.GetMessage(ctx, id, userID)
}

func (s *SmsService) ListMessages(ctx context.Context, userID, page, limit int) ([]models.Message, int64, error) {
	return s.Store.ListMessages(ctx, userID, store.Page{Offset: common.PageOffset(page, limit), Limit: limit})
}

type UpdateSmsDTO struct {
	Status       *models.MessageStatus
	ErrorMessage *string
}

func (s *SmsService) UpdateMessage(ctx context.Context, userID, id int, data UpdateSmsDTO) (*models.Message, error) {
	if data.Status != nil && !data.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, *data.Status)
	}

	var msg *models.Message
	err := s.Store.WithinTx(ctx, func(repo store.Repository) error {
		var err error
		msg, err = repo.GetMessage(ctx, id, userID)
		if err != nil {
			return err
		}
		if data.Status != nil {
			msg.Status = *data.Status
		}
		if data.ErrorMessage != nil {
			msg.ErrorMessage = data.ErrorMessage
		}
		return repo.SaveMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ScheduleRedelivery queues a FAILED outbound message for another publish.
func (s *SmsService) ScheduleRedelivery(ctx context.Context, userID, id int) (*models.Message, error) {
	msg, err := s.Store.GetMessage(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if msg.Direction != models.DirectionOutbound || msg.Status != models.MessageFailed {
		return nil, fmt.Errorf("%w: message %d is %s %s", ErrNotRedeliverable, msg.ID, msg.Direction, msg.Status)
	}
	if s.Queue == nil {
		return nil, ErrRedeliveryUnavailable
	}
	if err := s.Queue.EnqueueRedelivery(ctx, msg.ID, msg.RetryCount); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRedeliveryUnavailable, err)
	}
	logger.WithField("sms_id", msg.ID).Info("Redelivery scheduled")
	return msg, nil
}

// Redeliver publishes a FAILED outbound message again. It is not charged and
// does not count against the SIM quota. Messages no longer FAILED are skipped.
// The message row stays locked from the status check until the outcome is
// saved, so concurrent attempts on one message publish once.
func (s *SmsService) Redeliver(ctx context.Context, id int) (*models.Message, error) {
	var msg *models.Message
	err := s.Store.WithinTx(ctx, func(repo store.Repository) error {
		var err error
		msg, err = repo.LockMessage(ctx, id)
		if err != nil {
			return err
		}
		if msg.Direction != models.DirectionOutbound || msg.Status != models.MessageFailed {
			logger.WithField("sms_id", id).Infof("Skipping redelivery, message is %s", msg.Status)
			return nil
		}

		s.deliver(ctx, msg)
		msg.RetryCount++
		return repo.SaveMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// CarrierStatus probes the carrier connection.
func (s *SmsService) CarrierStatus(ctx context.Context) error {
	if s.Carrier == nil {
		return carrier.ErrCarrierUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.PublishTimeout)
	defer cancel()
	return s.Carrier.Ping(ctx)
}
