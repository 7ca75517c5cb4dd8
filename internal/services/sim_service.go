package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sms-gateway/internal/models"
	"sms-gateway/internal/store"
	"sms-gateway/pkg/common"
	"sms-gateway/pkg/logger"
)

type SimService struct {
	Store                store.Store
	Wallets              *WalletService
	ActivationFee        decimal.Decimal
	DefaultMessagesLimit int
	Now                  func() time.Time
}

func NewSimService(s store.Store, wallets *WalletService, activationFee decimal.Decimal, defaultLimit int) *SimService {
	if defaultLimit <= 0 {
		defaultLimit = models.DefaultMessagesLimit
	}
	return &SimService{
		Store:                s,
		Wallets:              wallets,
		ActivationFee:        activationFee,
		DefaultMessagesLimit: defaultLimit,
		Now:                  time.Now,
	}
}

type CreateSimDTO struct {
	UserId        int
	Iccid         string
	PhoneNumber   string
	MessagesLimit *int
	ExpiryDate    *time.Time
}

func (s *SimService) CreateSim(ctx context.Context, data CreateSimDTO) (*models.Sim, error) {
	iccid := strings.TrimSpace(data.Iccid)
	phone := strings.TrimSpace(data.PhoneNumber)
	if iccid == "" || phone == "" {
		return nil, fmt.Errorf("%w: iccid and phone_number are required", ErrInvalidRequest)
	}

	limit := s.DefaultMessagesLimit
	if data.MessagesLimit != nil {
		if *data.MessagesLimit < 0 {
			return nil, fmt.Errorf("%w: messages_limit must not be negative", ErrInvalidRequest)
		}
		limit = *data.MessagesLimit
	}

	sim := &models.Sim{
		UserId:        data.UserId,
		Iccid:         iccid,
		PhoneNumber:   phone,
		Status:        models.SimActive,
		IsActive:      true,
		MessagesLimit: limit,
		ExpiryDate:    data.ExpiryDate,
	}
	if err := s.Store.CreateSim(ctx, sim); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: sim with this iccid or phone number", ErrConflict)
		}
		return nil, err
	}
	return sim, nil
}

func (s *SimService) ListSims(ctx context.Context, userID int) ([]models.Sim, error) {
	return s.Store.ListSims(ctx, userID)
}

func (s *SimService) GetSim(ctx context.Context, userID, id int) (*models.Sim, error) {
	return s.Store.GetSim(ctx, id, userID)
}

// UpdateSimDTO carries the only fields a caller may change directly.
type UpdateSimDTO struct {
	MessagesLimit *int
	ExpiryDate    *time.Time
}

func (s *SimService) UpdateSim(ctx context.Context, userID, id int, data UpdateSimDTO) (*models.Sim, error) {
	if data.MessagesLimit != nil && *data.MessagesLimit < 0 {
		return nil, fmt.Errorf("%w: messages_limit must not be negative", ErrInvalidRequest)
	}

	var sim *models.Sim
	err := s.Store.WithinTx(ctx, func(repo store.Repository) error {
		sims, err := repo.LockSims(ctx, []int{id}, userID)
		if err != nil {
			return err
		}
		if len(sims) == 0 {
			return store.ErrNotFound
		}
		sim = &sims[0]

		if data.MessagesLimit != nil {
			sim.MessagesLimit = *data.MessagesLimit
		}
		if data.ExpiryDate != nil {
			sim.ExpiryDate = data.ExpiryDate
		}
		return repo.SaveSim(ctx, sim)
	})
	if err != nil {
		return nil, err
	}
	return sim, nil
}

func (s *SimService) DeleteSim(ctx context.Context, userID, id int) error {
	return s.Store.DeleteSim(ctx, id, userID)
}

// ActivateSim makes a SIM usable again and charges the activation fee
// through the ledger. Nothing is written when the wallet cannot cover the fee.
func (s *SimService) ActivateSim(ctx context.Context, userID, id int) (*models.Sim, error) {
	if _, err := s.Wallets.GetOrCreateWallet(ctx, userID); err != nil {
		return nil, err
	}

	var sim *models.Sim
	err := s.Store.WithinTx(ctx, func(repo store.Repository) error {
		wallet, err := repo.LockWallet(ctx, userID)
		if err != nil {
			return err
		}
		sims, err := repo.LockSims(ctx, []int{id}, userID)
		if err != nil {
			return err
		}
		if len(sims) == 0 {
			return store.ErrNotFound
		}
		sim = &sims[0]

		if sim.Status == models.SimActive {
			return fmt.Errorf("%w: sim %d is already active", ErrAlreadyInState, sim.ID)
		}
		if sim.ExpiredAt(s.Now()) {
			return fmt.Errorf("%w: sim %d expired on %s", ErrSimExpired, sim.ID, sim.ExpiryDate.Format(time.DateOnly))
		}

		if s.ActivationFee.IsPositive() {
			fee := &models.Transaction{
				UserId:      userID,
				WalletId:    wallet.ID,
				Type:        models.TransactionDebit,
				Amount:      s.ActivationFee,
				Status:      models.TransactionPending,
				Description: fmt.Sprintf("SIM activation fee for %s", sim.PhoneNumber),
				Reference:   common.GenerateTrxNo(),
			}
			if err := repo.CreateTransaction(ctx, fee); err != nil {
				return err
			}
			if err := transition(ctx, repo, fee, models.TransactionCompleted); err != nil {
				return err
			}
		}

		sim.Status = models.SimActive
		sim.IsActive = true
		return repo.SaveSim(ctx, sim)
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("SIM %d activated for user %d", sim.ID, userID)
	return sim, nil
}

func (s *SimService) DeactivateSim(ctx context.Context, userID, id int) (*models.Sim, error) {
	var sim *models.Sim
	err := s.Store.WithinTx(ctx, func(repo store.Repository) error {
		sims, err := repo.LockSims(ctx, []int{id}, userID)
		if err != nil {
			return err
		}
		if len(sims) == 0 {
			return store.ErrNotFound
		}
		sim = &sims[0]

		if sim.Status != models.SimActive {
			return fmt.Errorf("%w: sim %d is %s", ErrAlreadyInState, sim.ID, sim.Status)
		}
		sim.Status = models.SimInactive
		sim.IsActive = false
		return repo.SaveSim(ctx, sim)
	})
	if err != nil {
		return nil, err
	}
	return sim, nil
}

// ExpireSims marks every SIM past its expiry date as EXPIRED.
func (s *SimService) ExpireSims(ctx context.Context) (int64, error) {
	return s.Store.ExpireSims(ctx, s.Now())
}
