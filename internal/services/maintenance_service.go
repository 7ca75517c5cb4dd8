package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"sms-gateway/internal/store"
	"sms-gateway/pkg/logger"
)

const (
	// HealthService is the overall service name reported to health checkers.
	HealthService = ""
	// CarrierHealthService reports carrier reachability separately, since
	// dispatch keeps working (with FAILED messages) while the carrier is down.
	CarrierHealthService = "sms.carrier"
)

type HealthReporter interface {
	SetServing(service string, serving bool)
}

type MaintenanceService struct {
	Store      store.Store
	Wallets    *WalletService
	Sims       *SimService
	Sms        *SmsService
	Health     HealthReporter
	PendingTTL time.Duration
	Now        func() time.Time
}

func NewMaintenanceService(s store.Store, wallets *WalletService, sims *SimService, sms *SmsService, health HealthReporter, pendingTTL time.Duration) *MaintenanceService {
	return &MaintenanceService{
		Store:      s,
		Wallets:    wallets,
		Sims:       sims,
		Sms:        sms,
		Health:     health,
		PendingTTL: pendingTTL,
		Now:        time.Now,
	}
}

func (s *MaintenanceService) ExpireSims(ctx context.Context) error {
	n, err := s.Sims.ExpireSims(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Infof("Expired %d SIM(s)", n)
	}
	return nil
}

func (s *MaintenanceService) CancelStalePending(ctx context.Context) error {
	cutoff := s.Now().Add(-s.PendingTTL)
	n, err := s.Wallets.CancelStalePending(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Infof("Cancelled %d stale pending transaction(s)", n)
	}
	return nil
}

// ProbeHealth checks the store and the carrier and publishes the result.
// It reports whether the store is reachable.
func (s *MaintenanceService) ProbeHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	dbErr := s.Store.Ping(ctx)
	if dbErr != nil {
		logger.Errorf("Health probe: store unreachable: %v", dbErr)
	}
	carrierErr := s.Sms.CarrierStatus(ctx)
	if carrierErr != nil {
		logger.Warnf("Health probe: carrier unreachable: %v", carrierErr)
	}

	if s.Health != nil {
		s.Health.SetServing(HealthService, dbErr == nil)
		s.Health.SetServing(CarrierHealthService, carrierErr == nil)
	}
	return dbErr == nil
}

// StartScheduler registers the periodic jobs and starts the cron runner.
// The caller stops it on shutdown.
func (s *MaintenanceService) StartScheduler() (*cron.Cron, error) {
	c := cron.New()

	jobs := []struct {
		spec string
		name string
		run  func(context.Context) error
	}{
		{"@daily", "ExpireSims", s.ExpireSims},
		{"*/10 * * * *", "CancelStalePending", s.CancelStalePending},
		{"@every 30s", "ProbeHealth", func(ctx context.Context) error {
			s.ProbeHealth(ctx)
			return nil
		}},
	}

	for _, job := range jobs {
		job := job
		_, err := c.AddFunc(job.spec, func() {
			logger.Debugf("Running scheduled %s task...", job.name)
			if err := job.run(context.Background()); err != nil {
				logger.Errorf("Error in %s: %v", job.name, err)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	c.Start()
	logger.Info("Maintenance scheduler started")
	return c, nil
}
