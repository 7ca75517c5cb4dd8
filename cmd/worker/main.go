package main

import (
	"context"

	"github.com/hibiken/asynq"

	"sms-gateway/internal/carrier"
	"sms-gateway/internal/config"
	"sms-gateway/internal/consumers"
	"sms-gateway/internal/database"
	"sms-gateway/internal/services"
	"sms-gateway/internal/store"
	"sms-gateway/internal/worker"
	"sms-gateway/pkg/graceful"
	"sms-gateway/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	graceful.SetupGracefulShutdown(cancel)

	cfg := config.Load()
	logger.Configure(cfg.App.LogLevel, cfg.App.LogFormat)

	// Connect DB
	db, err := database.Connect(cfg.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)
	st := store.NewGormStore(db)

	// Carrier
	smsCarrier, err := carrier.New(cfg.Carrier)
	if err != nil {
		logger.Fatalf("Failed to create carrier: %v", err)
	}
	if err := smsCarrier.Connect(ctx); err != nil {
		logger.Warnf("Carrier not reachable at startup, will retry on publish: %v", err)
	}
	defer smsCarrier.Close()

	// Services
	walletService := services.NewWalletService(st)
	smsService := services.NewSmsService(st, walletService, smsCarrier, nil, cfg.Carrier.PublishTimeout)

	// Processor
	processor := consumers.NewMessageProcessor(smsService)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	logger.Info("Starting Asynq Worker...")
	if err := worker.StartWorker(ctx, redisOpt, processor); err != nil {
		logger.Errorf("Worker stopped: %v", err)
	}
}
