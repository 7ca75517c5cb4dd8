package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/jpillora/overseer"
	"github.com/jpillora/overseer/fetcher"

	"sms-gateway/internal/auth"
	"sms-gateway/internal/carrier"
	"sms-gateway/internal/config"
	"sms-gateway/internal/database"
	grpcServer "sms-gateway/internal/grpc"
	"sms-gateway/internal/handlers"
	"sms-gateway/internal/services"
	"sms-gateway/internal/store"
	"sms-gateway/internal/worker"
	"sms-gateway/pkg/graceful"
	"sms-gateway/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.App.LogLevel, cfg.App.LogFormat)

	oc := overseer.Config{
		Program:       program,
		Address:       ":" + cfg.App.Port,
		Debug:         cfg.App.Env == "development",
		RestartSignal: graceful.RestartSignal,
	}
	if cfg.App.BinFilePath != "" {
		oc.Fetcher = &fetcher.File{Path: cfg.App.BinFilePath, Interval: 5 * time.Second}
	}
	overseer.Run(oc)
}

func program(state overseer.State) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	graceful.SetupGracefulShutdown(cancel)

	cfg := config.Load()
	logger.Configure(cfg.App.LogLevel, cfg.App.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.App.GinMode != "" {
		gin.SetMode(cfg.App.GinMode)
	}

	// Store
	st, closeStore, err := openStore(cfg.DB)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	// Carrier
	smsCarrier, err := carrier.New(cfg.Carrier)
	if err != nil {
		logger.Fatalf("Failed to create carrier: %v", err)
	}
	if err := smsCarrier.Connect(ctx); err != nil {
		logger.Warnf("Carrier not reachable at startup, will retry on publish: %v", err)
	}
	defer smsCarrier.Close()

	// Redelivery queue
	queue := worker.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer queue.Close()

	// gRPC health
	grpcSrv := grpcServer.NewServer()
	if err := grpcSrv.StartGRPCServer(cfg.App.GRPCPort); err != nil {
		logger.Fatalf("Failed to start gRPC server: %v", err)
	}
	defer grpcSrv.Stop()

	// Services
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userService := services.NewUserService(st, tokens)
	walletService := services.NewWalletService(st)
	simService := services.NewSimService(st, walletService, cfg.Ledger.ActivationFee, cfg.Ledger.DefaultMessagesLimit)
	smsService := services.NewSmsService(st, walletService, smsCarrier, queue, cfg.Carrier.PublishTimeout)
	apiKeyService := services.NewApiKeyService(st)
	marketplaceService := services.NewMarketplaceService(cfg.Edge.BaseURL, cfg.Edge.APIKey, cfg.Edge.Timeout)
	maintenanceService := services.NewMaintenanceService(st, walletService, simService, smsService, grpcSrv, cfg.Ledger.PendingTransactionTTL)

	maintenanceService.ProbeHealth(ctx)
	scheduler, err := maintenanceService.StartScheduler()
	if err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// HTTP
	router := handlers.NewRouter(&handlers.Handler{
		Users:         userService,
		Wallets:       walletService,
		Sims:          simService,
		Sms:           smsService,
		Marketplace:   marketplaceService,
		ApiKeys:       apiKeyService,
		WebhookSecret: cfg.Webhook.Secret,
	})
	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Infof("%s listening on %s", cfg.App.Name, state.Listener.Addr())
		if err := srv.Serve(state.Listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	select {
	case <-ctx.Done():
	case <-state.GracefulShutdown:
	}

	logger.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown: %v", err)
	}
}

func openStore(cfg *config.DBConfig) (store.Store, func(), error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, nil, err
	}
	return store.NewGormStore(db), func() { database.Close(db) }, nil
}
