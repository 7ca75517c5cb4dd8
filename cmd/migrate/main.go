package main

import (
	"sms-gateway/internal/config"
	"sms-gateway/internal/database"
	"sms-gateway/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.App.LogLevel, cfg.App.LogFormat)

	// Initialize Database
	db, err := database.Connect(cfg.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run Migrations
	logger.Info("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	logger.Info("Migrations completed successfully!")
}
