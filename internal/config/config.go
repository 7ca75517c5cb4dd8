package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"sms-gateway/pkg/logger"
)

type Config struct {
	App     *AppConfig
	DB      *DBConfig
	Redis   *RedisConfig
	Carrier *CarrierConfig
	Auth    *AuthConfig
	Ledger  *LedgerConfig
	Edge    *EdgeConfig
	Webhook *WebhookConfig
}

type AppConfig struct {
	Name        string
	Env         string
	Port        string
	GRPCPort    string
	GinMode     string
	LogLevel    string
	LogFormat   string
	BinFilePath string
}

type DBConfig struct {
	Driver          string // mysql | postgres | sqlite
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CarrierConfig struct {
	Driver         string // redis | mqtt
	Host           string
	Port           string
	Channel        string
	ClientID       string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// DevJWTSecret is the signing key used when JWT_SECRET is unset. It is only
// accepted while APP_ENV=development.
const DevJWTSecret = "change-me"

var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set outside development")

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Validate rejects the placeholder signing key in every environment except
// development.
func (c *AuthConfig) Validate(env string) error {
	if env == "development" {
		return nil
	}
	if c.JWTSecret == "" || c.JWTSecret == DevJWTSecret {
		return fmt.Errorf("%w (APP_ENV=%s)", ErrInsecureJWTSecret, env)
	}
	return nil
}

type LedgerConfig struct {
	ActivationFee         decimal.Decimal
	DefaultMessagesLimit  int
	PendingTransactionTTL time.Duration
}

type EdgeConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type WebhookConfig struct {
	Secret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using system environment variables")
	}

	return &Config{
		App:     LoadAppConfig(),
		DB:      LoadDBConfig(),
		Redis:   LoadRedisConfig(),
		Carrier: LoadCarrierConfig(),
		Auth:    LoadAuthConfig(),
		Ledger:  LoadLedgerConfig(),
		Edge:    LoadEdgeConfig(),
		Webhook: &WebhookConfig{Secret: os.Getenv("WEBHOOK_SECRET")},
	}
}

// Validate checks settings that must not fall back to defaults in a
// deployed environment.
func (c *Config) Validate() error {
	return c.Auth.Validate(c.App.Env)
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "sms-gateway"),
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		GRPCPort:    getEnv("GRPC_PORT", "50051"),
		GinMode:     os.Getenv("GIN_MODE"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		BinFilePath: os.Getenv("APP_BIN_FILE"),
	}
}

func LoadDBConfig() *DBConfig {
	driver := getEnv("DB_DRIVER", "mysql")
	defaultPort := "3306"
	if driver == "postgres" {
		defaultPort = "5432"
	}

	return &DBConfig{
		Driver:          driver,
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnv("DB_PORT", defaultPort),
		User:            getEnv("DB_USER", "root"),
		Password:        os.Getenv("DB_PASSWORD"),
		Name:            getEnv("DB_NAME", "sms_gateway"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
	}
}

func LoadRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:     getEnv("REDIS_URL", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
}

func LoadCarrierConfig() *CarrierConfig {
	driver := getEnv("CARRIER_DRIVER", "mqtt")
	defaultPort := "1883"
	if driver == "redis" {
		defaultPort = "6379"
	}

	return &CarrierConfig{
		Driver:         driver,
		Host:           getEnv("CARRIER_HOST", "localhost"),
		Port:           getEnv("CARRIER_PORT", defaultPort),
		Channel:        getEnv("CARRIER_CHANNEL", "sms/send"),
		ClientID:       getEnv("CARRIER_CLIENT_ID", "sms-gateway"),
		ConnectTimeout: getEnvAsDuration("CARRIER_CONNECT_TIMEOUT", 5*time.Second),
		PublishTimeout: getEnvAsDuration("CARRIER_PUBLISH_TIMEOUT", 5*time.Second),
	}
}

func LoadAuthConfig() *AuthConfig {
	return &AuthConfig{
		JWTSecret: getEnv("JWT_SECRET", DevJWTSecret),
		TokenTTL:  getEnvAsDuration("JWT_TTL", 24*time.Hour),
	}
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		ActivationFee:         getEnvAsDecimal("SIM_ACTIVATION_FEE", decimal.RequireFromString("10.00")),
		DefaultMessagesLimit:  getEnvAsInt("SIM_DEFAULT_MESSAGES_LIMIT", 150),
		PendingTransactionTTL: getEnvAsDuration("PENDING_TRANSACTION_TTL", 24*time.Hour),
	}
}

func LoadEdgeConfig() *EdgeConfig {
	return &EdgeConfig{
		BaseURL: os.Getenv("EDGE_BASE_URL"),
		APIKey:  os.Getenv("EDGE_API_KEY"),
		Timeout: getEnvAsDuration("EDGE_TIMEOUT", 10*time.Second),
	}
}

// getEnv returns the value of the environment variable or a default value if not set
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvAsInt returns the value of the environment variable as an integer or a default value if not set
func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		logger.Warnf("invalid %s=%q, using %d", key, val, defaultVal)
	}
	return defaultVal
}

// getEnvAsDuration accepts Go duration strings ("5s", "24h").
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
		logger.Warnf("invalid %s=%q, using %s", key, val, defaultVal)
	}
	return defaultVal
}

func getEnvAsDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val := os.Getenv(key); val != "" {
		if d, err := decimal.NewFromString(val); err == nil && !d.IsNegative() {
			return d.Round(2)
		}
		logger.Warnf("invalid %s=%q, using %s", key, val, defaultVal.StringFixed(2))
	}
	return defaultVal
}
