package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Oracle        OracleConfig
	Chain         ChainConfig
	Engine        EngineConfig
	Notify        NotifyConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"mantleflow"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OracleConfig configures the market data oracle client and price cache
type OracleConfig struct {
	BaseURL      string        `envconfig:"ORACLE_BASE_URL" required:"true"`
	APIKey       string        `envconfig:"ORACLE_API_KEY"`
	Timeout      time.Duration `envconfig:"ORACLE_TIMEOUT" default:"10s"`
	CacheTTL     time.Duration `envconfig:"ORACLE_CACHE_TTL" default:"60s"`
	CandleLimit  int           `envconfig:"ORACLE_CANDLE_LIMIT" default:"100"`
	MetricPeriod int           `envconfig:"ORACLE_METRIC_PERIOD" default:"14"`
}

// ChainConfig configures the Mantle RPC endpoint and the balance ledger contract
type ChainConfig struct {
	RPCURL        string            `envconfig:"CHAIN_RPC_URL" required:"true"`
	ChainID       int64             `envconfig:"CHAIN_ID" default:"5000"`
	LedgerAddress string            `envconfig:"LEDGER_CONTRACT_ADDRESS" required:"true"`
	BotPrivateKey string            `envconfig:"BOT_PRIVATE_KEY" required:"true"`
	ConfirmWait   time.Duration     `envconfig:"CHAIN_CONFIRM_TIMEOUT" default:"2m"`
	QuoteToken    string            `envconfig:"QUOTE_TOKEN" default:"USDT"`
	TokenAddrs    map[string]string `envconfig:"TOKEN_ADDRESSES" required:"true"`
	TokenDecimals map[string]int32  `envconfig:"TOKEN_DECIMALS" required:"true"`
}

// EngineConfig contains the scan loop timing
type EngineConfig struct {
	PollInterval   time.Duration `envconfig:"ENGINE_POLL_INTERVAL" default:"30s"`
	ExecutionDelay time.Duration `envconfig:"ENGINE_EXECUTION_DELAY" default:"2s"`
	Enabled        bool          `envconfig:"ENGINE_ENABLED" default:"true"`
}

type NotifyConfig struct {
	SMTPHost      string `envconfig:"SMTP_HOST"`
	SMTPPort      int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser      string `envconfig:"SMTP_USER"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`
	FromAddress   string `envconfig:"SMTP_FROM" default:"alerts@mantleflow.io"`
	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
	Port    int  `envconfig:"METRICS_PORT" default:"9090"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
