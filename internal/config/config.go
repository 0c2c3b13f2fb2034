package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/beanlab/bean-curator/internal/domain"
)

// weightSumTolerance is how far the scoring weights may drift from 1.0
const weightSumTolerance = 1e-6

var validate = validator.New()

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// StoreConfig selects the catalog store backend
type StoreConfig struct {
	Driver  string `mapstructure:"driver" validate:"oneof=postgres csv"`
	CSVPath string `mapstructure:"csv_path" validate:"required_if=Driver csv"`
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	WorkerPoolSize  int `mapstructure:"pool_size" validate:"min=1"`
	WorkerQueueSize int `mapstructure:"queue_size" validate:"min=0"`
}

// ShopConfig describes one storefront to sync from
type ShopConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	Platform string `mapstructure:"platform" validate:"required"`
	BaseURL  string `mapstructure:"base_url" validate:"required,url"`
	Currency string `mapstructure:"currency" validate:"omitempty,len=3"`
}

// SourceConfig holds storefront fetching configuration
type SourceConfig struct {
	Shops             []ShopConfig  `mapstructure:"shops" validate:"dive"`
	FilterPath        string        `mapstructure:"filter_path"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"min=1"`
	Worker            WorkerConfig  `mapstructure:"worker"`
}

// ModelConfig holds language model endpoint configuration
type ModelConfig struct {
	Endpoint   string        `mapstructure:"endpoint" validate:"required,url"`
	Model      string        `mapstructure:"model" validate:"required"`
	APIKey     string        `mapstructure:"api_key"`
	APIVersion string        `mapstructure:"api_version"`
	MaxTokens  int           `mapstructure:"max_tokens" validate:"min=1"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// EnrichConfig holds enrichment engine configuration
type EnrichConfig struct {
	Model             ModelConfig   `mapstructure:"model"`
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"min=1"`
	RateLimitCooldown time.Duration `mapstructure:"rate_limit_cooldown"`
	Pacing            time.Duration `mapstructure:"pacing"`
	BatchSize         int           `mapstructure:"batch_size" validate:"min=0"` // 0 means unlimited
}

// WeightsConfig holds the scoring weights, which must sum to 1
type WeightsConfig struct {
	Quality     float64 `mapstructure:"quality" validate:"min=0,max=1"`
	Seasonality float64 `mapstructure:"seasonality" validate:"min=0,max=1"`
	Value       float64 `mapstructure:"value" validate:"min=0,max=1"`
	Versatility float64 `mapstructure:"versatility" validate:"min=0,max=1"`
}

// Sum returns the total of all weights
func (w WeightsConfig) Sum() float64 {
	return w.Quality + w.Seasonality + w.Value + w.Versatility
}

// ScoringConfig holds scoring configuration
type ScoringConfig struct {
	Weights WeightsConfig `mapstructure:"weights"`
}

// SelectionConfig holds selection engine configuration
type SelectionConfig struct {
	Mode           string `mapstructure:"mode" validate:"oneof=rules assisted"`
	ShortlistSize  int    `mapstructure:"shortlist_size" validate:"min=1"`
	PicksPerBucket int    `mapstructure:"picks_per_bucket" validate:"min=1,ltefield=ShortlistSize"`
	CooldownDays   int    `mapstructure:"cooldown_days" validate:"min=0"`
	FreshnessDays  int    `mapstructure:"freshness_days" validate:"min=1"`
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	Model            ModelConfig   `mapstructure:"model"`
	Languages        []string      `mapstructure:"languages" validate:"min=1,dive,required"`
	BreakerFailures  uint32        `mapstructure:"breaker_failures" validate:"min=1"`
	BreakerOpenTime  time.Duration `mapstructure:"breaker_open_time"`
	FallbackTemplate string        `mapstructure:"fallback_template"`
}

// ScheduleConfig holds the stage intervals for the worker loop
type ScheduleConfig struct {
	SyncInterval   time.Duration `mapstructure:"sync_interval"`
	EnrichInterval time.Duration `mapstructure:"enrich_interval"`
	CurateInterval time.Duration `mapstructure:"curate_interval"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// CuratorWorkerConfig holds configuration for the pipeline worker
type CuratorWorkerConfig struct {
	BaseConfig     `mapstructure:",squash"`
	Store          StoreConfig     `mapstructure:"store"`
	Database       DatabaseConfig  `mapstructure:"database"`
	NATS           NATSConfig      `mapstructure:"nats"`
	Source         SourceConfig    `mapstructure:"source"`
	Enrich         EnrichConfig    `mapstructure:"enrich"`
	Scoring        ScoringConfig   `mapstructure:"scoring"`
	Selection      SelectionConfig `mapstructure:"selection"`
	Report         ReportConfig    `mapstructure:"report"`
	Schedule       ScheduleConfig  `mapstructure:"schedule"`
	MetricsAddress string          `mapstructure:"metrics_address"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig    `mapstructure:"server"`
	Store      StoreConfig     `mapstructure:"store"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Auth       AuthConfig      `mapstructure:"auth"`
	Scoring    ScoringConfig   `mapstructure:"scoring"`
	Selection  SelectionConfig `mapstructure:"selection"`
}

// LoadCuratorWorkerConfig loads configuration for the pipeline worker
func LoadCuratorWorkerConfig(configFile string, envPath string) (*CuratorWorkerConfig, error) {
	v := configureViper("worker", configFile, envPath)

	// Set defaults
	setStoreDefaults(v)
	setPipelineDefaults(v)
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "CURATOR_REPORTS")
	v.SetDefault("nats.subject_prefix", "reports")
	v.SetDefault("nats.connection_name", "bean-curator-worker")
	v.SetDefault("source.http_timeout", "30s")
	v.SetDefault("source.requests_per_second", 2)
	v.SetDefault("source.burst", 1)
	v.SetDefault("source.worker.pool_size", 4)
	v.SetDefault("source.worker.queue_size", 64)
	v.SetDefault("enrich.model.endpoint", "https://api.anthropic.com/v1/messages")
	v.SetDefault("enrich.model.model", "claude-sonnet-4-20250514")
	v.SetDefault("enrich.model.api_version", "2023-06-01")
	v.SetDefault("enrich.model.max_tokens", 1500)
	v.SetDefault("enrich.model.timeout", "60s")
	v.SetDefault("enrich.max_attempts", 2)
	v.SetDefault("enrich.rate_limit_cooldown", "120s")
	v.SetDefault("enrich.pacing", "2s")
	v.SetDefault("enrich.batch_size", 10)
	v.SetDefault("report.model.endpoint", "https://api.anthropic.com/v1/messages")
	v.SetDefault("report.model.model", "claude-sonnet-4-20250514")
	v.SetDefault("report.model.api_version", "2023-06-01")
	v.SetDefault("report.model.max_tokens", 4000)
	v.SetDefault("report.model.timeout", "120s")
	v.SetDefault("report.languages", []string{"en"})
	v.SetDefault("report.breaker_failures", 3)
	v.SetDefault("report.breaker_open_time", "5m")
	v.SetDefault("schedule.sync_interval", "6h")
	v.SetDefault("schedule.enrich_interval", "1h")
	v.SetDefault("schedule.curate_interval", "168h")
	v.SetDefault("metrics_address", ":9102")

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if !errors.As(err, &error) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config CuratorWorkerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the worker configuration, including credentials and scoring weights
func (c *CuratorWorkerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid worker config: %w", err)
	}
	if err := validateWeights(c.Scoring.Weights); err != nil {
		return err
	}
	if c.Enrich.Model.APIKey == "" {
		return fmt.Errorf("%w: enrich.model.api_key", domain.ErrMissingCredentials)
	}
	if c.Report.Model.APIKey == "" {
		// Generation shares the enrichment credential unless told otherwise
		c.Report.Model.APIKey = c.Enrich.Model.APIKey
	}

	return nil
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	setStoreDefaults(v)
	setPipelineDefaults(v)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if !errors.As(err, &error) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid api config: %w", err)
	}
	if err := validateWeights(config.Scoring.Weights); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateWeights fails when the scoring weights do not sum to 1
func validateWeights(w WeightsConfig) error {
	if math.Abs(w.Sum()-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: scoring weights sum to %.4f", domain.ErrInvalidWeights, w.Sum())
	}
	return nil
}

func setStoreDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.csv_path", "data/catalog.csv")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
}

func setPipelineDefaults(v *viper.Viper) {
	v.SetDefault("scoring.weights.quality", 0.35)
	v.SetDefault("scoring.weights.seasonality", 0.20)
	v.SetDefault("scoring.weights.value", 0.25)
	v.SetDefault("scoring.weights.versatility", 0.20)
	v.SetDefault("selection.mode", "rules")
	v.SetDefault("selection.shortlist_size", 5)
	v.SetDefault("selection.picks_per_bucket", 2)
	v.SetDefault("selection.cooldown_days", 14)
	v.SetDefault("selection.freshness_days", 7)
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("BEAN_CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"metrics_address",
		// Store
		"store.driver",
		"store.csv_path",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.subject_prefix",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Source
		"source.filter_path",
		"source.http_timeout",
		"source.requests_per_second",
		"source.burst",
		"source.worker.pool_size",
		"source.worker.queue_size",
		// Enrichment
		"enrich.model.endpoint",
		"enrich.model.model",
		"enrich.model.api_key",
		"enrich.model.api_version",
		"enrich.model.max_tokens",
		"enrich.model.timeout",
		"enrich.max_attempts",
		"enrich.rate_limit_cooldown",
		"enrich.pacing",
		"enrich.batch_size",
		// Scoring
		"scoring.weights.quality",
		"scoring.weights.seasonality",
		"scoring.weights.value",
		"scoring.weights.versatility",
		// Selection
		"selection.mode",
		"selection.shortlist_size",
		"selection.picks_per_bucket",
		"selection.cooldown_days",
		"selection.freshness_days",
		// Report
		"report.model.endpoint",
		"report.model.model",
		"report.model.api_key",
		"report.model.api_version",
		"report.model.max_tokens",
		"report.model.timeout",
		"report.languages",
		"report.breaker_failures",
		"report.breaker_open_time",
		"report.fallback_template",
		// Schedule
		"schedule.sync_interval",
		"schedule.enrich_interval",
		"schedule.curate_interval",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// CooldownWindow returns the selection cooldown as a duration
func (c SelectionConfig) CooldownWindow() time.Duration {
	return time.Duration(c.CooldownDays) * 24 * time.Hour
}

// FreshnessWindow returns the freshness window as a duration
func (c SelectionConfig) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessDays) * 24 * time.Hour
}
