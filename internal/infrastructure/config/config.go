package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // business timezone must resolve on minimal images

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Business  BusinessConfig
	Sources   SourcesConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	Port     string
	Timezone string // IANA name the business day is computed in
}

// Location resolves the business timezone
func (a AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app.timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	ShutdownTimeout  time.Duration
	TrustedProxies   []string
	CORSAllowOrigins []string
}

// SchedulerConfig holds day-close scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	DailyCronSchedule string
	JobTimeout        time.Duration
	LockTTL           time.Duration
}

// BusinessConfig holds the restaurant's accounting rules
type BusinessConfig struct {
	LunchUnitPrices            []decimal.Decimal
	MaxLunchUnits              int
	BackfillWindowDays         int
	PersistOpenDay             bool
	ExpenseProviderPlaceholder string
	ProcessedKeyTTL            time.Duration
}

// SourcesConfig holds source adapter settings
type SourcesConfig struct {
	PollInterval time.Duration
	Enabled      []string // source tags to subscribe; empty means all
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	LogsEnabled       bool // Export zap logs through OTLP as well as the configured output
	// Database tracing options
	DBTraceEnabled bool // Enable database query tracing (otelgorm)
	DBLogFullSQL   bool // Log full SQL statements (dev only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DASH_ prefix (e.g., DASH_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// defaults whose zero value is a meaningful setting
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("business.backfill_window_days", 7)

	v.SetEnvPrefix("DASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	prices, err := parsePrices(v.GetStringSlice("business.lunch_unit_prices"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			Timezone: v.GetString("app.timezone"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:   v.GetBool("redis.enabled"),
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			DailyCronSchedule: v.GetString("scheduler.daily_cron_schedule"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			LockTTL:           v.GetDuration("scheduler.lock_ttl"),
		},
		Business: BusinessConfig{
			LunchUnitPrices:            prices,
			MaxLunchUnits:              v.GetInt("business.max_lunch_units"),
			BackfillWindowDays:         v.GetInt("business.backfill_window_days"),
			PersistOpenDay:             v.GetBool("business.persist_open_day"),
			ExpenseProviderPlaceholder: v.GetString("business.expense_provider_placeholder"),
			ProcessedKeyTTL:            v.GetDuration("business.processed_key_ttl"),
		},
		Sources: SourcesConfig{
			PollInterval: v.GetDuration("sources.poll_interval"),
			Enabled:      v.GetStringSlice("sources.enabled"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parsePrices accepts numbers or peso strings such as "13.000"
func parsePrices(raw []string) ([]decimal.Decimal, error) {
	prices := make([]decimal.Decimal, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ""))
		if err != nil {
			return nil, fmt.Errorf("business.lunch_unit_prices: invalid price %q: %w", s, err)
		}
		prices = append(prices, d)
	}
	return prices, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "comedor-dashboard"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "America/Bogota"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "comedor"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "dashboard:"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 64 << 10
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Scheduler.DailyCronSchedule == "" {
		cfg.Scheduler.DailyCronSchedule = "5 0 * * *"
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 5 * time.Minute
	}
	if cfg.Scheduler.LockTTL == 0 {
		cfg.Scheduler.LockTTL = 10 * time.Minute
	}
	if len(cfg.Business.LunchUnitPrices) == 0 {
		cfg.Business.LunchUnitPrices = []decimal.Decimal{
			decimal.NewFromInt(13000),
			decimal.NewFromInt(14000),
			decimal.NewFromInt(15000),
			decimal.NewFromInt(16000),
		}
	}
	if cfg.Business.MaxLunchUnits == 0 {
		cfg.Business.MaxLunchUnits = 40
	}
	if cfg.Business.ExpenseProviderPlaceholder == "" {
		cfg.Business.ExpenseProviderPlaceholder = "Sin proveedor"
	}
	if cfg.Business.ProcessedKeyTTL == 0 {
		cfg.Business.ProcessedKeyTTL = 36 * time.Hour
	}
	if cfg.Sources.PollInterval == 0 {
		cfg.Sources.PollInterval = 15 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "comedor-dashboard"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if _, err := c.App.Location(); err != nil {
		return err
	}

	for _, p := range c.Business.LunchUnitPrices {
		if !p.IsPositive() {
			return fmt.Errorf("business.lunch_unit_prices must be positive, got %s", p)
		}
	}
	if c.Business.MaxLunchUnits < 1 {
		return fmt.Errorf("business.max_lunch_units must be at least 1")
	}
	if c.Business.BackfillWindowDays < 0 {
		return fmt.Errorf("business.backfill_window_days cannot be negative")
	}
	if c.Sources.PollInterval < time.Second {
		return fmt.Errorf("sources.poll_interval must be at least 1s, got %s", c.Sources.PollInterval)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
