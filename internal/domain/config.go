package domain

import (
	"os"
	"strconv"
	"time"
)

// Config holds the complete Sentinel configuration.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Tier       Tier             `json:"tier"`
	Repository RepositoryConfig `json:"repository"`
	Counter    CounterConfig    `json:"counter"`
	EventBus   EventBusConfig   `json:"eventBus"`
	Consortium ConsortiumConfig `json:"consortium"`
	Scoring    ScoringConfig    `json:"scoring"`
	Logging    LoggingConfig    `json:"logging"`
	Tracing    TracingConfig    `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// ConsortiumConfig controls the cross-tenant intelligence pool.
type ConsortiumConfig struct {
	Enabled bool `json:"enabled"`

	// Salt for the one-way identifier hash. Must be identical across all
	// nodes sharing a pool.
	HashSalt string `json:"-"`

	// Alert thresholds.
	StackingTenants      int     `json:"stackingTenants"`      // distinct tenants for a loan-stacking alert
	FraudsterOccurrences int     `json:"fraudsterOccurrences"` // occurrences for a known-fraudster alert
	HighExposureAmount   float64 `json:"highExposureAmount"`

	// Loan-stacking scan over recent transactions at other tenants.
	StackingWindow time.Duration `json:"stackingWindow"`
	SampleCap      int           `json:"sampleCap"`
}

// ScoringConfig holds the combiner's tunables. These are business choices,
// not protocol guarantees, so they live in configuration.
type ScoringConfig struct {
	// CriticalCeiling is the vertical-independent score at which any
	// transaction is declined as critical.
	CriticalCeiling float64 `json:"criticalCeiling"`

	// ReviewRatio scales the vertical threshold down to the review band.
	ReviewRatio float64 `json:"reviewRatio"`

	// ML blend. When enabled and a prediction is supplied, final score is
	// MLBlendWeight*ml + (1-MLBlendWeight)*rules.
	MLEnabled     bool    `json:"mlEnabled"`
	MLBlendWeight float64 `json:"mlBlendWeight"`

	// Soft budget for the context aggregator's external lookups.
	AggregatorBudget time.Duration `json:"aggregatorBudget"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
	Endpoint    string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + in-memory counters + channel bus.
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + Redis + NATS.
	TierPro Tier = "pro"
)

// DefaultConfig returns the Community tier defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./sentinel.db",
		},
		Counter: CounterConfig{
			Type:      "memory",
			WindowTTL: 24 * time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Consortium: ConsortiumConfig{
			Enabled:              true,
			HashSalt:             "sentinel-dev-salt",
			StackingTenants:      3,
			FraudsterOccurrences: 2,
			HighExposureAmount:   5_000_000,
			StackingWindow:       7 * 24 * time.Hour,
			SampleCap:            5,
		},
		Scoring: ScoringConfig{
			CriticalCeiling:  80,
			ReviewRatio:      0.7,
			MLEnabled:        false,
			MLBlendWeight:    0.7,
			AggregatorBudget: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{Enabled: false, ServiceName: "sentinel"},
	}
}

// ProConfig returns the Pro tier configuration.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "sentinel",
	}
	cfg.Counter = CounterConfig{
		Type:      "redis",
		RedisAddr: "localhost:6379",
		WindowTTL: 24 * time.Hour,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Scoring.MLEnabled = true
	cfg.Tracing.Enabled = true
	return cfg
}

// ApplyEnv overlays SENTINEL_* environment variables onto the config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SENTINEL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("SENTINEL_SQLITE_PATH"); v != "" {
		c.Repository.SQLitePath = v
	}
	if v := os.Getenv("SENTINEL_POSTGRES_HOST"); v != "" {
		c.Repository.PostgresHost = v
	}
	if v := os.Getenv("SENTINEL_POSTGRES_USER"); v != "" {
		c.Repository.PostgresUser = v
	}
	if v := os.Getenv("SENTINEL_POSTGRES_PASSWORD"); v != "" {
		c.Repository.PostgresPassword = v
	}
	if v := os.Getenv("SENTINEL_POSTGRES_DB"); v != "" {
		c.Repository.PostgresDB = v
	}
	if v := os.Getenv("SENTINEL_REDIS_ADDR"); v != "" {
		c.Counter.RedisAddr = v
	}
	if v := os.Getenv("SENTINEL_NATS_URL"); v != "" {
		c.EventBus.NATSUrl = v
	}
	if v := os.Getenv("SENTINEL_CONSORTIUM_SALT"); v != "" {
		c.Consortium.HashSalt = v
	}
	if v := os.Getenv("SENTINEL_CONSORTIUM_ENABLED"); v != "" {
		c.Consortium.Enabled = v == "true"
	}
	if v := os.Getenv("SENTINEL_ML_ENABLED"); v != "" {
		c.Scoring.MLEnabled = v == "true"
	}
	if v := os.Getenv("SENTINEL_ML_BLEND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			c.Scoring.MLBlendWeight = f
		}
	}
}
