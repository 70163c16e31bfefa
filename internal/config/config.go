// Package config provides configuration management for Keeper.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_URL, ABUSE_LIMIT)
// 3. Default values
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Gateway kinds.
const (
	GatewayLog  = "log"
	GatewayHTTP = "http"
)

// Config is the root configuration structure.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
	Security     SecurityConfig     `mapstructure:"security"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Router       RouterConfig       `mapstructure:"router"`
	Abuse        AbuseConfig        `mapstructure:"abuse"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Access       AccessConfig       `mapstructure:"access"`
	Publishing   PublishingConfig   `mapstructure:"publishing"`
	Gamification GamificationConfig `mapstructure:"gamification"`
	Audit        AuditConfig        `mapstructure:"audit"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Gateway      GatewayConfig      `mapstructure:"gateway"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the persistence store and holds PostgreSQL settings.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // memory or postgres
	URL    string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SecurityConfig contains admin API authentication settings.
type SecurityConfig struct {
	AdminJWTKey   string        `mapstructure:"admin_jwt_key"`
	TokenIssuer   string        `mapstructure:"token_issuer"`
	AdminTokenTTL time.Duration `mapstructure:"admin_token_ttl"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	JobPoolSize     int `mapstructure:"job_pool_size"`
	ServicePoolSize int `mapstructure:"service_pool_size"`
}

// RouterConfig bounds handler chains.
type RouterConfig struct {
	MaxChainDepth int `mapstructure:"max_chain_depth"`
}

// AbuseConfig configures the per-actor sliding window.
type AbuseConfig struct {
	Limit    int           `mapstructure:"limit"`
	Window   time.Duration `mapstructure:"window"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// SchedulerConfig configures the tick and the cadence of built-in sweeps.
type SchedulerConfig struct {
	Tick                    time.Duration `mapstructure:"tick"`
	SubscriptionSweepHour   int           `mapstructure:"subscription_sweep_hour"`
	SubscriptionSweepMinute int           `mapstructure:"subscription_sweep_minute"`
	JoinSweepInterval       time.Duration `mapstructure:"join_sweep_interval"`
	PostSweepInterval       time.Duration `mapstructure:"post_sweep_interval"`
	MissionTimeoutInterval  time.Duration `mapstructure:"mission_timeout_interval"`
}

// AccessConfig configures paid access and admissions.
type AccessConfig struct {
	PaidChannelID int64         `mapstructure:"paid_channel_id"`
	JoinDelay     time.Duration `mapstructure:"join_delay"`
	ReminderDays  []int         `mapstructure:"reminder_days"`
	TokenValidity time.Duration `mapstructure:"token_validity"`
}

// PublishingConfig configures scheduled post delivery.
type PublishingConfig struct {
	MaxAttempts int                 `mapstructure:"max_attempts"`
	Rules       []ContentRuleConfig `mapstructure:"rules"`
}

// ContentRuleConfig publishes content when a routed event matches.
// Trigger uses the "EVENT:MATCH" form, e.g. "ACHIEVEMENT_UNLOCKED:level_maestro".
type ContentRuleConfig struct {
	Trigger   string `mapstructure:"trigger"`
	ChannelID int64  `mapstructure:"channel_id"`
	Content   string `mapstructure:"content"`
}

// GamificationConfig configures point awards and achievement thresholds.
type GamificationConfig struct {
	ReactionPoints     int64 `mapstructure:"reaction_points"`
	MaestroPoints      int64 `mapstructure:"maestro_points"`
	MissionMasterCount int   `mapstructure:"mission_master_count"`
	// Levels map point totals to level names, e.g.
	//   levels: [{name: Novice, points: 0}, {name: Apprentice, points: 100}]
	Levels []LevelConfig `mapstructure:"levels"`
}

// LevelConfig is one rung of the level ladder.
type LevelConfig struct {
	Name   string `mapstructure:"name"`
	Points int64  `mapstructure:"points"`
}

// AuditConfig configures audit retention.
type AuditConfig struct {
	Retention time.Duration `mapstructure:"retention"`
}

// CatalogConfig points at optional YAML catalogs. Empty paths use the
// built-in catalogs.
type CatalogConfig struct {
	MissionsPath string `mapstructure:"missions_path"`
	PersonaPath  string `mapstructure:"persona_path"`
}

// GatewayConfig selects the messaging gateway.
type GatewayConfig struct {
	Kind      string        `mapstructure:"kind"` // log or http
	BaseURL   string        `mapstructure:"base_url"`
	AuthToken string        `mapstructure:"auth_token"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from an explicit file when path is set,
// otherwise from the standard search paths.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/keeper")
	}

	// No prefix: database.max_conns → DATABASE_MAX_CONNS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverMemory, DriverPostgres, c.Database.Driver)
	}
	if len(c.Security.AdminJWTKey) < 32 {
		return fmt.Errorf("security.admin_jwt_key must be at least 32 characters")
	}
	if c.Router.MaxChainDepth <= 0 {
		return fmt.Errorf("router.max_chain_depth must be positive")
	}
	if c.Abuse.Limit <= 0 || c.Abuse.Window <= 0 || c.Abuse.Cooldown <= 0 {
		return fmt.Errorf("abuse.limit, abuse.window and abuse.cooldown must be positive")
	}
	if c.Scheduler.Tick <= 0 {
		return fmt.Errorf("scheduler.tick must be positive")
	}
	if c.Scheduler.SubscriptionSweepHour < 0 || c.Scheduler.SubscriptionSweepHour > 23 {
		return fmt.Errorf("scheduler.subscription_sweep_hour must be within 0-23")
	}
	if c.Scheduler.SubscriptionSweepMinute < 0 || c.Scheduler.SubscriptionSweepMinute > 59 {
		return fmt.Errorf("scheduler.subscription_sweep_minute must be within 0-59")
	}
	if c.Scheduler.JoinSweepInterval <= 0 || c.Scheduler.PostSweepInterval <= 0 || c.Scheduler.MissionTimeoutInterval <= 0 {
		return fmt.Errorf("scheduler sweep intervals must be positive")
	}
	if len(c.Gamification.Levels) == 0 {
		return fmt.Errorf("gamification.levels must define at least one level")
	}
	for _, d := range c.Access.ReminderDays {
		if d <= 0 {
			return fmt.Errorf("access.reminder_days entries must be positive, got %d", d)
		}
	}
	if c.Publishing.MaxAttempts <= 0 {
		return fmt.Errorf("publishing.max_attempts must be positive")
	}
	switch c.Gateway.Kind {
	case GatewayLog:
	case GatewayHTTP:
		if c.Gateway.BaseURL == "" {
			return fmt.Errorf("gateway.base_url is required for the http gateway")
		}
	default:
		return fmt.Errorf("gateway.kind must be %q or %q, got %q", GatewayLog, GatewayHTTP, c.Gateway.Kind)
	}
	return nil
}

// ensureSecrets auto-generates the admin signing key on first boot.
func (c *Config) ensureSecrets() error {
	if c.Security.AdminJWTKey == "" {
		key, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate admin jwt key: %w", err)
		}
		c.Security.AdminJWTKey = key
		logBootstrapWarn(
			"auto-generated admin_jwt_key; set SECURITY_ADMIN_JWT_KEY for tokens that survive restarts",
			zap.Int("length", len(key)),
		)
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "keeper")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "keeper")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.auto_migrate", true)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Security
	v.SetDefault("security.admin_jwt_key", "")
	v.SetDefault("security.token_issuer", "keeper")
	v.SetDefault("security.admin_token_ttl", "12h")

	// Worker pools
	v.SetDefault("worker.job_pool_size", 16)
	v.SetDefault("worker.service_pool_size", 4)

	// Router
	v.SetDefault("router.max_chain_depth", 16)

	// Abuse gate: 20 interactions per rolling minute, then a one minute cooldown.
	v.SetDefault("abuse.limit", 20)
	v.SetDefault("abuse.window", "60s")
	v.SetDefault("abuse.cooldown", "60s")

	// Scheduler
	v.SetDefault("scheduler.tick", "1s")
	v.SetDefault("scheduler.subscription_sweep_hour", 9)
	v.SetDefault("scheduler.subscription_sweep_minute", 0)
	v.SetDefault("scheduler.join_sweep_interval", "1m")
	v.SetDefault("scheduler.post_sweep_interval", "1m")
	v.SetDefault("scheduler.mission_timeout_interval", "5m")

	// Access
	v.SetDefault("access.paid_channel_id", 0)
	v.SetDefault("access.join_delay", "5m")
	v.SetDefault("access.reminder_days", []int{3, 1})
	v.SetDefault("access.token_validity", "168h")

	// Publishing
	v.SetDefault("publishing.max_attempts", 5)

	// Gamification
	v.SetDefault("gamification.reaction_points", 5)
	v.SetDefault("gamification.maestro_points", 1000)
	v.SetDefault("gamification.mission_master_count", 10)
	v.SetDefault("gamification.levels", []map[string]interface{}{
		{"name": "Novice", "points": 0},
		{"name": "Apprentice", "points": 100},
		{"name": "Adept", "points": 500},
		{"name": "Maestro", "points": 1000},
	})

	// Audit
	v.SetDefault("audit.retention", "720h")

	// Catalogs
	v.SetDefault("catalog.missions_path", "")
	v.SetDefault("catalog.persona_path", "")

	// Gateway
	v.SetDefault("gateway.kind", GatewayLog)
	v.SetDefault("gateway.base_url", "")
	v.SetDefault("gateway.auth_token", "")
	v.SetDefault("gateway.timeout", "10s")
}
