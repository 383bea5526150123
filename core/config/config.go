package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Offer    OfferConfig    `mapstructure:"offer"`
	Waitlist WaitlistConfig `mapstructure:"waitlist"`
	Absence  AbsenceConfig  `mapstructure:"absence"`
	Export   ExportConfig   `mapstructure:"export"`
}

type AppConfig struct {
	Name      string `mapstructure:"name"`
	Env       string `mapstructure:"env"`
	Timezone  string `mapstructure:"timezone"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	// Driver selects the repositories: "postgres" or "memory".
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Migrate  bool   `mapstructure:"migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepCron     string        `mapstructure:"sweep_cron"`
}

type BrokerConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type OfferConfig struct {
	TokenSecret   string `mapstructure:"token_secret"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// WaitlistConfig holds the defaults applied to resources without a stored configuration.
type WaitlistConfig struct {
	Active                bool     `mapstructure:"active"`
	ResponseWindowMinutes int      `mapstructure:"response_window_minutes"`
	AutoNotify            bool     `mapstructure:"auto_notify"`
	NotificationChannel   string   `mapstructure:"notification_channel"`
	MaxEntriesPerClient   int      `mapstructure:"max_entries_per_client"`
	EntryValidityDays     int      `mapstructure:"entry_validity_days"`
	PriorityClasses       []string `mapstructure:"priority_classes"`
}

type AbsenceConfig struct {
	NoShowFineEnabled           bool    `mapstructure:"no_show_fine_enabled"`
	NoShowFineAmount            float64 `mapstructure:"no_show_fine_amount"`
	LateCancellationFineEnabled bool    `mapstructure:"late_cancellation_fine_enabled"`
	LateCancellationFineAmount  float64 `mapstructure:"late_cancellation_fine_amount"`
	LateCancellationNoticeHours int     `mapstructure:"late_cancellation_notice_hours"`
	BlockAfterNoShows           int     `mapstructure:"block_after_no_shows"`
	BlockDays                   int     `mapstructure:"block_days"`
	AlertAfterNoShows           int     `mapstructure:"alert_after_no_shows"`
}

type ExportConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Prefix          string `mapstructure:"prefix"`
}

var (
	instance *Config
	mu       sync.RWMutex
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "waitlist-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 7070)

	v.SetDefault("storage.driver", "memory")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "waitlist")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.sweep_interval", time.Minute)
	v.SetDefault("worker.sweep_cron", "@every 1m")

	v.SetDefault("broker.url", "")
	v.SetDefault("broker.exchange", "waitlist.events")

	// unset secrets still need a key so the environment can override them
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("offer.token_secret", "")
	v.SetDefault("offer.public_base_url", "http://localhost:7070")

	v.SetDefault("waitlist.active", true)
	v.SetDefault("waitlist.response_window_minutes", 24*60)
	v.SetDefault("waitlist.auto_notify", true)
	v.SetDefault("waitlist.notification_channel", "email")
	v.SetDefault("waitlist.max_entries_per_client", 3)
	v.SetDefault("waitlist.entry_validity_days", 30)
	v.SetDefault("waitlist.priority_classes", []string{"premium", "high", "normal"})

	v.SetDefault("absence.no_show_fine_enabled", false)
	v.SetDefault("absence.no_show_fine_amount", 0)
	v.SetDefault("absence.late_cancellation_fine_enabled", false)
	v.SetDefault("absence.late_cancellation_fine_amount", 0)
	v.SetDefault("absence.late_cancellation_notice_hours", 24)
	v.SetDefault("absence.block_after_no_shows", 3)
	v.SetDefault("absence.block_days", 7)
	v.SetDefault("absence.alert_after_no_shows", 2)

	v.SetDefault("export.bucket", "")
	v.SetDefault("export.region", "us-east-1")
	v.SetDefault("export.endpoint", "")
	v.SetDefault("export.access_key_id", "")
	v.SetDefault("export.secret_access_key", "")
	v.SetDefault("export.prefix", "exports/")
}

// Load reads .env (when present) and the process environment. Nested keys map to
// upper-case env names with underscores, e.g. DATABASE_HOST or WAITLIST_AUTO_NOTIFY.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// missing files are fine, the environment still applies
		_ = godotenv.Load(f)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// AutomaticEnv does not split lists
	if raw := v.GetString("waitlist.priority_classes"); raw != "" && strings.Contains(raw, ",") {
		cfg.Waitlist.PriorityClasses = splitList(raw)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Waitlist.ResponseWindowMinutes <= 0 {
		return fmt.Errorf("waitlist.response_window_minutes must be positive")
	}
	if c.Waitlist.MaxEntriesPerClient <= 0 {
		return fmt.Errorf("waitlist.max_entries_per_client must be positive")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid app.timezone: %w", err)
	}
	return nil
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Init(envFiles ...string) (*Config, error) {
	cfg, err := Load(envFiles...)
	if err != nil {
		return nil, err
	}
	Set(cfg)
	return cfg, nil
}

func Set(cfg *Config) {
	mu.Lock()
	instance = cfg
	mu.Unlock()
}

// Get panics when the config has not been initialised.
func Get() *Config {
	cfg, ok := GetSafe()
	if !ok {
		panic("config not initialized")
	}
	return cfg
}

func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}
