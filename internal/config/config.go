package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Provider   ProviderConfig   `yaml:"provider"`
	Sync       SyncConfig       `yaml:"sync"`
	Notify     NotifyConfig     `yaml:"notify"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type DatabaseConfig struct {
	Path   string       `yaml:"path"`
	Backup BackupConfig `yaml:"backup"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Interval      string `yaml:"interval"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ProviderConfig describes the external billing API and its OAuth2 endpoint.
type ProviderConfig struct {
	BaseURL        string   `yaml:"base_url"`
	ClientID       string   `yaml:"client_id"`
	ClientSecret   string   `yaml:"client_secret"`
	TokenURL       string   `yaml:"token_url"`
	PageSize       int      `yaml:"page_size"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	PaginatedKinds []string `yaml:"paginated_kinds"`
}

type SyncConfig struct {
	FetchTimeout     time.Duration `yaml:"-"`
	TotalTimeout     time.Duration `yaml:"-"`
	DispatchInterval time.Duration `yaml:"-"`
	DispatchBatch    int           `yaml:"dispatch_batch"`
	LockTTL          time.Duration `yaml:"-"`
}

// UnmarshalYAML accepts durations as strings ("30s", "4h").
func (s *SyncConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		FetchTimeout     string `yaml:"fetch_timeout"`
		TotalTimeout     string `yaml:"total_timeout"`
		DispatchInterval string `yaml:"dispatch_interval"`
		DispatchBatch    int    `yaml:"dispatch_batch"`
		LockTTL          string `yaml:"lock_ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	s.DispatchBatch = raw.DispatchBatch
	for _, field := range []struct {
		in  string
		out *time.Duration
	}{
		{raw.FetchTimeout, &s.FetchTimeout},
		{raw.TotalTimeout, &s.TotalTimeout},
		{raw.DispatchInterval, &s.DispatchInterval},
		{raw.LockTTL, &s.LockTTL},
	} {
		if field.in == "" {
			continue
		}
		d, err := time.ParseDuration(field.in)
		if err != nil {
			return fmt.Errorf("invalid sync duration %q: %w", field.in, err)
		}
		*field.out = d
	}
	return nil
}

type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; values referenced from the YAML via ${VAR}.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Provider.BaseURL == "" {
		return errors.New("provider base_url is required")
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == 0 {
		return errors.New("notify.telegram_chat_id is required when telegram_token is set")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "ledgersync"
	}
	if c.Sync.FetchTimeout == 0 {
		c.Sync.FetchTimeout = time.Minute
	}
	if c.Sync.TotalTimeout == 0 {
		c.Sync.TotalTimeout = 4 * time.Hour
	}
	if c.Sync.DispatchInterval == 0 {
		c.Sync.DispatchInterval = 30 * time.Second
	}
	if c.Sync.DispatchBatch == 0 {
		c.Sync.DispatchBatch = 10
	}
	if c.Sync.LockTTL == 0 {
		c.Sync.LockTTL = c.Sync.TotalTimeout + time.Hour
	}
	if c.Provider.PageSize == 0 {
		c.Provider.PageSize = 100
	}
	if c.Provider.RateLimitRPS == 0 {
		c.Provider.RateLimitRPS = 5
	}
	if c.Provider.RateLimitBurst == 0 {
		c.Provider.RateLimitBurst = 5
	}
	// Harvest-style providers paginate invoices only; Quickbooks-style
	// providers list every kind here.
	if c.Provider.PaginatedKinds == nil {
		c.Provider.PaginatedKinds = []string{"invoices"}
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
