package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Market    MarketConfig    `mapstructure:"market"`
	Profiles  ProfilesConfig  `mapstructure:"profiles"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Rotation  RotationConfig  `mapstructure:"rotation"`
	Tiers     TiersConfig     `mapstructure:"tiers"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// DBConfig describes the optional activity sink. An empty DSN disables it;
// the pipeline itself holds no persistent state.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	LedgerSweep string `mapstructure:"ledger_sweep"`
	Cleanup     string `mapstructure:"cleanup"`
}

type DiscoveryConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Limit   int           `mapstructure:"limit"`
	APIKeys []string      `mapstructure:"api_keys"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MarketConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst"`
}

type ProfilesConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	BaseURL       string   `mapstructure:"base_url"`
	ChainID       string   `mapstructure:"chain_id"`
	AllowedVenues []string `mapstructure:"allowed_venues"`
}

type FetchConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

type RotationConfig struct {
	SliceDuration time.Duration `mapstructure:"slice_duration"`
}

// TiersConfig holds the classification thresholds. All of them are operator
// tunables; nothing here is a protocol constant.
type TiersConfig struct {
	MidFloor            float64       `mapstructure:"mid_floor"`
	HighFloor           float64       `mapstructure:"high_floor"`
	MidAgeCeiling       time.Duration `mapstructure:"mid_age_ceiling"`
	HighAgeCeiling      time.Duration `mapstructure:"high_age_ceiling"`
	DiscoveryAgeCeiling time.Duration `mapstructure:"discovery_age_ceiling"`
}

type LedgerConfig struct {
	MidTTL     time.Duration `mapstructure:"mid_ttl"`
	HighTTL    time.Duration `mapstructure:"high_ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

type NotifyConfig struct {
	MidWebhook  string        `mapstructure:"mid_webhook"`
	HighWebhook string        `mapstructure:"high_webhook"`
	Username    string        `mapstructure:"username"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

type SchedulerConfig struct {
	DefaultInterval time.Duration `mapstructure:"default_interval"`
	BurstInterval   time.Duration `mapstructure:"burst_interval"`
	BurstThreshold  int           `mapstructure:"burst_threshold"`
	FanOut          int           `mapstructure:"fan_out"`
}

type RetentionConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.ledger_sweep", "@every 1m")
	v.SetDefault("cron.cleanup", "@every 10m")
	v.SetDefault("discovery.base_url", "https://solana-gateway.moralis.io")
	v.SetDefault("discovery.limit", 100)
	v.SetDefault("discovery.timeout", "15s")
	v.SetDefault("market.base_url", "https://api.dexscreener.com")
	v.SetDefault("market.timeout", "10s")
	v.SetDefault("market.rate_limit", 4.0)
	v.SetDefault("market.rate_burst", 2)
	v.SetDefault("profiles.enabled", true)
	v.SetDefault("profiles.base_url", "https://api.dexscreener.com")
	v.SetDefault("profiles.chain_id", "solana")
	v.SetDefault("profiles.allowed_venues", []string{"pumpswap", "raydium", "meteora"})
	v.SetDefault("fetch.attempts", 3)
	v.SetDefault("fetch.delay", "2s")
	v.SetDefault("rotation.slice_duration", "4h")
	v.SetDefault("tiers.mid_floor", 16900)
	v.SetDefault("tiers.high_floor", 80000)
	v.SetDefault("tiers.mid_age_ceiling", "20m")
	v.SetDefault("tiers.high_age_ceiling", "2h")
	v.SetDefault("tiers.discovery_age_ceiling", "30m")
	v.SetDefault("ledger.mid_ttl", "2h")
	v.SetDefault("ledger.high_ttl", "24h")
	v.SetDefault("ledger.max_entries", 5000)
	v.SetDefault("notify.username", "tokenwatch")
	v.SetDefault("notify.retry_delay", "2s")
	v.SetDefault("scheduler.default_interval", "30s")
	v.SetDefault("scheduler.burst_interval", "15s")
	v.SetDefault("scheduler.burst_threshold", 2)
	v.SetDefault("scheduler.fan_out", 5)
	v.SetDefault("retention.max_age", "168h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports missing required values. These are the only failures that
// should stop the process; everything downstream degrades instead.
func (c Config) Validate() error {
	if len(c.Discovery.APIKeys) == 0 {
		return fmt.Errorf("discovery.api_keys: at least one key is required")
	}
	for i, k := range c.Discovery.APIKeys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("discovery.api_keys[%d]: empty key", i)
		}
	}
	if strings.TrimSpace(c.Notify.MidWebhook) == "" {
		return fmt.Errorf("notify.mid_webhook is required")
	}
	if strings.TrimSpace(c.Notify.HighWebhook) == "" {
		return fmt.Errorf("notify.high_webhook is required")
	}
	if c.Tiers.HighFloor < c.Tiers.MidFloor {
		return fmt.Errorf("tiers.high_floor must be >= tiers.mid_floor")
	}
	return nil
}
