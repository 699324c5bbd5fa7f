// Package config loads the runtime configuration and the accounts file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/pkg/retrier"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "DIPBUYER_"

	defaultPollInterval        = time.Minute
	defaultDataDir             = "./data"
	defaultLookbackDays        = 1000
	defaultRefreshInterval     = 24 * time.Hour
	defaultMaxParallelAccounts = 1
	defaultRetryDelay          = 15 * time.Second
	defaultRetryJitter         = 5 * time.Second
	defaultRetryAttempts       = 3
	defaultSMTPPort            = 587
	defaultKafkaTopic          = "dipbuyer.checks"
	defaultWebAddr             = ":8080"
	defaultLogLevel            = "info"
)

// Config is built once at startup and passed down by value.
type Config struct {
	PollInterval        time.Duration
	DryRun              bool
	DataDir             string
	CoolDown            time.Duration
	MaxParallelAccounts int
	Volatility          VolatilityConfig
	Retry               RetryConfig
	Notify              NotifyConfig
	Web                 WebConfig
	Log                 LogConfig
}

type VolatilityConfig struct {
	LookbackDays    int
	RefreshInterval time.Duration
	// Platform serves the public close series used for all accounts.
	Platform domain.Platform
}

// RetryConfig is the network retry policy: Delay ± Jitter between
// attempts, at most MaxAttempts retries.
type RetryConfig struct {
	Delay       time.Duration
	Jitter      time.Duration
	MaxAttempts int
}

type NotifyConfig struct {
	TelegramAPIURL string
	SummaryOnStart bool
	SMTP           SMTPConfig
	Kafka          KafkaConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether check events go to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type WebConfig struct {
	// Addr is empty when the status server is disabled.
	Addr       string
	TLSDomains []string
	CertCache  string
}

type LogConfig struct {
	Level       string
	Development bool
}

// ConfigTmp mirrors the yaml file.
type ConfigTmp struct {
	PollInterval        time.Duration `yaml:"poll_interval"`
	DryRun              bool          `yaml:"dry_run"`
	DataDir             string        `yaml:"data_dir"`
	CoolDown            time.Duration `yaml:"cooldown"`
	MaxParallelAccounts int           `yaml:"max_parallel_accounts"`
	Volatility          struct {
		LookbackDays    int           `yaml:"lookback_days"`
		RefreshInterval time.Duration `yaml:"refresh_interval"`
		Platform        string        `yaml:"platform"`
	} `yaml:"volatility"`
	Retry struct {
		Delay       time.Duration `yaml:"delay"`
		Jitter      time.Duration `yaml:"jitter"`
		MaxAttempts *int          `yaml:"max_attempts"`
	} `yaml:"retry"`
	Notify struct {
		TelegramAPIURL string `yaml:"telegram_api_url"`
		SummaryOnStart *bool  `yaml:"summary_on_start"`
		SMTP           struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			From     string `yaml:"from"`
		} `yaml:"smtp"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
		} `yaml:"kafka"`
	} `yaml:"notify"`
	Web struct {
		Addr       string   `yaml:"addr"`
		TLSDomains []string `yaml:"tls_domains"`
		CertCache  string   `yaml:"cert_cache"`
	} `yaml:"web"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// envOverrides are read from DIPBUYER_* variables and win over the file.
type envOverrides struct {
	DryRun       string   `env:"DRY_RUN"`
	DataDir      string   `env:"DATA_DIR"`
	PollInterval string   `env:"POLL_INTERVAL"`
	LogLevel     string   `env:"LOG_LEVEL"`
	SMTPPassword string   `env:"SMTP_PASSWORD"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	WebAddr      string   `env:"WEB_ADDR"`
}

// Load reads the yaml file at path (optional) and applies environment overrides.
func Load(path string) (Config, error) {
	return load(path, nil)
}

// load takes the environment from environ when it is not nil.
func load(path string, environ map[string]string) (Config, error) {
	var tmp ConfigTmp
	if path != "" {
		f, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(f, &tmp); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	var ov envOverrides
	if err := env.ParseWithOptions(&ov, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	if err := ov.apply(&tmp); err != nil {
		return Config{}, err
	}

	return tmp.build()
}

func (ov envOverrides) apply(tmp *ConfigTmp) error {
	if ov.DryRun != "" {
		v, err := strconv.ParseBool(ov.DryRun)
		if err != nil {
			return fmt.Errorf("incorrect '%sDRY_RUN' env value %q", EnvPrefix, ov.DryRun)
		}
		tmp.DryRun = v
	}
	if ov.PollInterval != "" {
		d, err := time.ParseDuration(ov.PollInterval)
		if err != nil {
			return fmt.Errorf("incorrect '%sPOLL_INTERVAL' env value %q", EnvPrefix, ov.PollInterval)
		}
		tmp.PollInterval = d
	}
	if ov.DataDir != "" {
		tmp.DataDir = ov.DataDir
	}
	if ov.LogLevel != "" {
		tmp.Log.Level = ov.LogLevel
	}
	if ov.SMTPPassword != "" {
		tmp.Notify.SMTP.Password = ov.SMTPPassword
	}
	if len(ov.KafkaBrokers) > 0 {
		tmp.Notify.Kafka.Brokers = ov.KafkaBrokers
	}
	if ov.WebAddr != "" {
		tmp.Web.Addr = ov.WebAddr
	}
	return nil
}

func (c ConfigTmp) build() (Config, error) {
	cfg := Config{
		PollInterval:        orDuration(c.PollInterval, defaultPollInterval),
		DryRun:              c.DryRun,
		DataDir:             orString(c.DataDir, defaultDataDir),
		CoolDown:            orDuration(c.CoolDown, domain.DefaultCoolDown),
		MaxParallelAccounts: c.MaxParallelAccounts,
		Volatility: VolatilityConfig{
			LookbackDays:    c.Volatility.LookbackDays,
			RefreshInterval: orDuration(c.Volatility.RefreshInterval, defaultRefreshInterval),
		},
		Retry: RetryConfig{
			Delay:       orDuration(c.Retry.Delay, defaultRetryDelay),
			Jitter:      orDuration(c.Retry.Jitter, defaultRetryJitter),
			MaxAttempts: defaultRetryAttempts,
		},
		Notify: NotifyConfig{
			TelegramAPIURL: c.Notify.TelegramAPIURL,
			SummaryOnStart: c.Notify.SummaryOnStart == nil || *c.Notify.SummaryOnStart,
			SMTP: SMTPConfig{
				Host:     c.Notify.SMTP.Host,
				Port:     c.Notify.SMTP.Port,
				Username: c.Notify.SMTP.Username,
				Password: c.Notify.SMTP.Password,
				From:     c.Notify.SMTP.From,
			},
			Kafka: KafkaConfig{
				Brokers: cleanList(c.Notify.Kafka.Brokers),
				Topic:   orString(c.Notify.Kafka.Topic, defaultKafkaTopic),
			},
		},
		Web: WebConfig{
			Addr:       c.Web.Addr,
			TLSDomains: cleanList(c.Web.TLSDomains),
			CertCache:  c.Web.CertCache,
		},
		Log: LogConfig{
			Level:       strings.ToLower(orString(c.Log.Level, defaultLogLevel)),
			Development: c.Log.Development,
		},
	}

	if cfg.PollInterval < 0 {
		return Config{}, fmt.Errorf("incorrect 'poll_interval' param in yaml config: %s", c.PollInterval)
	}

	if cfg.MaxParallelAccounts == 0 {
		cfg.MaxParallelAccounts = defaultMaxParallelAccounts
	}
	if cfg.MaxParallelAccounts < 0 {
		return Config{}, fmt.Errorf("incorrect 'max_parallel_accounts' param in yaml config: %d", c.MaxParallelAccounts)
	}

	switch {
	case cfg.Volatility.LookbackDays == 0:
		cfg.Volatility.LookbackDays = defaultLookbackDays
	case cfg.Volatility.LookbackDays < 3 || cfg.Volatility.LookbackDays > defaultLookbackDays:
		return Config{}, fmt.Errorf("incorrect 'volatility.lookback_days' param in yaml config (3..%d), got %d",
			defaultLookbackDays, cfg.Volatility.LookbackDays)
	}

	platform := domain.PlatformBinance
	if c.Volatility.Platform != "" {
		p, err := domain.ParsePlatform(c.Volatility.Platform)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'volatility.platform' param in yaml config, error: %w", err)
		}
		platform = p
	}
	cfg.Volatility.Platform = platform

	if c.Retry.MaxAttempts != nil {
		if *c.Retry.MaxAttempts < 0 {
			return Config{}, fmt.Errorf("incorrect 'retry.max_attempts' param in yaml config: %d", *c.Retry.MaxAttempts)
		}
		cfg.Retry.MaxAttempts = *c.Retry.MaxAttempts
	}
	if cfg.Retry.Jitter > cfg.Retry.Delay {
		return Config{}, fmt.Errorf("incorrect 'retry.jitter' param in yaml config: %s exceeds delay %s",
			cfg.Retry.Jitter, cfg.Retry.Delay)
	}

	if cfg.Notify.SMTP.Host != "" && cfg.Notify.SMTP.Port == 0 {
		cfg.Notify.SMTP.Port = defaultSMTPPort
	}

	if len(cfg.Web.TLSDomains) > 0 && cfg.Web.CertCache == "" {
		cfg.Web.CertCache = filepath.Join(cfg.DataDir, "certs")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("incorrect 'log.level' param in yaml config: %s", cfg.Log.Level)
	}

	return cfg, nil
}

// LedgerDir is where the order WAL lives.
func (c Config) LedgerDir() string {
	return filepath.Join(c.DataDir, "orders")
}

// DatabasePath is the SQLite file with accounts, configs and statistics.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "dipbuyer.db")
}

// Options translates the policy into retrier options. Only network errors
// are retried.
func (r RetryConfig) Options() []retrier.Option {
	jitter := 0.0
	if r.Delay > 0 {
		jitter = float64(r.Jitter) / float64(r.Delay)
	}

	return []retrier.Option{
		retrier.WithInitialInterval(r.Delay),
		retrier.WithMaxInterval(r.Delay),
		retrier.WithMultiplier(1),
		retrier.WithJitter(jitter),
		retrier.WithMaxRetries(r.MaxAttempts),
		retrier.WithRetryIf(domain.IsNetwork),
	}
}

func orDuration(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
