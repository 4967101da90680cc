package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbsaloka/lume-cashier-app/internal/checkout"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "POS"
	envCfgFile = "POS_CONFIG_FILE"
)

type Cashier struct {
	Port            string        `mapstructure:"port"`
	BackendURL      string        `mapstructure:"backend_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel        string        `mapstructure:"log_level"`

	Redis   Redis   `mapstructure:"redis"`
	Breaker Breaker `mapstructure:"breaker"`

	CatalogCacheTTL  time.Duration              `mapstructure:"catalog_cache_ttl"`
	TransferAccounts []checkout.TransferAccount `mapstructure:"transfer_accounts"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Breaker opens after Failures consecutive backend failures. Once OpenFor has
// passed, HalfOpen requests are let through to probe the backend.
type Breaker struct {
	Failures uint32        `mapstructure:"failures"`
	OpenFor  time.Duration `mapstructure:"open_for"`
	HalfOpen uint32        `mapstructure:"half_open"`
}

type Backend struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel        string        `mapstructure:"log_level"`

	Postgres Postgres `mapstructure:"postgres"`
	Kafka    Kafka    `mapstructure:"kafka"`
}

type Postgres struct {
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DB             string `mapstructure:"db"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// DSN is the lib/pq connection string
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type Kafka struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

func LoadCashier() (*Cashier, error) {
	v := newViper()
	v.SetDefault("port", "8080")
	v.SetDefault("backend_url", "http://localhost:8081")
	v.SetDefault("request_timeout", 5*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("breaker.failures", 5)
	v.SetDefault("breaker.open_for", 10*time.Second)
	v.SetDefault("breaker.half_open", 1)
	v.SetDefault("catalog_cache_ttl", time.Minute)

	if err := readFile(v); err != nil {
		return nil, err
	}

	cfg := &Cashier{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode cashier config: %w", err)
	}
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("backend_url is required")
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	return cfg, nil
}

func LoadBackend() (*Backend, error) {
	v := newViper()
	v.SetDefault("port", "8081")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.db", "lume")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.migrations_path", "internal/store/migrations")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "transaction.committed")
	v.SetDefault("kafka.poll_interval", 2*time.Second)
	v.SetDefault("kafka.batch_size", 50)

	if err := readFile(v); err != nil {
		return nil, err
	}

	cfg := &Backend{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode backend config: %w", err)
	}
	return cfg, nil
}

// newViper reads POS_* environment variables; nested keys use underscores,
// so redis.addr is POS_REDIS_ADDR.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func readFile(v *viper.Viper) error {
	_ = v.BindEnv("config_file", envCfgFile)
	path := v.GetString("config_file")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return nil
}
