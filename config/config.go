package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Media     MediaConfig     `mapstructure:"media"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Order     OrderConfig     `mapstructure:"order"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// StorageConfig selects the backing store: "postgres" or "memory".
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type NotifierConfig struct {
	Driver       string        `mapstructure:"driver"` // redis, kafka, log
	Workers      int           `mapstructure:"workers"`
	QueueSize    int           `mapstructure:"queue_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	Kafka        KafkaConfig   `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type EmbeddingConfig struct {
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MediaConfig struct {
	RootDir       string `mapstructure:"root_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type BillingConfig struct {
	ListingFee string `mapstructure:"listing_fee"`
}

// Fee parses the flat listing fee.
func (b BillingConfig) Fee() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(b.ListingFee)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing billing.listing_fee %q: %w", b.ListingFee, err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("billing.listing_fee must not be negative, got %s", fee)
	}
	return fee, nil
}

type OrderConfig struct {
	EstimatedDelivery time.Duration `mapstructure:"estimated_delivery"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"` // empty disables export
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: SFT_ (storefront).
// Nested keys use underscore: SFT_DATABASE_HOST, SFT_NOTIFIER_DRIVER, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "storefront")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "storefront")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("notifier.driver", "redis")
	v.SetDefault("notifier.workers", 4)
	v.SetDefault("notifier.queue_size", 1024)
	v.SetDefault("notifier.max_attempts", 3)
	v.SetDefault("notifier.retry_backoff", "200ms")
	v.SetDefault("notifier.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("notifier.kafka.topic", "storefront.notifications")
	v.SetDefault("embedding.url", "http://localhost:11434/v1/embeddings")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.timeout", "10s")
	v.SetDefault("media.root_dir", "./data/media")
	v.SetDefault("media.public_base_url", "/media")
	v.SetDefault("billing.listing_fee", "5.00")
	v.SetDefault("order.estimated_delivery", "120h")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "storefront")
	v.SetDefault("tracing.sample_ratio", 1.0)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: SFT_DATABASE_HOST -> database.host
	v.SetEnvPrefix("SFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if _, err := cfg.Billing.Fee(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
