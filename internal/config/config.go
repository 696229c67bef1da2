package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Placeholder credentials shipped in the sample .env; treated as unset.
const (
	PlaceholderGatewayKeyID     = "rzp_test_your_key_id"
	PlaceholderGatewayKeySecret = "your_test_secret_key"
)

type DBConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"coursepay"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

type GatewayConfig struct {
	KeyID            string        `env:"GATEWAY_KEY_ID"`
	KeySecret        string        `env:"GATEWAY_KEY_SECRET"`
	BaseURL          string        `env:"GATEWAY_BASE_URL" envDefault:"https://api.razorpay.com/v1"`
	Currency         string        `env:"GATEWAY_CURRENCY" envDefault:"INR"`
	CurrencyExponent int32         `env:"GATEWAY_CURRENCY_EXPONENT" envDefault:"2"`
	Timeout          time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`
}

// Configured reports whether both credentials are present and not the
// sample placeholders.
func (g GatewayConfig) Configured() bool {
	return g.HasKeyID() && g.HasSecret()
}

func (g GatewayConfig) HasKeyID() bool {
	return g.KeyID != "" && g.KeyID != PlaceholderGatewayKeyID
}

func (g GatewayConfig) HasSecret() bool {
	return g.KeySecret != "" && g.KeySecret != PlaceholderGatewayKeySecret
}

type Config struct {
	DB      DBConfig
	Gateway GatewayConfig

	HTTPPort           int      `env:"HTTP_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	KafkaBrokerURL       string `env:"KAFKA_BROKER_URL" envDefault:"localhost:9092"`
	KafkaEnrollmentTopic string `env:"KAFKA_ENROLLMENT_TOPIC" envDefault:"course_enrollments"`
	KafkaConsumerGroup   string `env:"KAFKA_CONSUMER_GROUP" envDefault:"coursepay-cart-group"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxPollTimeout  time.Duration `env:"OUTBOX_POLL_TIMEOUT" envDefault:"5s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"10"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.OutboxBatchSize <= 0 {
		return nil, fmt.Errorf("invalid OUTBOX_BATCH_SIZE: %d", cfg.OutboxBatchSize)
	}
	if cfg.Gateway.CurrencyExponent < 0 {
		return nil, fmt.Errorf("invalid GATEWAY_CURRENCY_EXPONENT: %d", cfg.Gateway.CurrencyExponent)
	}
	return cfg, nil
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}
