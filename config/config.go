package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverMySQL  = "mysql"
	StoreDriverMemory = "memory"
)

type Config struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBName     string `mapstructure:"DB_NAME"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	RabbitMQURL       string        `mapstructure:"RABBITMQ_URL"`
	OrderExchange     string        `mapstructure:"ORDER_EXCHANGE"`
	OrderQueue        string        `mapstructure:"ORDER_QUEUE"`
	DeadLetterQueue   string        `mapstructure:"DEAD_LETTER_QUEUE"`
	DelayExchange     string        `mapstructure:"DELAY_EXCHANGE"`
	MaxPriority       int           `mapstructure:"MAX_PRIORITY"`
	PaymentCheckDelay time.Duration `mapstructure:"PAYMENT_CHECK_DELAY"`

	MockPaymentDelay time.Duration `mapstructure:"MOCK_PAYMENT_DELAY"`

	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	IdempotencyTTL time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
}

var defaults = map[string]any{
	"HTTP_PORT":           "8080",
	"STORE_DRIVER":        StoreDriverMySQL,
	"LOG_LEVEL":           "info",
	"DB_USER":             "root",
	"DB_PASSWORD":         "",
	"DB_HOST":             "localhost",
	"DB_PORT":             "3306",
	"DB_NAME":             "bookstore",
	"JWT_SECRET":          "",
	"RABBITMQ_URL":        "",
	"ORDER_EXCHANGE":      "orders_exchange",
	"ORDER_QUEUE":         "orders_queue",
	"DEAD_LETTER_QUEUE":   "dead_letter_queue",
	"DELAY_EXCHANGE":      "delay_exchange",
	"MAX_PRIORITY":        10,
	"PAYMENT_CHECK_DELAY": "15m",
	"MOCK_PAYMENT_DELAY":  "100ms",
	"REDIS_ADDR":          "",
	"REDIS_PASSWORD":      "",
	"IDEMPOTENCY_TTL":     "24h",
}

// LoadConfig reads configuration from the environment. Secrets may be supplied
// through a companion *_FILE variable pointing at a mounted file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.DBPassword = fromFile("DB_PASSWORD_FILE", cfg.DBPassword)
	cfg.JWTSecret = fromFile("JWT_SECRET_FILE", cfg.JWTSecret)
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	return &cfg, nil
}

// MessagingEnabled reports whether a broker URL was configured.
func (c *Config) MessagingEnabled() bool {
	return strings.TrimSpace(c.RabbitMQURL) != ""
}

func fromFile(fileKey, fallback string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}
