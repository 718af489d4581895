package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// ParseEnvironment falls back to Development for unknown values.
func ParseEnvironment(v string) Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(v))) {
	case Production:
		return Production
	case Testing:
		return Testing
	default:
		return Development
	}
}

type TelegramConfig struct {
	BotToken string `split_words:"true"`
	ChatID   string `split_words:"true"`
	APIURL   string `envconfig:"API_URL" default:"https://api.telegram.org"`
}

type ResendConfig struct {
	APIKey string `envconfig:"API_KEY"`
	From   string `default:"Mersal Orders <onboarding@resend.dev>"`
	APIURL string `envconfig:"API_URL" default:"https://api.resend.com"`
}

type UltraMsgConfig struct {
	InstanceID string `envconfig:"INSTANCE_ID"`
	Token      string
	APIURL     string `envconfig:"API_URL" default:"https://api.ultramsg.com"`
}

type Config struct {
	Env          string   `envconfig:"APP_ENV" default:"development"`
	ServiceName  string   `envconfig:"SERVICE_NAME" default:"storefront-api"`
	HTTPAddr     string   `envconfig:"HTTP_ADDR" default:":8081"`
	PostgresDSN  string   `envconfig:"POSTGRES_DSN"`
	RedisAddr    string   `envconfig:"REDIS_ADDR" default:"redis:6379"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"kafka:9092"`
	AdminToken   string   `envconfig:"ADMIN_TOKEN"`

	// IQD per USD, used to derive the reference amount of an order.
	ExchangeRate decimal.Decimal `envconfig:"IQD_PER_USD" default:"1450"`

	NotifyTimeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`
	NotifyGroup   string        `envconfig:"NOTIFY_GROUP" default:"notifier-svc"`
	NotifyWorkers int           `envconfig:"NOTIFY_WORKERS" default:"4"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminWhatsApp string `envconfig:"ADMIN_WHATSAPP_NUMBER"`

	Telegram TelegramConfig `envconfig:"TELEGRAM"`
	Resend   ResendConfig   `envconfig:"RESEND"`
	UltraMsg UltraMsgConfig `envconfig:"ULTRAMSG"`
}

func (c Config) Environment() Environment { return ParseEnvironment(c.Env) }

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.KafkaBrokers = compact(c.KafkaBrokers)
	if c.NotifyWorkers <= 0 {
		c.NotifyWorkers = 1
	}
	if !c.ExchangeRate.IsPositive() {
		return Config{}, fmt.Errorf("config: IQD_PER_USD must be positive, got %s", c.ExchangeRate)
	}
	return c, nil
}

func compact(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
