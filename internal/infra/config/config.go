package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Telegram struct {
		Token      string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Afisha struct {
		BaseURL  string        `envconfig:"AFISHA_BASE_URL" default:"https://afisha.yandex.ru/api"`
		SiteURL  string        `envconfig:"AFISHA_SITE_URL" default:"https://afisha.yandex.ru"`
		PageSize int           `envconfig:"AFISHA_PAGE_SIZE" default:"12"`
		Timeout  time.Duration `envconfig:"AFISHA_TIMEOUT" default:"10s"`
	} `envconfig:""`

	Dispatch struct {
		TickPeriod  time.Duration `envconfig:"DISPATCH_TICK_PERIOD" default:"60s"`
		BatchSize   int           `envconfig:"DISPATCH_BATCH_SIZE" default:"10"`
		Concurrency int           `envconfig:"DISPATCH_CONCURRENCY" default:"8"`
	} `envconfig:""`

	Queues struct {
		Broker  string `envconfig:"NOTIFY_QUEUE_BROKER" default:"redis"`
		Notify  string `envconfig:"NOTIFY_QUEUE_KEY" default:"notify_jobs"`
		AMQPURL string `envconfig:"AMQP_URL"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
