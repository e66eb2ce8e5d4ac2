// Package config loads the process configuration from the environment, the
// way BrunoKrugel-snapshot2stream's internal/config package does: one
// env-tagged struct populated by a single typed loader, instead of scattered
// os.Getenv calls.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds every environment variable the engine reads, per spec §6.
type Config struct {
	RabbitMQHost string `env:"RABBITMQ_HOST" envDefault:"localhost"`
	RabbitMQPort int    `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUser string `env:"RABBITMQ_USER" envDefault:"guest"`
	RabbitMQPass string `env:"RABBITMQ_PASS" envDefault:"guest"`

	APIGatewayURL string `env:"API_GATEWAY_URL,required"`

	ModelsPath string `env:"MODELS_PATH" envDefault:"./models"`
	MediaPath  string `env:"MEDIA_PATH" envDefault:"./media"`
	UseGPU     bool   `env:"USE_GPU" envDefault:"false"`

	MaxProcessingTimeSeconds int `env:"MAX_PROCESSING_TIME" envDefault:"5"`
	PerformanceLogInterval   int `env:"PERFORMANCE_LOG_INTERVAL" envDefault:"60"`

	EventsDBURL      string `env:"EVENTS_DB_URL" envDefault:"./events.db"`
	PipelineCacheTTL int    `env:"PIPELINE_CACHE_TTL" envDefault:"300"`

	ReconcileIntervalSeconds int `env:"RECONCILE_INTERVAL" envDefault:"30"`
	WSListenAddr             string `env:"WS_LISTEN_ADDR" envDefault:":8090"`
}

// Load reads a .env file if present (development convenience, silently
// ignored if missing) and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// AMQPAddress builds the amqp:// connection string from the loaded fields.
func (c *Config) AMQPAddress() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.RabbitMQUser, c.RabbitMQPass, c.RabbitMQHost, c.RabbitMQPort)
}
