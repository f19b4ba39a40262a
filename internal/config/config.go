package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ServiceURL        string        `env:"SERVICE_URL" envDefault:"https://bsky.social"`
	AccessJWT         string        `env:"ACCESS_JWT"`
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	RequestsPerSecond float64       `env:"REQUESTS_PER_SECOND" envDefault:"5"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	Redis             RedisConfig   `envPrefix:"REDIS_"`
}

type RedisConfig struct {
	// URL is optional; when empty the query cache stays in process memory.
	URL string `env:"URL"`
	// Namespace separates accounts sharing one redis.
	Namespace string `env:"NAMESPACE" envDefault:"default"`
}

func (c RedisConfig) Enabled() bool { return c.URL != "" }

func Read() (Config, error) {
	return env.ParseAs[Config]()
}
