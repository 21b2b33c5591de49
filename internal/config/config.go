package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development" validate:"required"`
	Port      string `env:"PORT" default:"3001" validate:"required,numeric"`
	LogLevel  string `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" default:"text" validate:"oneof=text json"`

	// Comma separated; "*" allows any origin.
	AllowedOrigins string `env:"ALLOWED_ORIGINS" default:"*" validate:"required"`

	KeepAlive          time.Duration `env:"WS_KEEPALIVE" default:"20s" validate:"gt=0s"`
	MaxKeepAliveMisses int           `env:"WS_MAX_KEEPALIVE_MISSES" default:"3" validate:"min=1"`
	SendBuffer         int           `env:"WS_SEND_BUFFER" default:"16" validate:"min=1"`
	EventRate          float64       `env:"WS_EVENT_RATE" default:"10" validate:"gt=0"`
	EventBurst         int           `env:"WS_EVENT_BURST" default:"20" validate:"min=1"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0s"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads an optional env file, then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return ":" + c.Port
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Origins returns the allowed websocket origins; nil means any origin.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return nil
		}
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
