package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL      string `envconfig:"URL" default:"http://localhost:8080"`
	Email    string `envconfig:"EMAIL" required:"true"`
	Password string `envconfig:"PASSWORD" required:"true"`
	// CHATCTL_NAME registers the account when set.
	Name       string        `envconfig:"NAME"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"10s"`
	BufferSize int           `envconfig:"BUFFER_SIZE" default:"64"`
	// CHATCTL_PREFERENCES stores the sound and theme toggles between runs.
	Preferences string `envconfig:"PREFERENCES" default:".chatctl.json"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"WARN"`
	Colours     bool   `envconfig:"COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("chatctl", &cfg)
	return cfg, err
}
