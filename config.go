package eventflow

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// PublisherConfig controls the publisher poll loop.
type PublisherConfig struct {
	// PollInterval is the initial wait after an empty poll.
	PollInterval time.Duration `env:"EVENTFLOW_POLL_INTERVAL" envDefault:"50ms"`

	// MaxPollInterval caps the exponential backoff of an idle publisher.
	MaxPollInterval time.Duration `env:"EVENTFLOW_MAX_POLL_INTERVAL" envDefault:"2s"`

	// ErrorBuffer sizes the publisher error channel.
	ErrorBuffer int `env:"EVENTFLOW_ERROR_BUFFER" envDefault:"64"`
}

// DefaultPublisherConfig returns the built-in polling defaults.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		PollInterval:    50 * time.Millisecond,
		MaxPollInterval: 2 * time.Second,
		ErrorBuffer:     64,
	}
}

// PublisherConfigFromEnv reads the publisher configuration from the
// environment, falling back to the defaults for unset variables.
func PublisherConfigFromEnv() (PublisherConfig, error) {
	return env.ParseAs[PublisherConfig]()
}
