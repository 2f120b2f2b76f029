package provider

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Name    string `envconfig:"PAYMENT_PROVIDER_NAME" default:"stripe"`
	BaseUrl string `envconfig:"PAYMENT_PROVIDER_URL" required:"true"`
	ApiKey  string `envconfig:"PAYMENT_PROVIDER_API_KEY" required:"true"`
	Timeout int    `envconfig:"PAYMENT_PROVIDER_TIMEOUT" default:"10"` // in seconds
	// Shared secret used to verify webhook signatures.
	WebhookSecret string `envconfig:"PAYMENT_PROVIDER_WEBHOOK_SECRET"`
}

func LoadConfig() (*Config, error) {
	c := &Config{}
	err := envconfig.Process("", c)
	if err != nil {
		return nil, fmt.Errorf("failed to process payment provider configuration: %w", err)
	}
	return c, nil
}
