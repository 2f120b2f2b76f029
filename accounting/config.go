package accounting

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseUrl     string `envconfig:"QBO_BASE_URL" required:"true"`
	RealmID     string `envconfig:"QBO_REALM_ID" required:"true"`
	AccessToken string `envconfig:"QBO_ACCESS_TOKEN" required:"true"`
	Timeout     int    `envconfig:"QBO_TIMEOUT" default:"30"` // in seconds
}

func LoadConfig() (*Config, error) {
	c := &Config{}
	err := envconfig.Process("", c)
	if err != nil {
		return nil, fmt.Errorf("failed to process accounting configuration: %w", err)
	}
	return c, nil
}
