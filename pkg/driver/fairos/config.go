// Package fairos implements driver.Driver over the FairOS REST API, where
// mounts are pods.
package fairos

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// DefaultHost is used when Config.Host is empty.
const DefaultHost = "https://fairos.dev.fairdatasociety.org/"

// Config holds FairOS connection settings.
type Config struct {
	// Host is the API base URL. Default: DefaultHost.
	Host string

	// Timeout bounds each HTTP request. Default: 30s.
	Timeout time.Duration

	// RetryAttempts bounds attempts for idempotent reads. Default: 3.
	RetryAttempts int

	// HTTPClient replaces the default client, which keeps the session
	// cookie in its own jar.
	HTTPClient *http.Client
}

// ConfigFromOptions copies the FairOS keys out of o.
func ConfigFromOptions(o provider.Options) Config {
	return Config{Host: o.Host, RetryAttempts: o.RetryAttempts}
}

func (c *Config) validate() error {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts must not be negative", driver.ErrInvalidConfig)
	}
	return nil
}
