// Package ipfsmfs implements driver.Driver over the mutable file system of
// an IPFS node, using the Kubo RPC API.
package ipfsmfs

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// DefaultHost is the RPC endpoint of a local node.
const DefaultHost = "http://localhost:5001/api/v0/"

// Config holds Kubo RPC settings.
type Config struct {
	// Host is the RPC base URL including the /api/v0/ prefix.
	// Default: DefaultHost.
	Host string

	// Timeout bounds each RPC call. Default: 30s.
	Timeout time.Duration

	// RetryAttempts bounds attempts for read-only calls. Default: 3.
	RetryAttempts int

	HTTPClient *http.Client
}

// ConfigFromOptions copies the IPFS keys out of o.
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
