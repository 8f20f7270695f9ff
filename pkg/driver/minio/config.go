// Package minio implements driver.Driver over S3-compatible servers using
// minio-go. Mount names are bucket names.
package minio

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// Config holds MinIO connection settings.
type Config struct {
	// Endpoint is the server host, optionally with a port
	// (e.g., "localhost:9000"). A scheme, if present, is stripped and
	// decides UseSSL.
	Endpoint string

	// Port is appended to Endpoint when it carries none.
	Port int

	// AccessKey and SecretKey authenticate requests.
	AccessKey string
	SecretKey string

	// UseSSL enables HTTPS.
	UseSSL bool

	// Region skips bucket location lookups when set.
	Region string

	// Client is an optional pre-built client. When set, the connection
	// fields are ignored.
	Client API
}

// ConfigFromOptions copies the MinIO keys out of o.
func ConfigFromOptions(o provider.Options) Config {
	return Config{
		Endpoint:  o.Endpoint,
		Port:      o.Port,
		AccessKey: o.AccessKeyID,
		SecretKey: o.SecretAccessKey,
		UseSSL:    o.UseSSL,
		Region:    o.Region,
	}
}

// validate checks the configuration. Either Client or Endpoint with both
// keys must be provided.
func (c *Config) validate() error {
	if c.Client != nil {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required when client is not provided", driver.ErrInvalidConfig)
	}
	if c.AccessKey == "" {
		return fmt.Errorf("%w: access key is required when client is not provided", driver.ErrInvalidConfig)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("%w: secret key is required when client is not provided", driver.ErrInvalidConfig)
	}

	switch {
	case strings.HasPrefix(c.Endpoint, "https://"):
		c.UseSSL = true
		c.Endpoint = strings.TrimPrefix(c.Endpoint, "https://")
	case strings.HasPrefix(c.Endpoint, "http://"):
		c.UseSSL = false
		c.Endpoint = strings.TrimPrefix(c.Endpoint, "http://")
	}
	c.Endpoint = strings.TrimSuffix(c.Endpoint, "/")
	if _, _, err := net.SplitHostPort(c.Endpoint); err != nil && c.Port > 0 {
		c.Endpoint = net.JoinHostPort(c.Endpoint, strconv.Itoa(c.Port))
	}
	return nil
}
