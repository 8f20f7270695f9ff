// Package blob implements driver.Driver over any gocloud.dev bucket. The
// first path segment of a key names the mount; directories are kept alive
// by zero-length marker objects.
package blob

import (
	"fmt"

	"gocloud.dev/blob"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// Config selects the bucket.
type Config struct {
	// URL is a gocloud.dev bucket URL such as "file:///srv/opfs",
	// "mem://" or "s3://bucket?region=eu-west-1".
	URL string

	// Bucket is an already opened bucket. When set, URL is ignored and the
	// caller keeps ownership of the bucket.
	Bucket *blob.Bucket
}

// ConfigFromOptions copies the url key out of o.
func ConfigFromOptions(o provider.Options) Config {
	return Config{URL: o.URL}
}

func (c *Config) validate() error {
	if c.Bucket == nil && c.URL == "" {
		return fmt.Errorf("%w: url is required when bucket is not provided", driver.ErrInvalidConfig)
	}
	return nil
}
