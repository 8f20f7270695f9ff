// Package s3 implements driver.Driver over Amazon S3 and S3-compatible
// services using aws-sdk-go-v2. Mount names are bucket names.
package s3

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// Config holds S3 connection settings.
type Config struct {
	// Endpoint is a custom service URL such as "http://localhost:9000".
	// Empty selects AWS.
	Endpoint string

	// Region. Default: DefaultRegion.
	Region string

	// AccessKeyID and SecretAccessKey select static credentials. When both
	// are empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle addresses buckets as path segments. Forced on when
	// Endpoint is set.
	UsePathStyle bool

	// Client is an optional pre-built client. When set, every other field
	// except Region is ignored.
	Client API
}

// ConfigFromOptions copies the S3 keys out of o. endpoint, port and useSSL
// are combined into one URL when endpoint carries no scheme.
func ConfigFromOptions(o provider.Options) Config {
	return Config{
		Endpoint:        endpointURL(o.Endpoint, o.Port, o.UseSSL),
		Region:          o.Region,
		AccessKeyID:     o.AccessKeyID,
		SecretAccessKey: o.SecretAccessKey,
		UsePathStyle:    o.PathStyle,
	}
}

func endpointURL(endpoint string, port int, useSSL bool) string {
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	host := endpoint
	if port > 0 {
		host = net.JoinHostPort(endpoint, strconv.Itoa(port))
	}
	return scheme + "://" + host
}

func (c *Config) validate() error {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Client != nil {
		return nil
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("%w: accessKeyId and secretAccessKey must be set together", driver.ErrInvalidConfig)
	}
	if c.Endpoint != "" {
		c.UsePathStyle = true
	}
	return nil
}
