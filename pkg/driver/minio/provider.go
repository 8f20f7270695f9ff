package minio

import (
	"context"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// Provider exposes every bucket on the server as a mount.
type Provider struct {
	*provider.Base
	driver *Driver
}

var _ provider.Provider = (*Provider)(nil)

// New returns a Provider called name.
func New(name string, cfg Config) (*Provider, error) {
	d, err := NewDriver(cfg)
	if err != nil {
		return nil, err
	}
	return &Provider{Base: provider.NewBase(name, provider.KindMinio, d), driver: d}, nil
}

// NewProvider builds a Provider from the union options record.
func NewProvider(ctx context.Context, name string, opts provider.Options) (provider.Provider, error) {
	return New(name, ConfigFromOptions(opts))
}

// ListMounts returns one mount per bucket, rooted at "/".
func (p *Provider) ListMounts(ctx context.Context) ([]driver.Mount, error) {
	return p.driver.listBuckets(ctx)
}
