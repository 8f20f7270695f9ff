package blob

import (
	"context"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// Provider exposes each top-level prefix of a bucket as a mount.
type Provider struct {
	*provider.Base
	driver *Driver
}

var _ provider.Provider = (*Provider)(nil)

// New opens the bucket and returns a Provider called name.
func New(ctx context.Context, name string, cfg Config) (*Provider, error) {
	d, err := NewDriver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Provider{Base: provider.NewBase(name, provider.KindBlob, d), driver: d}, nil
}

// NewProvider builds a Provider from the union options record.
func NewProvider(ctx context.Context, name string, opts provider.Options) (provider.Provider, error) {
	return New(ctx, name, ConfigFromOptions(opts))
}

func (p *Provider) ListMounts(ctx context.Context) ([]driver.Mount, error) {
	mounts, err := p.driver.mounts(ctx)
	if err != nil {
		return nil, err
	}
	if mounts == nil {
		mounts = []driver.Mount{}
	}
	return mounts, nil
}

// Close releases the bucket.
func (p *Provider) Close() error {
	return p.driver.Close()
}
