package s3

import (
	"context"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// Provider exposes every bucket visible to the credentials as a mount.
type Provider struct {
	*provider.Base
	driver *Driver
}

var _ provider.Provider = (*Provider)(nil)

// New returns a Provider called name.
func New(ctx context.Context, name string, cfg Config) (*Provider, error) {
	d, err := NewDriver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Provider{Base: provider.NewBase(name, provider.KindS3, d), driver: d}, nil
}

// NewProvider builds a Provider from the union options record.
func NewProvider(ctx context.Context, name string, opts provider.Options) (provider.Provider, error) {
	return New(ctx, name, ConfigFromOptions(opts))
}

// ListMounts returns one mount per bucket, rooted at "/".
func (p *Provider) ListMounts(ctx context.Context) ([]driver.Mount, error) {
	return p.driver.listBuckets(ctx)
}
