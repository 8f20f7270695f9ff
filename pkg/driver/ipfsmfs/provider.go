package ipfsmfs

import (
	"context"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// RootMount is the only mount an MFS node exposes.
var RootMount = driver.Mount{Name: "root", Path: "/"}

// Provider exposes an IPFS node's MFS root.
type Provider struct {
	*provider.Base
}

var _ provider.Provider = (*Provider)(nil)

// New returns a Provider called name.
func New(name string, cfg Config) (*Provider, error) {
	d, err := NewDriver(cfg)
	if err != nil {
		return nil, err
	}
	return &Provider{Base: provider.NewBase(name, provider.KindIPFSMFS, d)}, nil
}

// NewProvider builds a Provider from the union options record.
func NewProvider(ctx context.Context, name string, opts provider.Options) (provider.Provider, error) {
	return New(name, ConfigFromOptions(opts))
}

// ListMounts always returns RootMount.
func (p *Provider) ListMounts(ctx context.Context) ([]driver.Mount, error) {
	return []driver.Mount{RootMount}, nil
}
