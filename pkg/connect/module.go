package connect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver/blob"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver/fairos"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver/ipfsmfs"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver/minio"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver/s3"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// Constructor builds a provider from its options.
type Constructor func(ctx context.Context, name string, opts provider.Options) (provider.Provider, error)

// Registry maps a provider kind to its constructor.
type Registry map[provider.Kind]Constructor

// DefaultRegistry returns a registry holding every built-in adapter.
func DefaultRegistry() Registry {
	return Registry{
		provider.KindFairOS:  fairos.NewProvider,
		provider.KindIPFSMFS: ipfsmfs.NewProvider,
		provider.KindS3:      s3.NewProvider,
		provider.KindMinio:   minio.NewProvider,
		provider.KindBlob:    blob.NewProvider,
	}
}

// Module connects configured providers on demand and keeps them for reuse.
type Module struct {
	cfg      *ModuleConfig
	registry Registry

	mu        sync.Mutex
	connected map[string]provider.Provider
}

// NewModule returns a Module over cfg. A nil registry means DefaultRegistry.
func NewModule(cfg *ModuleConfig, registry Registry) *Module {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Module{
		cfg:       cfg,
		registry:  registry,
		connected: make(map[string]provider.Provider),
	}
}

// Config returns the configuration the module was built from.
func (m *Module) Config() *ModuleConfig {
	return m.cfg
}

// Connect builds the provider called name, logging in first when it needs a
// session and a username is configured. Later calls return the same
// provider.
func (m *Module) Connect(ctx context.Context, name string) (provider.Provider, error) {
	if name == "" {
		name = m.cfg.Default
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.connected[name]; ok {
		return p, nil
	}

	pc, ok := m.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	newProvider, ok := m.registry[pc.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, pc.Type)
	}

	p, err := newProvider(ctx, name, pc.Options)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}

	if auth, ok := p.(provider.Authenticator); ok && pc.Options.Username != "" {
		if err := auth.Login(ctx, pc.Options.Username, pc.Options.Password); err != nil {
			closeProvider(p)
			return nil, fmt.Errorf("connect %s: %w", name, err)
		}
	}

	logging.Info("Provider connected",
		zap.String("provider", name),
		zap.String("kind", string(pc.Type)))
	m.connected[name] = p
	return p, nil
}

// Provider returns an already connected provider.
func (m *Module) Provider(name string) (provider.Provider, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.connected[name]
	return p, ok
}

// Connected returns the names of connected providers in sorted order.
func (m *Module) Connected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.connected))
	for n := range m.connected {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close releases every connected provider that holds resources.
func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, p := range m.connected {
		if err := closeProvider(p); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(m.connected, name)
	}
	return errors.Join(errs...)
}

func closeProvider(p provider.Provider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
