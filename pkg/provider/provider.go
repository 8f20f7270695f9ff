// Package provider pairs a driver with the backend session operations that
// cannot be expressed generically: logging in, enumerating mounts and
// switching the active mount.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/internal/metrics"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/events"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/handle"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/transfer"
)

// Kind names a backend technology.
type Kind string

const (
	KindFairOS  Kind = "fairos"
	KindIPFSMFS Kind = "ipfs-mfs"
	KindS3      Kind = "s3"
	KindMinio   Kind = "minio"
	KindBlob    Kind = "blob"
)

// Kinds returns every supported kind.
func Kinds() []Kind {
	return []Kind{KindFairOS, KindIPFSMFS, KindS3, KindMinio, KindBlob}
}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider kind %q", s)
}

// Provider is a connected backend.
type Provider interface {
	Name() string
	Kind() Kind
	Driver() driver.Driver

	// ListMounts enumerates the logical roots available on the backend.
	ListMounts(ctx context.Context) ([]driver.Mount, error)

	// FSHandle makes mount current and returns a folder handle on it.
	FSHandle(ctx context.Context, mount driver.Mount, opts ...handle.Option) *handle.FolderHandle

	// CurrentMount returns the mount last passed to FSHandle.
	CurrentMount() (driver.Mount, bool)

	// OnMount publishes every change of the current mount.
	OnMount() *events.Subject[MountChange]

	// Transfer returns a new orchestrator uploading through Driver.
	Transfer() *transfer.FileSync
}

// Authenticator is implemented by providers that need a session.
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
	IsLoggedIn(ctx context.Context, username string) (bool, error)
}

// MountChange describes a move between mounts. HasPrevious is false for the
// first mount of a provider.
type MountChange struct {
	Previous    driver.Mount
	Current     driver.Mount
	HasPrevious bool
}

// MountHook runs synchronously inside FSHandle before subscribers are told.
type MountHook func(ctx context.Context, change MountChange)

// Base implements the backend-independent half of Provider. Adapter
// providers embed it and add ListMounts.
type Base struct {
	name   string
	kind   Kind
	driver driver.Driver

	mu      sync.Mutex
	current driver.Mount
	mounted bool
	hook    MountHook
	onMount *events.Subject[MountChange]
}

// NewBase returns a Base for a provider called name.
func NewBase(name string, kind Kind, d driver.Driver) *Base {
	return &Base{
		name:    name,
		kind:    kind,
		driver:  d,
		onMount: events.NewSubject[MountChange](),
	}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Kind() Kind { return b.kind }

func (b *Base) Driver() driver.Driver { return b.driver }

func (b *Base) OnMount() *events.Subject[MountChange] { return b.onMount }

// SetMountHook installs the backend-specific mount switch.
func (b *Base) SetMountHook(h MountHook) {
	b.mu.Lock()
	b.hook = h
	b.mu.Unlock()
}

func (b *Base) CurrentMount() (driver.Mount, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.mounted
}

func (b *Base) FSHandle(ctx context.Context, mount driver.Mount, opts ...handle.Option) *handle.FolderHandle {
	b.mu.Lock()
	change := MountChange{Previous: b.current, Current: mount, HasPrevious: b.mounted}
	b.current = mount
	b.mounted = true
	hook := b.hook
	b.mu.Unlock()

	logging.Debug("mount selected",
		logging.String("provider", b.name),
		logging.Mount(mount.Name, mount.Path))
	metrics.RecordMountSwitch(b.name)

	if hook != nil {
		hook(ctx, change)
	}
	b.onMount.Publish(change)

	return handle.NewFolderHandle(mount, b.driver, opts...)
}

func (b *Base) Transfer() *transfer.FileSync {
	return transfer.New(b.driver)
}
