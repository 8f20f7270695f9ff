package handle

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"

	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/internal/metrics"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
)

// FolderHandle represents a directory: a mount on a driver.
type FolderHandle struct {
	mount  driver.Mount
	driver driver.Driver
	opts   options
	name   string // set on descended children
}

// NewFolderHandle returns a handle on mount served by d.
func NewFolderHandle(mount driver.Mount, d driver.Driver, opts ...Option) *FolderHandle {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &FolderHandle{mount: mount, driver: d, opts: o}
}

func (f *FolderHandle) Kind() Kind { return KindDirectory }

// Name returns the mount name. A child reached with WithDescend is named
// after its directory instead.
func (f *FolderHandle) Name() string {
	if f.name != "" {
		return f.name
	}
	return f.mount.Name
}

// Path returns the mount path this handle addresses.
func (f *FolderHandle) Path() string { return f.mount.Path }

func (f *FolderHandle) Mount() driver.Mount { return f.mount }

// IsSameEntry reports whether other is a folder handle on the same path.
func (f *FolderHandle) IsSameEntry(other Handle) bool {
	o, ok := other.(*FolderHandle)
	return ok && o.mount.Path == f.mount.Path
}

// Entries lists the folder: directories first, then files.
//
// The backend is read when iteration starts, so each range over the returned
// sequence performs a fresh listing. A read failure is yielded once as the
// error of a zero Entry.
func (f *FolderHandle) Entries(ctx context.Context) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		entries, err := f.driver.Read(ctx, f.mount)
		if err != nil {
			yield(Entry{}, fmt.Errorf("read %s: %w", driver.DirPath(f.mount), err))
			return
		}
		for _, name := range entries.Dirs {
			if !yield(Entry{Name: name, Handle: f.child(name)}, nil) {
				return
			}
		}
		for _, name := range entries.Files {
			if !yield(Entry{Name: name, Handle: f.file(name)}, nil) {
				return
			}
		}
	}
}

// GetDirectoryHandle returns a handle for the child directory name.
//
// With Create set the directory is created first. A driver that reports the
// directory was not created is logged and the handle is returned anyway. Without
// Create the folder must have a non-empty listing (or, when descending, list
// name among its directories); otherwise ErrGone is returned.
func (f *FolderHandle) GetDirectoryHandle(ctx context.Context, name string, opts GetDirectoryOptions) (*FolderHandle, error) {
	if opts.Create {
		ok, err := f.driver.CreateDir(ctx, name, f.mount)
		if err != nil {
			return nil, f.gone("getDirectoryHandle", name, err)
		}
		if !ok {
			logging.Warn("directory was not created",
				logging.Mount(f.mount.Name, f.mount.Path),
				logging.String("name", name))
		}
		return f.child(name), nil
	}

	entries, err := f.driver.Read(ctx, f.mount)
	if err != nil {
		return nil, f.gone("getDirectoryHandle", name, err)
	}
	found := entries.Len() > 0
	if f.opts.descend {
		found = slices.Contains(entries.Dirs, name)
	}
	if !found {
		return nil, f.gone("getDirectoryHandle", name, nil)
	}
	return f.child(name), nil
}

// GetFileHandle returns a handle for name. It never fails: existence is only
// established when the file is read.
func (f *FolderHandle) GetFileHandle(name string, opts GetFileOptions) *FileHandle {
	return f.file(name)
}

// RemoveEntry deletes the file name. A failed or refused delete is ErrGone.
func (f *FolderHandle) RemoveEntry(ctx context.Context, name string, opts RemoveOptions) error {
	ok, err := f.driver.Delete(ctx, name, f.mount)
	if err != nil {
		return f.gone("removeEntry", name, err)
	}
	if !ok {
		return f.gone("removeEntry", name, nil)
	}
	return nil
}

func (f *FolderHandle) child(name string) *FolderHandle {
	if f.opts.descend {
		return &FolderHandle{mount: driver.Child(f.mount, name), driver: f.driver, opts: f.opts, name: name}
	}
	return &FolderHandle{mount: f.mount, driver: f.driver, opts: f.opts}
}

func (f *FolderHandle) file(name string) *FileHandle {
	return &FileHandle{mount: f.mount, driver: f.driver, name: name, opts: f.opts}
}

func (f *FolderHandle) gone(op, name string, cause error) error {
	return goneError(op, f.mount, name, cause)
}

func goneError(op string, mount driver.Mount, name string, cause error) error {
	metrics.RecordHandleGone(op)
	fields := []zap.Field{logging.Mount(mount.Name, mount.Path), logging.String("name", name)}
	if cause != nil {
		fields = append(fields, logging.Err(cause))
	}
	logging.Debug(op+" failed", fields...)
	return driver.ErrGone
}
