// Package driver defines the capability interface every storage backend
// implements, together with the mount and listing types it operates on.
//
// A Driver is bound to one backend connection. It holds no per-mount state:
// the mount travels with every call, so one Driver can serve any number of
// handles built over different mounts of the same backend.
package driver

import (
	"bytes"
	"context"
	"io"
	"time"
)

// Mount identifies a logical root of a backend (a pod, a bucket, the MFS
// root) and a path prefix within it. Mounts are plain values; existence is
// not checked until a backend call is made.
type Mount struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// Entries is the backend-agnostic result of listing a mount's current path.
// Names are leaf names. Files and Dirs are never nil.
type Entries struct {
	Files []string
	Dirs  []string
	Mount Mount
}

// EmptyEntries returns a listing with no children for m.
func EmptyEntries(m Mount) Entries {
	return Entries{Files: []string{}, Dirs: []string{}, Mount: m}
}

// Len returns the total number of entries.
func (e Entries) Len() int {
	return len(e.Files) + len(e.Dirs)
}

// File is a whole file held in memory. Backends are not assumed to support
// streaming or partial writes, so content always moves as one buffer.
type File struct {
	Name    string
	Data    []byte
	ModTime time.Time
}

// NewFile returns a File named name holding data.
func NewFile(name string, data []byte) *File {
	return &File{Name: name, Data: data, ModTime: time.Now()}
}

// Size returns the length of the file content.
func (f *File) Size() int64 {
	if f == nil {
		return 0
	}
	return int64(len(f.Data))
}

// Reader returns a reader over the file content.
func (f *File) Reader() io.ReadSeeker {
	return bytes.NewReader(f.Data)
}

// DownloadOptions tunes a Download call.
type DownloadOptions struct {
	// MaxSize caps the number of bytes buffered. Zero means no cap.
	// Downloads larger than MaxSize fail with ErrTooLarge.
	MaxSize int64
}

// UploadOptions tunes an Upload call.
type UploadOptions struct {
	// Overwrite replaces an existing object at the destination. Drivers that
	// cannot honor Overwrite=false report HonorsOverwrite=false in their
	// Capabilities and always overwrite.
	Overwrite bool
}

// UploadResult describes what the backend reported after storing a file.
type UploadResult struct {
	Path      string // backend location the file was written to
	Size      int64
	ETag      string // content tag when the backend reports one
	VersionID string
}

// Driver is the capability interface implemented by every backend adapter.
//
// path arguments are resolved against mount by the adapter; mount.Name
// selects the logical root and mount.Path the directory being addressed.
type Driver interface {
	// Exists reports whether an object named path is present under mount.
	// A not-found condition is (false, nil), never an error.
	Exists(ctx context.Context, path string, mount Mount) (bool, error)

	// CreateDir creates a directory. A backend refusal is (false, nil).
	CreateDir(ctx context.Context, path string, mount Mount) (bool, error)

	// Delete removes one object. It is never recursive. A missing object is
	// (false, nil); any other backend failure is returned as a *BackendError.
	Delete(ctx context.Context, path string, mount Mount) (bool, error)

	// Read lists the direct children of mount.Path. Missing or empty
	// locations yield EmptyEntries.
	Read(ctx context.Context, mount Mount) (Entries, error)

	// Download fetches the full content of one object.
	Download(ctx context.Context, path string, mount Mount, opts DownloadOptions) ([]byte, error)

	// Upload stores file at a destination derived from mount and file.Name.
	Upload(ctx context.Context, file *File, mount Mount, opts UploadOptions) (UploadResult, error)
}

// ReadAll buffers r honoring opts.MaxSize.
func ReadAll(r io.Reader, opts DownloadOptions) ([]byte, error) {
	if opts.MaxSize <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, opts.MaxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > opts.MaxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
