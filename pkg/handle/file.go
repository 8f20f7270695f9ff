package handle

import (
	"context"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
)

// FileHandle represents one named file under a mount.
type FileHandle struct {
	mount  driver.Mount
	driver driver.Driver
	name   string
	opts   options
}

// NewFileHandle returns a handle on the file name under mount.
func NewFileHandle(mount driver.Mount, d driver.Driver, name string, opts ...Option) *FileHandle {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &FileHandle{mount: mount, driver: d, name: name, opts: o}
}

func (h *FileHandle) Kind() Kind { return KindFile }

func (h *FileHandle) Name() string { return h.name }

func (h *FileHandle) Mount() driver.Mount { return h.mount }

// IsSameEntry reports whether other is a file handle with the same name.
// Names are compared without regard to mount.
func (h *FileHandle) IsSameEntry(other Handle) bool {
	o, ok := other.(*FileHandle)
	return ok && o.name == h.name
}

// GetFile downloads the file. Any driver failure is reported as ErrGone.
func (h *FileHandle) GetFile(ctx context.Context) (*driver.File, error) {
	data, err := h.driver.Download(ctx, h.name, h.mount, h.opts.downloadOptions())
	if err != nil {
		return nil, goneError("getFile", h.mount, h.name, err)
	}
	return driver.NewFile(h.name, data), nil
}

// CreateWritable opens a Sink on this file. Without KeepExistingData the sink
// starts empty; with it the current content is downloaded first and a failed
// download is ErrGone.
func (h *FileHandle) CreateWritable(ctx context.Context, opts CreateWritableOptions) (*Sink, error) {
	file := driver.NewFile(h.name, []byte{})
	if opts.KeepExistingData {
		var err error
		if file, err = h.GetFile(ctx); err != nil {
			return nil, err
		}
	}
	return &Sink{mount: h.mount, driver: h.driver, name: h.name, file: file}, nil
}
