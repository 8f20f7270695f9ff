package handle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
)

// Sink buffers one whole-file replacement and uploads it on Close.
//
// Each Write replaces the buffered content; nothing accumulates. A Sink is for
// a single writer and is not safe for concurrent use.
type Sink struct {
	mount  driver.Mount
	driver driver.Driver
	name   string
	file   *driver.File
	closed bool
}

// Has reports whether key exists under the sink's mount. Driver errors read
// as false.
func (s *Sink) Has(ctx context.Context, key string) bool {
	ok, err := s.driver.Exists(ctx, key, s.mount)
	return err == nil && ok
}

// Write replaces the buffered content with chunk.
func (s *Sink) Write(chunk []byte) error {
	if s.closed {
		return ErrClosed
	}
	data := make([]byte, len(chunk))
	copy(data, chunk)
	s.file = &driver.File{Name: s.name, Data: data, ModTime: time.Now()}
	return nil
}

// WriteFile replaces the buffered file with f. An unnamed f takes the
// handle's name.
func (s *Sink) WriteFile(f *driver.File) error {
	if s.closed {
		return ErrClosed
	}
	if f == nil {
		return errors.New("handle: nil file")
	}
	if f.Name == "" {
		cp := *f
		cp.Name = s.name
		f = &cp
	}
	s.file = f
	return nil
}

// Close uploads the buffered file with a single Upload call, replacing any
// existing object. The sink is closed even when the upload fails, and the
// driver's error is wrapped rather than reported as ErrGone.
func (s *Sink) Close(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true

	if _, err := s.driver.Upload(ctx, s.file, s.mount, driver.UploadOptions{Overwrite: true}); err != nil {
		return fmt.Errorf("upload %s: %w", driver.JoinPath(s.mount, s.file.Name), err)
	}
	return nil
}
