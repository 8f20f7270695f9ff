package driver

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrGone is the uniform handle-level failure for anything that could not
	// be found when an operation ran. It matches fs.ErrNotExist.
	ErrGone = fmt.Errorf("a requested file or directory could not be found at the time an operation was processed: %w", fs.ErrNotExist)

	// ErrExist is returned by drivers honoring UploadOptions.Overwrite=false
	// when the destination is already taken. It matches fs.ErrExist.
	ErrExist = fmt.Errorf("destination already exists: %w", fs.ErrExist)

	// ErrTooLarge is returned when a download exceeds DownloadOptions.MaxSize.
	ErrTooLarge = errors.New("object exceeds the maximum download size")

	// ErrInvalidConfig is wrapped by adapter constructors rejecting a config.
	ErrInvalidConfig = errors.New("invalid driver config")
)

// BackendError reports a destructive backend call that failed. It is
// propagated unmodified so callers never mistake a failed delete for a no-op.
type BackendError struct {
	Driver string
	Op     string
	Path   string
	Err    error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Driver, e.Op, e.Path, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err for op on path. A nil err yields nil.
func NewBackendError(driver, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Driver: driver, Op: op, Path: path, Err: err}
}

// IsBackendError reports whether err carries a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
