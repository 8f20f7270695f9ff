// Package handle exposes a mounted backend as directory and file handles.
//
// Handles are cheap values holding a mount and a shared driver.Driver. They
// keep no listing cache and hold no open resources between calls: every
// operation is one self-contained round trip through the driver. Operations
// that cannot locate what they were asked for fail with driver.ErrGone,
// whatever the underlying backend reported.
package handle

import (
	"errors"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
)

// Kind distinguishes file handles from directory handles.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Handle is the behaviour shared by FolderHandle and FileHandle.
type Handle interface {
	Kind() Kind
	Name() string
	IsSameEntry(other Handle) bool
}

// ErrClosed is returned by a Sink used after Close.
var ErrClosed = errors.New("handle: writable already closed")

// Entry is one element produced by FolderHandle.Entries.
type Entry struct {
	Name   string
	Handle Handle
}

// GetDirectoryOptions tunes FolderHandle.GetDirectoryHandle.
type GetDirectoryOptions struct {
	Create bool
}

// GetFileOptions tunes FolderHandle.GetFileHandle.
type GetFileOptions struct {
	Create bool
}

// RemoveOptions tunes FolderHandle.RemoveEntry. Removal is never recursive;
// Recursive is accepted for interface parity and ignored.
type RemoveOptions struct {
	Recursive bool
}

// CreateWritableOptions tunes FileHandle.CreateWritable.
type CreateWritableOptions struct {
	// KeepExistingData seeds the writable with the file's current content.
	KeepExistingData bool
}

type options struct {
	descend bool
	maxSize int64
}

// Option configures a FolderHandle and every handle derived from it.
type Option func(*options)

// WithDescend makes child folder handles address the joined subpath.
//
// Without it child folders stay bound to the parent's mount, so a directory
// tree is presented one level deep.
func WithDescend() Option {
	return func(o *options) { o.descend = true }
}

// WithMaxDownloadSize caps the bytes GetFile buffers for one file.
func WithMaxDownloadSize(n int64) Option {
	return func(o *options) { o.maxSize = n }
}

func (o options) downloadOptions() driver.DownloadOptions {
	return driver.DownloadOptions{MaxSize: o.maxSize}
}
