// Package drivertest checks that a driver.Driver satisfies the driver
// contract. Adapters call Run from their own tests with a factory that
// returns a fresh driver and a mount that already exists.
package drivertest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
)

// Factory returns the driver under test and a writable mount on it.
type Factory func(t *testing.T) (driver.Driver, driver.Mount)

// Options tunes Run for backends with naming restrictions.
type Options struct {
	// DirName is used for CreateDir. Bucket-backed drivers need a name that
	// is a valid bucket name. Defaults to "conformance-dir".
	DirName string
}

// Run executes the conformance suite.
func Run(t *testing.T, newDriver Factory, opts Options) {
	if opts.DirName == "" {
		opts.DirName = "conformance-dir"
	}

	t.Run("ReadNeverNil", func(t *testing.T) {
		d, m := newDriver(t)
		ctx := context.Background()

		entries, err := d.Read(ctx, m)
		require.NoError(t, err)
		assert.NotNil(t, entries.Files)
		assert.NotNil(t, entries.Dirs)
		assert.Equal(t, m, entries.Mount)

		missing := driver.Child(m, uniqueName("missing-dir"))
		entries, err = d.Read(ctx, missing)
		require.NoError(t, err)
		assert.NotNil(t, entries.Files)
		assert.NotNil(t, entries.Dirs)
		assert.Zero(t, entries.Len())
	})

	t.Run("ExistsMissing", func(t *testing.T) {
		d, m := newDriver(t)
		ok, err := d.Exists(context.Background(), uniqueName("missing")+".txt", m)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		d, m := newDriver(t)
		ctx := context.Background()
		name := uniqueName("round-trip") + ".bin"
		content := []byte("hello\x00world\n")

		_, err := d.Upload(ctx, driver.NewFile(name, content), m, driver.UploadOptions{Overwrite: true})
		require.NoError(t, err)

		got, err := d.Download(ctx, name, m, driver.DownloadOptions{})
		require.NoError(t, err)
		assert.Equal(t, content, got)

		if driver.CapabilitiesOf(d).ExactExists {
			ok, err := d.Exists(ctx, name, m)
			require.NoError(t, err)
			assert.True(t, ok)
		}

		entries, err := d.Read(ctx, m)
		require.NoError(t, err)
		assert.Contains(t, entries.Files, name)
	})

	t.Run("DownloadMaxSize", func(t *testing.T) {
		d, m := newDriver(t)
		ctx := context.Background()
		name := uniqueName("large") + ".txt"

		_, err := d.Upload(ctx, driver.NewFile(name, []byte("0123456789")), m, driver.UploadOptions{Overwrite: true})
		require.NoError(t, err)

		_, err = d.Download(ctx, name, m, driver.DownloadOptions{MaxSize: 4})
		assert.ErrorIs(t, err, driver.ErrTooLarge)
	})

	t.Run("Overwrite", func(t *testing.T) {
		d, m := newDriver(t)
		ctx := context.Background()
		name := uniqueName("overwrite") + ".txt"

		_, err := d.Upload(ctx, driver.NewFile(name, []byte("v1")), m, driver.UploadOptions{})
		require.NoError(t, err)

		_, err = d.Upload(ctx, driver.NewFile(name, []byte("v2")), m, driver.UploadOptions{})
		if driver.CapabilitiesOf(d).HonorsOverwrite {
			assert.ErrorIs(t, err, driver.ErrExist)
			got, derr := d.Download(ctx, name, m, driver.DownloadOptions{})
			require.NoError(t, derr)
			assert.Equal(t, "v1", string(got))
		} else {
			require.NoError(t, err)
		}

		_, err = d.Upload(ctx, driver.NewFile(name, []byte("v3")), m, driver.UploadOptions{Overwrite: true})
		require.NoError(t, err)
		got, err := d.Download(ctx, name, m, driver.DownloadOptions{})
		require.NoError(t, err)
		assert.Equal(t, "v3", string(got))
	})

	t.Run("CreateDirTwice", func(t *testing.T) {
		d, m := newDriver(t)
		ctx := context.Background()

		ok, err := d.CreateDir(ctx, opts.DirName, m)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = d.CreateDir(ctx, opts.DirName, m)
		require.NoError(t, err, "a repeated create must not fail hard")
		if driver.CapabilitiesOf(d).IdempotentCreateDir {
			assert.True(t, ok)
		} else {
			assert.False(t, ok)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		d, m := newDriver(t)
		ctx := context.Background()
		name := uniqueName("delete") + ".txt"

		_, err := d.Upload(ctx, driver.NewFile(name, []byte("bye")), m, driver.UploadOptions{Overwrite: true})
		require.NoError(t, err)

		ok, err := d.Delete(ctx, name, m)
		require.NoError(t, err)
		assert.True(t, ok)

		exists, err := d.Exists(ctx, name, m)
		require.NoError(t, err)
		assert.False(t, exists)

		ok, err = d.Delete(ctx, name, m)
		if err != nil {
			assert.True(t, driver.IsBackendError(err), "delete failures must be BackendErrors, got %v", err)
		} else {
			assert.False(t, ok)
		}
	})

	t.Run("DownloadMissing", func(t *testing.T) {
		d, m := newDriver(t)
		_, err := d.Download(context.Background(), uniqueName("absent")+".txt", m, driver.DownloadOptions{})
		assert.Error(t, err)
		assert.False(t, errors.Is(err, driver.ErrTooLarge))
	})
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
