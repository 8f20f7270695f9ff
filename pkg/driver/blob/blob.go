package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/internal/metrics"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
)

const kind = "blob"

// KeepFile marks a directory that has no other children.
const KeepFile = ".keep"

// Driver stores files in a gocloud.dev bucket.
type Driver struct {
	bucket *blob.Bucket
	owned  bool
}

var _ driver.Driver = (*Driver)(nil)

// NewDriver opens the bucket described by cfg.
func NewDriver(ctx context.Context, cfg Config) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Bucket != nil {
		return &Driver{bucket: cfg.Bucket}, nil
	}
	b, err := blob.OpenBucket(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", cfg.URL, err)
	}
	return &Driver{bucket: b, owned: true}, nil
}

// Close releases the bucket if the driver opened it.
func (d *Driver) Close() error {
	if !d.owned {
		return nil
	}
	return d.bucket.Close()
}

// Capabilities reports full contract support. Overwrite protection is a
// check followed by a write, so concurrent writers can still race.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{HonorsOverwrite: true, IdempotentCreateDir: true, ExactExists: true}
}

func key(mount driver.Mount, name string) string {
	return strings.TrimPrefix(path.Join(mount.Name, driver.ObjectKey(mount, name)), "/")
}

func prefix(mount driver.Mount) string {
	k := key(mount, "")
	if k == "" || k == "." {
		return ""
	}
	return k + "/"
}

func isNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

func (d *Driver) Exists(ctx context.Context, name string, mount driver.Mount) (bool, error) {
	start := time.Now()
	ok, err := d.bucket.Exists(ctx, key(mount, name))
	metrics.RecordDriverOperation(kind, "exists", time.Since(start), err == nil)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key(mount, name), err)
	}
	return ok, nil
}

// CreateDir writes a marker object below the new directory. Creating a
// directory that already exists rewrites the marker and succeeds.
func (d *Driver) CreateDir(ctx context.Context, name string, mount driver.Mount) (bool, error) {
	start := time.Now()
	k := key(mount, path.Join(name, KeepFile))
	err := d.bucket.WriteAll(ctx, k, nil, nil)
	metrics.RecordDriverOperation(kind, "createDir", time.Since(start), err == nil)
	if err != nil {
		logging.Debug("blob mkdir refused", zap.String("key", k), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Delete removes one object. The existence check and the removal are not
// atomic.
func (d *Driver) Delete(ctx context.Context, name string, mount driver.Mount) (bool, error) {
	start := time.Now()
	k := key(mount, name)

	ok, err := d.bucket.Exists(ctx, k)
	if err != nil {
		metrics.RecordDriverOperation(kind, "delete", time.Since(start), false)
		return false, driver.NewBackendError(kind, "delete", k, err)
	}
	if !ok {
		metrics.RecordDriverOperation(kind, "delete", time.Since(start), true)
		return false, nil
	}

	err = d.bucket.Delete(ctx, k)
	metrics.RecordDriverOperation(kind, "delete", time.Since(start), err == nil || isNotFound(err))
	switch {
	case isNotFound(err):
		return false, nil
	case err != nil:
		return false, driver.NewBackendError(kind, "delete", k, err)
	}
	return true, nil
}

// Read lists one level below the mount's path, hiding directory markers.
func (d *Driver) Read(ctx context.Context, mount driver.Mount) (driver.Entries, error) {
	start := time.Now()
	entries := driver.EmptyEntries(mount)
	p := prefix(mount)

	iter := d.bucket.List(&blob.ListOptions{Prefix: p, Delimiter: "/"})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.RecordDriverOperation(kind, "read", time.Since(start), false)
			if isNotFound(err) {
				return driver.EmptyEntries(mount), nil
			}
			return driver.EmptyEntries(mount), fmt.Errorf("list %s: %w", p, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, p), "/")
		switch {
		case name == "" || name == KeepFile:
		case obj.IsDir:
			entries.Dirs = append(entries.Dirs, name)
		default:
			entries.Files = append(entries.Files, name)
		}
	}
	metrics.RecordDriverOperation(kind, "read", time.Since(start), true)
	return entries, nil
}

func (d *Driver) Download(ctx context.Context, name string, mount driver.Mount, opts driver.DownloadOptions) ([]byte, error) {
	start := time.Now()
	k := key(mount, name)

	r, err := d.bucket.NewReader(ctx, k, nil)
	if err != nil {
		metrics.RecordDriverOperation(kind, "download", time.Since(start), false)
		return nil, fmt.Errorf("open %s: %w", k, err)
	}
	defer r.Close()

	data, err := driver.ReadAll(r, opts)
	metrics.RecordDriverOperation(kind, "download", time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	metrics.RecordDownload(kind, int64(len(data)))
	return data, nil
}

func (d *Driver) Upload(ctx context.Context, file *driver.File, mount driver.Mount, opts driver.UploadOptions) (driver.UploadResult, error) {
	start := time.Now()
	k := key(mount, file.Name)

	if !opts.Overwrite {
		exists, err := d.bucket.Exists(ctx, k)
		if err != nil {
			metrics.RecordDriverOperation(kind, "upload", time.Since(start), false)
			return driver.UploadResult{}, fmt.Errorf("exists %s: %w", k, err)
		}
		if exists {
			metrics.RecordDriverOperation(kind, "upload", time.Since(start), false)
			return driver.UploadResult{}, fmt.Errorf("%s: %w", k, driver.ErrExist)
		}
	}

	err := d.bucket.WriteAll(ctx, k, file.Data, &blob.WriterOptions{ContentType: "application/octet-stream"})
	metrics.RecordDriverOperation(kind, "upload", time.Since(start), err == nil)
	if err != nil {
		return driver.UploadResult{}, fmt.Errorf("write %s: %w", k, err)
	}
	metrics.RecordUpload(kind, file.Size())

	res := driver.UploadResult{Path: k, Size: file.Size()}
	if attrs, err := d.bucket.Attributes(ctx, k); err == nil {
		res.ETag = strings.Trim(attrs.ETag, `"`)
	}
	return res, nil
}

// mounts returns the top-level prefixes of the bucket.
func (d *Driver) mounts(ctx context.Context) ([]driver.Mount, error) {
	start := time.Now()
	var mounts []driver.Mount

	iter := d.bucket.List(&blob.ListOptions{Delimiter: "/"})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.RecordDriverOperation(kind, "listMounts", time.Since(start), false)
			return nil, fmt.Errorf("list mounts: %w", err)
		}
		if obj.IsDir {
			mounts = append(mounts, driver.Mount{Name: strings.TrimSuffix(obj.Key, "/"), Path: "/"})
		}
	}
	metrics.RecordDriverOperation(kind, "listMounts", time.Since(start), true)
	return mounts, nil
}
