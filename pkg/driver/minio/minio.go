package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/internal/metrics"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
)

const kind = "minio"

// API is the subset of *minio.Client the driver calls. OpenObject stands in
// for GetObject so fakes need not build a *minio.Object.
type API interface {
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	OpenObject(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// clientAPI adapts *minio.Client to API.
type clientAPI struct {
	*minio.Client
}

func (c clientAPI) OpenObject(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	obj, err := c.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing key before any read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// WrapClient returns client as an API.
func WrapClient(client *minio.Client) API {
	return clientAPI{Client: client}
}

// Driver stores files as objects. Uploads always replace the destination.
type Driver struct {
	client API
	region string
}

var _ driver.Driver = (*Driver)(nil)

// NewDriver validates cfg and returns a Driver.
func NewDriver(cfg Config) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Client != nil {
		return &Driver{client: cfg.Client, region: cfg.Region}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Driver{client: WrapClient(client), region: cfg.Region}, nil
}

// Capabilities reports that uploads always overwrite and that CreateDir,
// which creates a bucket, is refused on repeat.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{ExactExists: true}
}

// isNotFound reports the error codes S3 uses for a missing key or bucket.
func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return false
}

// isResponseError reports whether the server answered.
func isResponseError(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode != 0 || resp.Code != ""
}

func (d *Driver) Exists(ctx context.Context, path string, mount driver.Mount) (bool, error) {
	start := time.Now()
	key := driver.ObjectKey(mount, path)

	_, err := d.client.StatObject(ctx, mount.Name, key, minio.StatObjectOptions{})
	metrics.RecordDriverOperation(kind, "exists", time.Since(start), err == nil || isResponseError(err))
	if err != nil {
		if isResponseError(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

// CreateDir makes a bucket called path.
func (d *Driver) CreateDir(ctx context.Context, path string, mount driver.Mount) (bool, error) {
	start := time.Now()
	err := d.client.MakeBucket(ctx, path, minio.MakeBucketOptions{Region: d.region})
	metrics.RecordDriverOperation(kind, "createDir", time.Since(start), err == nil)
	if err != nil {
		if isResponseError(err) {
			logging.Debug("MinIO make bucket refused", zap.String("bucket", path), zap.Error(err))
			return false, nil
		}
		return false, fmt.Errorf("make bucket %s: %w", path, err)
	}
	return true, nil
}

// Delete removes one object. Removal of a missing key succeeds silently on
// S3, so the key is checked first; the check and the removal are not atomic.
func (d *Driver) Delete(ctx context.Context, path string, mount driver.Mount) (bool, error) {
	start := time.Now()
	key := driver.ObjectKey(mount, path)

	if _, err := d.client.StatObject(ctx, mount.Name, key, minio.StatObjectOptions{}); err != nil {
		metrics.RecordDriverOperation(kind, "delete", time.Since(start), isNotFound(err))
		if isNotFound(err) {
			return false, nil
		}
		return false, driver.NewBackendError(kind, "delete", key, err)
	}

	err := d.client.RemoveObject(ctx, mount.Name, key, minio.RemoveObjectOptions{})
	metrics.RecordDriverOperation(kind, "delete", time.Since(start), err == nil)
	if err != nil {
		return false, driver.NewBackendError(kind, "delete", key, err)
	}
	logging.Debug("MinIO remove object", zap.String("bucket", mount.Name), zap.String("key", key))
	return true, nil
}

// Read lists one level below mount.Path.
func (d *Driver) Read(ctx context.Context, mount driver.Mount) (driver.Entries, error) {
	start := time.Now()
	entries := driver.EmptyEntries(mount)
	prefix := driver.ListPrefix(mount)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range d.client.ListObjects(ctx, mount.Name, minio.ListObjectsOptions{Prefix: prefix, Recursive: false}) {
		if obj.Err != nil {
			if isResponseError(obj.Err) {
				metrics.RecordDriverOperation(kind, "read", time.Since(start), true)
				return driver.EmptyEntries(mount), nil
			}
			metrics.RecordDriverOperation(kind, "read", time.Since(start), false)
			return driver.EmptyEntries(mount), fmt.Errorf("list %s/%s: %w", mount.Name, prefix, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		switch {
		case name == "":
		case strings.HasSuffix(name, "/"):
			entries.Dirs = append(entries.Dirs, strings.TrimSuffix(name, "/"))
		default:
			entries.Files = append(entries.Files, name)
		}
	}
	metrics.RecordDriverOperation(kind, "read", time.Since(start), true)
	return entries, nil
}

func (d *Driver) Download(ctx context.Context, path string, mount driver.Mount, opts driver.DownloadOptions) ([]byte, error) {
	start := time.Now()
	key := driver.ObjectKey(mount, path)

	rc, err := d.client.OpenObject(ctx, mount.Name, key)
	if err != nil {
		metrics.RecordDriverOperation(kind, "download", time.Since(start), false)
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer rc.Close()

	data, err := driver.ReadAll(rc, opts)
	metrics.RecordDriverOperation(kind, "download", time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	metrics.RecordDownload(kind, int64(len(data)))
	return data, nil
}

// Upload always replaces the destination; opts.Overwrite is ignored.
func (d *Driver) Upload(ctx context.Context, file *driver.File, mount driver.Mount, opts driver.UploadOptions) (driver.UploadResult, error) {
	start := time.Now()
	key := driver.ObjectKey(mount, file.Name)

	info, err := d.client.PutObject(ctx, mount.Name, key, bytes.NewReader(file.Data), file.Size(), minio.PutObjectOptions{})
	metrics.RecordDriverOperation(kind, "upload", time.Since(start), err == nil)
	if err != nil {
		return driver.UploadResult{}, fmt.Errorf("put object %s: %w", key, err)
	}
	metrics.RecordUpload(kind, file.Size())

	return driver.UploadResult{
		Path:      info.Bucket + "/" + info.Key,
		Size:      info.Size,
		ETag:      info.ETag,
		VersionID: info.VersionID,
	}, nil
}

func (d *Driver) listBuckets(ctx context.Context) ([]driver.Mount, error) {
	start := time.Now()
	buckets, err := d.client.ListBuckets(ctx)
	metrics.RecordDriverOperation(kind, "listMounts", time.Since(start), err == nil)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	mounts := make([]driver.Mount, 0, len(buckets))
	for _, b := range buckets {
		mounts = append(mounts, driver.Mount{Name: b.Name, Path: "/"})
	}
	return mounts, nil
}
