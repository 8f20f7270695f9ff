package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"

	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/internal/metrics"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
)

const kind = "s3"

// API is the subset of *s3v2.Client the driver calls.
type API interface {
	HeadObject(context.Context, *s3v2.HeadObjectInput, ...func(*s3v2.Options)) (*s3v2.HeadObjectOutput, error)
	GetObject(context.Context, *s3v2.GetObjectInput, ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
	PutObject(context.Context, *s3v2.PutObjectInput, ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
	DeleteObject(context.Context, *s3v2.DeleteObjectInput, ...func(*s3v2.Options)) (*s3v2.DeleteObjectOutput, error)
	ListObjectsV2(context.Context, *s3v2.ListObjectsV2Input, ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error)
	CreateBucket(context.Context, *s3v2.CreateBucketInput, ...func(*s3v2.Options)) (*s3v2.CreateBucketOutput, error)
	ListBuckets(context.Context, *s3v2.ListBucketsInput, ...func(*s3v2.Options)) (*s3v2.ListBucketsOutput, error)
}

var _ API = (*s3v2.Client)(nil)

// Driver stores files as objects. mount.Name is the bucket and mount.Path a
// key prefix; "/" in keys models directories.
type Driver struct {
	client API
	region string
}

var _ driver.Driver = (*Driver)(nil)

// NewDriver validates cfg and returns a Driver.
func NewDriver(ctx context.Context, cfg Config) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Client != nil {
		return &Driver{client: cfg.Client, region: cfg.Region}, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3v2.NewFromConfig(awsCfg, func(o *s3v2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Driver{client: client, region: cfg.Region}, nil
}

// Capabilities reports conditional writes for Overwrite=false and that
// CreateDir, which creates a bucket, is refused on repeat.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{HonorsOverwrite: true, ExactExists: true}
}

// isResponseError reports whether err came back from the service rather
// than failing in transport.
func isResponseError(err error) bool {
	var apiErr smithy.APIError
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &apiErr) || errors.As(err, &respErr)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	if errors.As(err, &nf) || errors.As(err, &nsk) || errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}

func (d *Driver) Exists(ctx context.Context, path string, mount driver.Mount) (bool, error) {
	start := time.Now()
	key := driver.ObjectKey(mount, path)

	_, err := d.client.HeadObject(ctx, &s3v2.HeadObjectInput{
		Bucket: aws.String(mount.Name),
		Key:    aws.String(key),
	})
	metrics.RecordDriverOperation(kind, "exists", time.Since(start), err == nil || isResponseError(err))
	if err != nil {
		if isResponseError(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	return true, nil
}

// CreateDir creates a bucket called path.
func (d *Driver) CreateDir(ctx context.Context, path string, mount driver.Mount) (bool, error) {
	start := time.Now()
	input := &s3v2.CreateBucketInput{Bucket: aws.String(path)}
	if d.region != DefaultRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(d.region),
		}
	}

	_, err := d.client.CreateBucket(ctx, input)
	metrics.RecordDriverOperation(kind, "createDir", time.Since(start), err == nil)
	if err != nil {
		if isResponseError(err) {
			logging.Debug("S3 create bucket refused", zap.String("bucket", path), zap.Error(err))
			return false, nil
		}
		return false, fmt.Errorf("create bucket %s: %w", path, err)
	}
	logging.Debug("S3 create bucket", zap.String("bucket", path))
	return true, nil
}

// Delete removes one object. S3 deletes are silent for missing keys, so the
// key is checked first; the check and the delete are not atomic.
func (d *Driver) Delete(ctx context.Context, path string, mount driver.Mount) (bool, error) {
	start := time.Now()
	key := driver.ObjectKey(mount, path)

	_, err := d.client.HeadObject(ctx, &s3v2.HeadObjectInput{
		Bucket: aws.String(mount.Name),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			metrics.RecordDriverOperation(kind, "delete", time.Since(start), true)
			return false, nil
		}
		metrics.RecordDriverOperation(kind, "delete", time.Since(start), false)
		return false, driver.NewBackendError(kind, "delete", key, err)
	}

	_, err = d.client.DeleteObject(ctx, &s3v2.DeleteObjectInput{
		Bucket: aws.String(mount.Name),
		Key:    aws.String(key),
	})
	metrics.RecordDriverOperation(kind, "delete", time.Since(start), err == nil)
	if err != nil {
		return false, driver.NewBackendError(kind, "delete", key, err)
	}
	logging.Debug("S3 delete object", zap.String("bucket", mount.Name), zap.String("key", key))
	return true, nil
}

// Read lists one level below mount.Path using "/" as the delimiter.
func (d *Driver) Read(ctx context.Context, mount driver.Mount) (driver.Entries, error) {
	start := time.Now()
	entries := driver.EmptyEntries(mount)
	prefix := driver.ListPrefix(mount)

	input := &s3v2.ListObjectsV2Input{
		Bucket:    aws.String(mount.Name),
		Delimiter: aws.String("/"),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	pages := s3v2.NewListObjectsV2Paginator(d.client, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			if isResponseError(err) {
				metrics.RecordDriverOperation(kind, "read", time.Since(start), true)
				logging.Debug("S3 list refused", zap.String("bucket", mount.Name), zap.Error(err))
				return driver.EmptyEntries(mount), nil
			}
			metrics.RecordDriverOperation(kind, "read", time.Since(start), false)
			return entries, fmt.Errorf("list %s/%s: %w", mount.Name, prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				entries.Dirs = append(entries.Dirs, name)
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name != "" {
				entries.Files = append(entries.Files, name)
			}
		}
	}
	metrics.RecordDriverOperation(kind, "read", time.Since(start), true)
	return entries, nil
}

func (d *Driver) Download(ctx context.Context, path string, mount driver.Mount, opts driver.DownloadOptions) ([]byte, error) {
	start := time.Now()
	key := driver.ObjectKey(mount, path)

	out, err := d.client.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: aws.String(mount.Name),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.RecordDriverOperation(kind, "download", time.Since(start), false)
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := driver.ReadAll(out.Body, opts)
	metrics.RecordDriverOperation(kind, "download", time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	metrics.RecordDownload(kind, int64(len(data)))
	return data, nil
}

// Upload puts the file at mount.Path/file.Name. Overwrite=false sends
// If-None-Match: * so an existing key fails with driver.ErrExist.
func (d *Driver) Upload(ctx context.Context, file *driver.File, mount driver.Mount, opts driver.UploadOptions) (driver.UploadResult, error) {
	start := time.Now()
	key := driver.ObjectKey(mount, file.Name)

	input := &s3v2.PutObjectInput{
		Bucket:        aws.String(mount.Name),
		Key:           aws.String(key),
		Body:          bytes.NewReader(file.Data),
		ContentLength: aws.Int64(file.Size()),
	}
	if !opts.Overwrite {
		input.IfNoneMatch = aws.String("*")
	}

	out, err := d.client.PutObject(ctx, input)
	metrics.RecordDriverOperation(kind, "upload", time.Since(start), err == nil)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return driver.UploadResult{}, driver.ErrExist
		}
		return driver.UploadResult{}, fmt.Errorf("put object %s: %w", key, err)
	}
	metrics.RecordUpload(kind, file.Size())
	logging.Debug("S3 put object", zap.String("key", key), zap.Int64("size", file.Size()))

	return driver.UploadResult{
		Path:      mount.Name + "/" + key,
		Size:      file.Size(),
		ETag:      strings.Trim(aws.ToString(out.ETag), `"`),
		VersionID: aws.ToString(out.VersionId),
	}, nil
}

// listBuckets serves Provider.ListMounts.
func (d *Driver) listBuckets(ctx context.Context) ([]driver.Mount, error) {
	start := time.Now()
	out, err := d.client.ListBuckets(ctx, &s3v2.ListBucketsInput{})
	metrics.RecordDriverOperation(kind, "listMounts", time.Since(start), err == nil)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	mounts := make([]driver.Mount, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		mounts = append(mounts, driver.Mount{Name: aws.ToString(b.Name), Path: "/"})
	}
	return mounts, nil
}
