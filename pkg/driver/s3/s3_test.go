package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver/drivertest"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

// fakeS3 is an in-memory API. Listings are paged two keys at a time.
type fakeS3 struct {
	mu       sync.Mutex
	buckets  map[string]map[string][]byte
	pageSize int
	puts     []*s3v2.PutObjectInput
}

func newFakeS3(buckets ...string) *fakeS3 {
	f := &fakeS3{buckets: map[string]map[string][]byte{}, pageSize: 2}
	for _, b := range buckets {
		f.buckets[b] = map[string][]byte{}
	}
	return f
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3v2.HeadObjectInput, _ ...func(*s3v2.Options)) (*s3v2.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.buckets[aws.ToString(in.Bucket)][aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3v2.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3v2.GetObjectInput, _ ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	data, ok := bucket[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3v2.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3v2.PutObjectInput, _ ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	bucket, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	key := aws.ToString(in.Key)
	if _, exists := bucket[key]; exists && aws.ToString(in.IfNoneMatch) == "*" {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	bucket[key] = data
	return &s3v2.PutObjectOutput{ETag: aws.String(fmt.Sprintf(`"%x"`, len(data)))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3v2.DeleteObjectInput, _ ...func(*s3v2.Options)) (*s3v2.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.buckets[aws.ToString(in.Bucket)], aws.ToString(in.Key))
	return &s3v2.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3v2.ListObjectsV2Input, _ ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	prefix, delim := aws.ToString(in.Prefix), aws.ToString(in.Delimiter)

	// Collect keys and common prefixes in lexical order, then page.
	seen := map[string]bool{}
	var items []string
	for key := range bucket {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, delim); delim != "" && i >= 0 {
			cp := prefix + rest[:i+1]
			if !seen[cp] {
				seen[cp] = true
				items = append(items, cp)
			}
			continue
		}
		items = append(items, key)
	}
	sort.Strings(items)

	startAt := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		fmt.Sscanf(tok, "%d", &startAt)
	}
	end := min(startAt+f.pageSize, len(items))

	out := &s3v2.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(items))}
	for _, item := range items[startAt:end] {
		if seen[item] {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(item)})
		} else {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(item)})
		}
	}
	if end < len(items) {
		out.NextContinuationToken = aws.String(fmt.Sprint(end))
	}
	return out, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3v2.CreateBucketInput, _ ...func(*s3v2.Options)) (*s3v2.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.Bucket)
	if _, ok := f.buckets[name]; ok {
		return nil, &types.BucketAlreadyOwnedByYou{}
	}
	f.buckets[name] = map[string][]byte{}
	return &s3v2.CreateBucketOutput{}, nil
}

func (f *fakeS3) ListBuckets(ctx context.Context, in *s3v2.ListBucketsInput, _ ...func(*s3v2.Options)) (*s3v2.ListBucketsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.buckets))
	for n := range f.buckets {
		names = append(names, n)
	}
	sort.Strings(names)
	out := &s3v2.ListBucketsOutput{}
	for _, n := range names {
		out.Buckets = append(out.Buckets, types.Bucket{Name: aws.String(n)})
	}
	return out, nil
}

// offlineS3 fails every call in transport.
type offlineS3 struct{ *fakeS3 }

var errOffline = errors.New("dial tcp 127.0.0.1:9000: connect: connection refused")

func (offlineS3) HeadObject(context.Context, *s3v2.HeadObjectInput, ...func(*s3v2.Options)) (*s3v2.HeadObjectOutput, error) {
	return nil, errOffline
}

func (offlineS3) ListObjectsV2(context.Context, *s3v2.ListObjectsV2Input, ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error) {
	return nil, errOffline
}

func newTestDriver(t *testing.T, api API) *Driver {
	t.Helper()
	d, err := NewDriver(context.Background(), Config{Client: api})
	require.NoError(t, err)
	return d
}

func TestConformance(t *testing.T) {
	drivertest.Run(t, func(t *testing.T) (driver.Driver, driver.Mount) {
		return newTestDriver(t, newFakeS3("bucket")), driver.Mount{Name: "bucket", Path: "/"}
	}, drivertest.Options{DirName: "conformance-bucket"})
}

func TestConformanceNestedPrefix(t *testing.T) {
	drivertest.Run(t, func(t *testing.T) (driver.Driver, driver.Mount) {
		return newTestDriver(t, newFakeS3("bucket")), driver.Mount{Name: "bucket", Path: "/a/b"}
	}, drivertest.Options{DirName: "conformance-bucket"})
}

func TestReadPaginatesAndSplitsPrefixes(t *testing.T) {
	fake := newFakeS3("photos")
	for _, key := range []string{"2023/a.jpg", "2024/b.jpg", "2024/c.jpg", "index.html", "readme.md", "z.txt"} {
		fake.buckets["photos"][key] = []byte("x")
	}
	d := newTestDriver(t, fake)

	entries, err := d.Read(context.Background(), driver.Mount{Name: "photos", Path: "/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2023", "2024"}, entries.Dirs)
	assert.Equal(t, []string{"index.html", "readme.md", "z.txt"}, entries.Files)

	entries, err = d.Read(context.Background(), driver.Mount{Name: "photos", Path: "/2024"})
	require.NoError(t, err)
	assert.Empty(t, entries.Dirs)
	assert.Equal(t, []string{"b.jpg", "c.jpg"}, entries.Files)
}

func TestReadMissingBucketIsEmpty(t *testing.T) {
	d := newTestDriver(t, newFakeS3())
	entries, err := d.Read(context.Background(), driver.Mount{Name: "nope", Path: "/"})
	require.NoError(t, err)
	assert.NotNil(t, entries.Files)
	assert.NotNil(t, entries.Dirs)
}

func TestTransportErrorsAreReturned(t *testing.T) {
	d := newTestDriver(t, offlineS3{newFakeS3("bucket")})
	m := driver.Mount{Name: "bucket", Path: "/"}

	_, err := d.Exists(context.Background(), "a.txt", m)
	assert.ErrorIs(t, err, errOffline)

	_, err = d.Read(context.Background(), m)
	assert.ErrorIs(t, err, errOffline)

	_, err = d.Delete(context.Background(), "a.txt", m)
	assert.True(t, driver.IsBackendError(err))
}

func TestUploadSetsConditionalWrite(t *testing.T) {
	fake := newFakeS3("bucket")
	d := newTestDriver(t, fake)
	m := driver.Mount{Name: "bucket", Path: "/docs"}

	res, err := d.Upload(context.Background(), driver.NewFile("a.txt", []byte("abc")), m, driver.UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "bucket/docs/a.txt", res.Path)
	assert.Equal(t, "3", res.ETag)
	assert.Equal(t, "*", aws.ToString(fake.puts[0].IfNoneMatch))

	_, err = d.Upload(context.Background(), driver.NewFile("a.txt", []byte("abc")), m, driver.UploadOptions{Overwrite: true})
	require.NoError(t, err)
	assert.Nil(t, fake.puts[1].IfNoneMatch)
}

func TestCreateDirCreatesBucket(t *testing.T) {
	fake := newFakeS3()
	d := newTestDriver(t, fake)

	ok, err := d.CreateDir(context.Background(), "new-bucket", driver.Mount{Name: "ignored", Path: "/"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, fake.buckets, "new-bucket")
}

func TestProviderListMounts(t *testing.T) {
	p, err := New(context.Background(), "aws", Config{Client: newFakeS3("b1", "b2")})
	require.NoError(t, err)

	mounts, err := p.ListMounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []driver.Mount{{Name: "b1", Path: "/"}, {Name: "b2", Path: "/"}}, mounts)
}

func TestConfigFromOptions(t *testing.T) {
	cfg := ConfigFromOptions(provider.Options{Endpoint: "localhost", Port: 9000, AccessKeyID: "k", SecretAccessKey: "s"})
	assert.Equal(t, "http://localhost:9000", cfg.Endpoint)

	cfg = ConfigFromOptions(provider.Options{Endpoint: "s3.example.com", UseSSL: true})
	assert.Equal(t, "https://s3.example.com", cfg.Endpoint)

	cfg = ConfigFromOptions(provider.Options{Endpoint: "https://minio.local:9443"})
	assert.Equal(t, "https://minio.local:9443", cfg.Endpoint)

	require.NoError(t, cfg.validate())
	assert.True(t, cfg.UsePathStyle)
	assert.Equal(t, DefaultRegion, cfg.Region)

	bad := Config{AccessKeyID: "only-key"}
	assert.ErrorIs(t, bad.validate(), driver.ErrInvalidConfig)
}
