package ipfsmfs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fairDataSociety/fairdrive-opfs/internal/httpx"
	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/internal/metrics"
	"github.com/fairDataSociety/fairdrive-opfs/internal/retry"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
)

const kind = "ipfs-mfs"

// Kubo reports directories as type 1 in files/ls.
const typeDirectory = 1

// Driver talks to one IPFS node. MFS has a single root, so mount.Name is
// informational and only mount.Path addresses content.
type Driver struct {
	client *httpx.Client
}

var _ driver.Driver = (*Driver)(nil)

// NewDriver validates cfg and returns a Driver.
func NewDriver(cfg Config) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rc := retry.DefaultConfig()
	if cfg.RetryAttempts > 0 {
		rc.MaxAttempts = cfg.RetryAttempts
	}
	client, err := httpx.New(httpx.Config{
		BaseURL:     cfg.Host,
		Timeout:     cfg.Timeout,
		RetryConfig: rc,
		HTTPClient:  cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	return &Driver{client: client}, nil
}

// Capabilities reports that files/write always replaces and that
// files/mkdir with parents=true accepts existing directories.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{IdempotentCreateDir: true, ExactExists: true}
}

// rpc builds a POST call; every Kubo RPC endpoint takes POST.
func rpc(cmd string, arg string, idempotent bool, extra ...string) *httpx.Request {
	q := url.Values{"arg": {arg}}
	for i := 0; i+1 < len(extra); i += 2 {
		q.Set(extra[i], extra[i+1])
	}
	return &httpx.Request{Method: http.MethodPost, Path: cmd, Query: q, Idempotent: idempotent, RetryStatus: transient}
}

// rpcError is the body Kubo returns with a failed call.
type rpcError struct {
	Message string `json:"Message"`
	Code    int    `json:"Code"`
	Type    string `json:"Type"`
}

// transient reports whether a 5xx is worth retrying. Kubo answers ordinary
// command failures, a missing path included, with 500 and an rpcError body.
func transient(statusCode int, body []byte) bool {
	var e rpcError
	return json.Unmarshal(body, &e) != nil || e.Message == ""
}

func notFound(body []byte) bool {
	var e rpcError
	msg := string(body)
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		msg = e.Message
	}
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")
}

type statResponse struct {
	Hash string `json:"Hash"`
	Size int64  `json:"Size"`
	Type string `json:"Type"`
}

func (d *Driver) stat(ctx context.Context, p string) (*statResponse, bool, error) {
	resp, err := d.client.Do(ctx, rpc("files/stat", p, true))
	if err != nil {
		return nil, false, err
	}
	if !resp.OK() {
		return nil, false, nil
	}
	var st statResponse
	if err := resp.Decode(&st); err != nil {
		return nil, false, nil
	}
	return &st, st.Hash != "", nil
}

func (d *Driver) Exists(ctx context.Context, path string, mount driver.Mount) (ok bool, err error) {
	defer observe("exists", time.Now(), &err)

	_, ok, err = d.stat(ctx, driver.JoinPath(mount, path))
	return ok, err
}

func (d *Driver) CreateDir(ctx context.Context, path string, mount driver.Mount) (ok bool, err error) {
	defer observe("createDir", time.Now(), &err)

	resp, err := d.client.Do(ctx, rpc("files/mkdir", driver.JoinPath(mount, path), false, "parents", "true"))
	if err != nil {
		return false, err
	}
	return resp.OK(), nil
}

func (d *Driver) Delete(ctx context.Context, path string, mount driver.Mount) (ok bool, err error) {
	defer observe("delete", time.Now(), &err)

	target := driver.JoinPath(mount, path)
	req := rpc("files/rm", target, false)
	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return false, driver.NewBackendError(kind, "delete", target, err)
	}
	if resp.OK() {
		return true, nil
	}
	if notFound(resp.Body) {
		return false, nil
	}
	return false, driver.NewBackendError(kind, "delete", target, resp.Err(req))
}

type lsResponse struct {
	Entries []struct {
		Name string `json:"Name"`
		Type int    `json:"Type"`
		Size int64  `json:"Size"`
		Hash string `json:"Hash"`
	} `json:"Entries"`
}

func (d *Driver) Read(ctx context.Context, mount driver.Mount) (entries driver.Entries, err error) {
	defer observe("read", time.Now(), &err)

	entries = driver.EmptyEntries(mount)
	resp, err := d.client.Do(ctx, rpc("files/ls", driver.DirPath(mount), true, "long", "true"))
	if err != nil {
		return entries, err
	}
	if !resp.OK() {
		return entries, nil
	}
	var ls lsResponse
	if err := resp.Decode(&ls); err != nil {
		return entries, nil
	}
	for _, e := range ls.Entries {
		if e.Type == typeDirectory {
			entries.Dirs = append(entries.Dirs, e.Name)
		} else {
			entries.Files = append(entries.Files, e.Name)
		}
	}
	return entries, nil
}

func (d *Driver) Download(ctx context.Context, path string, mount driver.Mount, opts driver.DownloadOptions) (data []byte, err error) {
	defer observe("download", time.Now(), &err)

	resp, err := d.client.Stream(ctx, rpc("files/read", driver.JoinPath(mount, path), true))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err = driver.ReadAll(resp.Body, opts)
	if err != nil {
		return nil, err
	}
	metrics.RecordDownload(kind, int64(len(data)))
	return data, nil
}

// Upload always replaces the destination; opts.Overwrite is ignored.
func (d *Driver) Upload(ctx context.Context, file *driver.File, mount driver.Mount, opts driver.UploadOptions) (result driver.UploadResult, err error) {
	defer observe("upload", time.Now(), &err)

	dest := driver.JoinPath(mount, file.Name)
	req, err := httpx.Multipart(http.MethodPost, "files/write", nil,
		httpx.FormFile{Field: "file", FileName: file.Name, Data: file.Data})
	if err != nil {
		return result, err
	}
	req.Query = url.Values{
		"arg":      {dest},
		"create":   {"true"},
		"truncate": {"true"},
		"parents":  {"true"},
	}

	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return result, err
	}
	if err := resp.Err(req); err != nil {
		return result, err
	}
	metrics.RecordUpload(kind, file.Size())

	result = driver.UploadResult{Path: dest, Size: file.Size()}
	if st, ok, err := d.stat(ctx, dest); err == nil && ok {
		result.ETag = st.Hash
	} else if err != nil && !errors.Is(err, context.Canceled) {
		logging.Debug("stat after write failed", logging.String("path", dest), logging.Err(err))
	}
	return result, nil
}

func observe(op string, start time.Time, errp *error) {
	err := *errp
	metrics.RecordDriverOperation(kind, op, time.Since(start), err == nil)
	if err != nil {
		logging.Debug("ipfs operation failed", logging.String("op", op), logging.Err(err))
	}
}
