package fairos

import (
	"context"
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

const kind = "fairos"

// Driver talks to one FairOS server. A logged-in session is required for
// every call; see Provider.Login.
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

// Capabilities reports that uploads honor the overwrite flag and that a
// repeated mkdir is refused by the server.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{HonorsOverwrite: true, ExactExists: true}
}

type statResponse struct {
	PodName  string `json:"podName"`
	FilePath string `json:"filePath"`
}

func (d *Driver) Exists(ctx context.Context, path string, mount driver.Mount) (ok bool, err error) {
	defer observe("exists", time.Now(), &err)

	filePath := driver.JoinPath(mount, path)
	resp, err := d.client.Do(ctx, httpx.Get("v1/file/stat", url.Values{
		"podName":  {mount.Name},
		"filePath": {filePath},
	}))
	if err != nil {
		return false, err
	}
	if !resp.OK() {
		return false, nil
	}
	var stat statResponse
	if err := resp.Decode(&stat); err != nil {
		return false, nil
	}
	return stat.PodName == mount.Name && stat.FilePath == filePath, nil
}

func (d *Driver) CreateDir(ctx context.Context, path string, mount driver.Mount) (ok bool, err error) {
	defer observe("createDir", time.Now(), &err)

	req, err := httpx.JSON(http.MethodPost, "v1/dir/mkdir", map[string]string{
		"podName": mount.Name,
		"dirPath": driver.JoinPath(mount, path),
	})
	if err != nil {
		return false, err
	}
	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return false, err
	}
	return resp.OK(), nil
}

func (d *Driver) Delete(ctx context.Context, path string, mount driver.Mount) (ok bool, err error) {
	defer observe("delete", time.Now(), &err)

	filePath := driver.JoinPath(mount, path)
	req, err := httpx.JSON(http.MethodDelete, "v1/file/delete", map[string]string{
		"podName":  mount.Name,
		"filePath": filePath,
	})
	if err != nil {
		return false, err
	}
	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return false, driver.NewBackendError(kind, "delete", filePath, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := resp.Err(req); err != nil {
		return false, driver.NewBackendError(kind, "delete", filePath, err)
	}
	return true, nil
}

type lsResponse struct {
	Dirs  []lsEntry `json:"dirs"`
	Files []lsEntry `json:"files"`
}

type lsEntry struct {
	Name string `json:"name"`
}

func (d *Driver) Read(ctx context.Context, mount driver.Mount) (entries driver.Entries, err error) {
	defer observe("read", time.Now(), &err)

	entries = driver.EmptyEntries(mount)
	resp, err := d.client.Do(ctx, httpx.Get("v1/dir/ls", url.Values{
		"podName": {mount.Name},
		"dirPath": {driver.DirPath(mount)},
	}))
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
	for _, dir := range ls.Dirs {
		entries.Dirs = append(entries.Dirs, dir.Name)
	}
	for _, file := range ls.Files {
		entries.Files = append(entries.Files, file.Name)
	}
	return entries, nil
}

func (d *Driver) Download(ctx context.Context, path string, mount driver.Mount, opts driver.DownloadOptions) (data []byte, err error) {
	defer observe("download", time.Now(), &err)

	params := map[string]string{
		"podName":  mount.Name,
		"filePath": driver.JoinPath(mount, path),
	}
	req, err := httpx.JSON(http.MethodPost, "v1/file/download", params)
	if err != nil {
		return nil, err
	}
	req.Query = url.Values{"podName": {params["podName"]}, "filePath": {params["filePath"]}}
	req.Idempotent = true

	resp, err := d.client.Stream(ctx, req)
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

type uploadResponse struct {
	Responses []struct {
		FileName string `json:"fileName"`
		Message  string `json:"message"`
	} `json:"Responses"`
}

func (d *Driver) Upload(ctx context.Context, file *driver.File, mount driver.Mount, opts driver.UploadOptions) (result driver.UploadResult, err error) {
	defer observe("upload", time.Now(), &err)

	fields := url.Values{
		"podName":   {mount.Name},
		"fileName":  {file.Name},
		"dirPath":   {driver.DirPath(mount)},
		"blockSize": {"1Mb"},
	}
	if opts.Overwrite {
		fields.Set("overwrite", "true")
	}
	req, err := httpx.Multipart(http.MethodPost, "v1/file/upload", fields,
		httpx.FormFile{Field: "files", FileName: file.Name, Data: file.Data})
	if err != nil {
		return result, err
	}

	dest := driver.JoinPath(mount, file.Name)
	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return result, err
	}
	if !resp.OK() {
		if !opts.Overwrite && alreadyPresent(resp) {
			return result, driver.ErrExist
		}
		return result, resp.Err(req)
	}

	var ur uploadResponse
	if err := resp.Decode(&ur); err == nil {
		for _, r := range ur.Responses {
			if r.FileName == file.Name && alreadyPresentMessage(r.Message) {
				if !opts.Overwrite {
					return result, driver.ErrExist
				}
			}
		}
	}

	metrics.RecordUpload(kind, file.Size())
	return driver.UploadResult{Path: dest, Size: file.Size()}, nil
}

func alreadyPresent(resp *httpx.Response) bool {
	if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusConflict {
		return false
	}
	return alreadyPresentMessage(string(resp.Body))
}

func alreadyPresentMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "already present") || strings.Contains(msg, "already exists")
}

func observe(op string, start time.Time, errp *error) {
	err := *errp
	metrics.RecordDriverOperation(kind, op, time.Since(start), err == nil)
	if err != nil {
		logging.Debug("fairos operation failed", logging.String("op", op), logging.Err(err))
	}
}
