// Package httpx provides the retrying HTTP client shared by the REST and RPC
// backed drivers.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/internal/retry"
)

// Client is an HTTP client bound to one base URL. It keeps session cookies
// between calls and retries idempotent requests with exponential backoff.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	retryConfig retry.Config
	userAgent   string
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	UserAgent   string

	// HTTPClient overrides the underlying client. Its Jar is left untouched.
	HTTPClient *http.Client
}

// New creates a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "fairdrive-opfs"
	}

	hc := cfg.HTTPClient
	if hc == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc = &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:     base,
		httpClient:  hc,
		retryConfig: cfg.RetryConfig,
		userAgent:   cfg.UserAgent,
	}, nil
}

// BaseURL returns the URL every request path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Request describes one call. Body is held in memory so the request can be
// replayed on retry.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string

	// Idempotent requests are retried on transport errors and 5xx responses.
	Idempotent bool

	// RetryStatus narrows which 5xx responses of an idempotent request are
	// retried. Nil retries every 5xx.
	RetryStatus func(statusCode int, body []byte) bool
}

func (r *Request) retryStatus(statusCode int, body []byte) bool {
	if !r.Idempotent || statusCode < 500 {
		return false
	}
	return r.RetryStatus == nil || r.RetryStatus(statusCode, body)
}

// Get returns an idempotent GET request for path.
func Get(path string, query url.Values) *Request {
	return &Request{Method: http.MethodGet, Path: path, Query: query, Idempotent: true}
}

// JSON returns a request carrying v encoded as JSON.
func JSON(method, path string, v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return &Request{
		Method:      method,
		Path:        path,
		Body:        body,
		ContentType: "application/json",
	}, nil
}

// FormFile is one file part of a multipart request.
type FormFile struct {
	Field    string
	FileName string
	Data     []byte
}

// Multipart returns a multipart/form-data request. Fields are written in
// sorted key order ahead of the file parts.
func Multipart(method, path string, fields url.Values, files ...FormFile) (*Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range fields[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.FileName)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return &Request{
		Method:      method,
		Path:        path,
		Body:        buf.Bytes(),
		ContentType: w.FormDataContentType(),
	}, nil
}

// Response is a fully buffered response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Err returns a *StatusError for a non-2xx response, nil otherwise.
func (r *Response) Err(req *Request) error {
	if r.OK() {
		return nil
	}
	return &StatusError{Method: req.Method, Path: req.Path, StatusCode: r.StatusCode, Body: snippet(r.Body)}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: server returned %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: server returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Do sends req and buffers the whole response. A non-2xx status is not an
// error; callers decide what it means. A 5xx that outlasts the retries is
// returned as the final response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var last *Response
	resp, err := retry.DoWithResult(ctx, c.retryFor(req), func() (*Response, error) {
		resp, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, retry.Retryable(fmt.Errorf("read response body: %w", err))
		}
		out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
		if req.retryStatus(resp.StatusCode, body) {
			last = out
			return nil, retry.Retryable(out.Err(req))
		}
		return out, nil
	})
	var serr *StatusError
	if errors.As(err, &serr) && last != nil {
		return last, nil
	}
	return resp, err
}

// Stream sends req and returns the live response for the caller to read and
// close. Non-2xx responses are drained and returned as *StatusError.
func (c *Client) Stream(ctx context.Context, req *Request) (*http.Response, error) {
	return retry.DoWithResult(ctx, c.retryFor(req), func() (*http.Response, error) {
		resp, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			serr := &StatusError{Method: req.Method, Path: req.Path, StatusCode: resp.StatusCode, Body: snippet(body)}
			if req.retryStatus(resp.StatusCode, body) {
				return nil, retry.Retryable(serr)
			}
			return nil, serr
		}
		return resp, nil
	})
}

func (c *Client) retryFor(req *Request) retry.Config {
	if req.Idempotent {
		return c.retryConfig
	}
	return retry.Once()
}

func (c *Client) send(ctx context.Context, req *Request) (*http.Response, error) {
	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(req.Path, "/")})
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		hreq.Header.Set("Content-Type", req.ContentType)
	}
	hreq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logging.Debug("http request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err))
		return nil, retry.Retryable(err)
	}
	return resp, nil
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
