package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fairDataSociety/fairdrive-opfs/internal/retry"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := New(Config{
		BaseURL: ts.URL + "/api/v0",
		RetryConfig: retry.Config{
			MaxAttempts: 3,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "localhost:5001"}); err == nil {
		t.Fatal("expected error for relative base url")
	}
}

func TestGetResolvesAgainstBasePath(t *testing.T) {
	var gotPath, gotQuery string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("arg")
		w.Write([]byte(`{"ok":true}`))
	}))

	resp, err := c.Do(context.Background(), Get("files/stat", url.Values{"arg": {"/a b.txt"}}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/v0/files/stat" {
		t.Errorf("expected /api/v0/files/stat, got %s", gotPath)
	}
	if gotQuery != "/a b.txt" {
		t.Errorf("expected query arg to round trip, got %q", gotQuery)
	}

	var body struct{ OK bool }
	if err := resp.Decode(&body); err != nil || !body.OK {
		t.Errorf("unexpected decode result %+v, %v", body, err)
	}
}

func TestDoRetriesIdempotentServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))

	resp, err := c.Do(context.Background(), Get("ping", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.OK() || string(resp.Body) != "ok" {
		t.Errorf("unexpected response %d %q", resp.StatusCode, resp.Body)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestDoReturnsFinalServerErrorResponse(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	resp, err := c.Do(context.Background(), Get("ping", nil))
	if err != nil {
		t.Fatalf("expected a response, got error %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestRetryStatusStopsRetries(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"Message":"file does not exist"}`))
	}))

	req := Get("files/stat", nil)
	req.RetryStatus = func(status int, body []byte) bool {
		return !strings.Contains(string(body), "does not exist")
	}

	resp, err := c.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", calls.Load())
	}

	_, err = c.Stream(context.Background(), req)
	var serr *StatusError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected StatusError 500, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected Stream to make 1 attempt, got %d total", calls.Load())
	}
}

func TestDoDoesNotRetryMutations(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req, err := JSON(http.MethodDelete, "v1/file/delete", map[string]string{"filePath": "/a"})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", calls.Load())
	}

	var serr *StatusError
	if !errors.As(resp.Err(req), &serr) || serr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected StatusError 500, got %v", resp.Err(req))
	}
}

func TestMultipartRequest(t *testing.T) {
	var gotField, gotName, gotData string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotField = r.FormValue("podName")
		f, hdr, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName = hdr.Filename
		gotData = string(data)
	}))

	req, err := Multipart(http.MethodPost, "v1/file/upload",
		url.Values{"podName": {"photos"}},
		FormFile{Field: "files", FileName: "a.txt", Data: []byte("hello")})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(context.Background(), req)
	if err != nil || !resp.OK() {
		t.Fatalf("unexpected result %v, %v", resp, err)
	}
	if gotField != "photos" || gotName != "a.txt" || gotData != "hello" {
		t.Errorf("unexpected form: field=%q name=%q data=%q", gotField, gotName, gotData)
	}
}

func TestStreamReturnsStatusError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "file does not exist", http.StatusNotFound)
	}))

	_, err := c.Stream(context.Background(), Get("files/read", nil))
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if serr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", serr.StatusCode)
	}
}

func TestSessionCookiesPersist(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v0/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		if ck, err := r.Cookie("session"); err != nil || ck.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))

	if _, err := c.Do(context.Background(), Get("login", nil)); err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(context.Background(), Get("whoami", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK() {
		t.Errorf("expected session cookie to be sent, got %d", resp.StatusCode)
	}
}
