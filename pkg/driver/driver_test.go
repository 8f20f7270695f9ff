package driver

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		mount Mount
		name  string
		want  string
	}{
		{Mount{Name: "pod", Path: "/"}, "a.txt", "/a.txt"},
		{Mount{Name: "pod", Path: ""}, "a.txt", "/a.txt"},
		{Mount{Name: "pod", Path: "/docs"}, "a.txt", "/docs/a.txt"},
		{Mount{Name: "pod", Path: "/docs/"}, "a.txt", "/docs/a.txt"},
		{Mount{Name: "pod", Path: "docs"}, "/a.txt", "/docs/a.txt"},
		{Mount{Name: "pod", Path: `\docs`}, "a.txt", "/docs/a.txt"},
		{Mount{Name: "pod", Path: "/docs"}, "", "/docs"},
	}
	for _, tt := range tests {
		if got := JoinPath(tt.mount, tt.name); got != tt.want {
			t.Errorf("JoinPath(%q, %q) = %q, want %q", tt.mount.Path, tt.name, got, tt.want)
		}
	}
}

func TestObjectKeyAndListPrefix(t *testing.T) {
	root := Mount{Name: "bucket", Path: "/"}
	if got := ObjectKey(root, "a.txt"); got != "a.txt" {
		t.Errorf("ObjectKey root = %q", got)
	}
	if got := ListPrefix(root); got != "" {
		t.Errorf("ListPrefix root = %q, want empty", got)
	}

	nested := Mount{Name: "bucket", Path: "/photos/2024"}
	if got := ObjectKey(nested, "a.jpg"); got != "photos/2024/a.jpg" {
		t.Errorf("ObjectKey nested = %q", got)
	}
	if got := ListPrefix(nested); got != "photos/2024/" {
		t.Errorf("ListPrefix nested = %q", got)
	}
}

func TestChild(t *testing.T) {
	m := Child(Mount{Name: "pod", Path: "/"}, "sub")
	if m.Name != "pod" || m.Path != "/sub" {
		t.Errorf("unexpected child mount %+v", m)
	}
}

func TestEmptyEntriesNeverNil(t *testing.T) {
	e := EmptyEntries(Mount{Name: "x", Path: "/"})
	if e.Files == nil || e.Dirs == nil {
		t.Fatal("expected non-nil slices")
	}
	if e.Len() != 0 {
		t.Errorf("expected no entries, got %d", e.Len())
	}
}

func TestReadAllMaxSize(t *testing.T) {
	data, err := ReadAll(strings.NewReader("hello"), DownloadOptions{MaxSize: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}

	_, err = ReadAll(strings.NewReader("hello!"), DownloadOptions{MaxSize: 5})
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}

	data, err = ReadAll(strings.NewReader("unbounded"), DownloadOptions{})
	if err != nil || string(data) != "unbounded" {
		t.Errorf("unexpected result %q, %v", data, err)
	}
}

func TestErrGoneMatchesNotExist(t *testing.T) {
	if !errors.Is(ErrGone, fs.ErrNotExist) {
		t.Error("expected ErrGone to match fs.ErrNotExist")
	}
	if !errors.Is(ErrExist, fs.ErrExist) {
		t.Error("expected ErrExist to match fs.ErrExist")
	}
}

func TestBackendError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewBackendError("s3", "delete", "a.txt", cause)
	if !IsBackendError(err) {
		t.Fatal("expected a BackendError")
	}
	if !errors.Is(err, cause) {
		t.Error("expected BackendError to unwrap to its cause")
	}
	if NewBackendError("s3", "delete", "a.txt", nil) != nil {
		t.Error("expected nil for a nil cause")
	}
}

type plainDriver struct{ Driver }

type reportingDriver struct{ Driver }

func (reportingDriver) Capabilities() Capabilities {
	return Capabilities{HonorsOverwrite: true, ExactExists: true}
}

func TestCapabilitiesOf(t *testing.T) {
	if got := CapabilitiesOf(plainDriver{}); got != (Capabilities{}) {
		t.Errorf("expected conservative defaults, got %+v", got)
	}
	if got := CapabilitiesOf(reportingDriver{}); !got.HonorsOverwrite || !got.ExactExists {
		t.Errorf("expected reported capabilities, got %+v", got)
	}
}
