package driver

import (
	"path"
	"strings"
)

// JoinPath resolves name against mount.Path. The result is absolute, uses
// forward slashes and carries exactly one separator between segments.
func JoinPath(mount Mount, name string) string {
	return path.Join("/", strings.ReplaceAll(mount.Path, "\\", "/"), strings.ReplaceAll(name, "\\", "/"))
}

// DirPath returns mount.Path in absolute form.
func DirPath(mount Mount) string {
	return JoinPath(mount, "")
}

// ObjectKey is JoinPath without the leading slash, for object stores whose
// keys are relative to a bucket.
func ObjectKey(mount Mount, name string) string {
	return strings.TrimPrefix(JoinPath(mount, name), "/")
}

// ListPrefix returns the key prefix under which mount's direct children live:
// "" for the root, otherwise the relative directory key with a trailing slash.
func ListPrefix(mount Mount) string {
	key := ObjectKey(mount, "")
	if key == "" {
		return ""
	}
	return key + "/"
}

// Child returns the mount addressing directory name beneath mount.
func Child(mount Mount, name string) Mount {
	return Mount{Name: mount.Name, Path: JoinPath(mount, name)}
}
