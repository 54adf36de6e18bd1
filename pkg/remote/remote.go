// Package remote defines how pishow talks to the cloud storage folder that it
// mirrors. Backends live in subpackages.
package remote

//go:generate mockery -name Client

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// Client is the interface to remote storage.
//
// Implementations classify their failures with the pishow errors package:
// errors.NetworkError when the remote couldn't be reached,
// errors.RemoteAPIError when the remote returned an error, and
// errors.ErrNotFound (wrapped in a RemoteAPIError) when a path doesn't exist.
type Client interface {
	// ListFiles returns the names of the files directly within `dir`. The
	// names are relative to `dir`.
	ListFiles(ctx context.Context, dir string) ([]string, error)

	// GetFile opens the file at `path` for reading. The caller must close
	// the returned reader.
	GetFile(ctx context.Context, path string) (io.ReadCloser, error)

	// GetMetadata returns the metadata of the file at `path`.
	GetMetadata(ctx context.Context, path string) (Metadata, error)

	// Poll blocks until a change is observed within `dir`, or until the
	// client's poll timeout elapses. It returns whether a change was seen.
	Poll(ctx context.Context, dir string) (bool, error)
}

// Metadata is the metadata of a remote file.
type Metadata struct {
	Modified time.Time
}

// Join joins a remote directory and a file name.
func Join(dir, name string) string {
	return path.Join(dir, name)
}

// ObjectPrefix converts a remote directory into the key prefix used by object
// stores, which don't have a leading slash.
func ObjectPrefix(dir string) string {
	prefix := strings.Trim(dir, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// ObjectKey converts a remote path into an object store key.
func ObjectKey(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}
