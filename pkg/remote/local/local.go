// Package local implements remote.Client on a directory that's reachable
// through the local filesystem, such as a network mount or the folder of a
// desktop sync client.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/pishow/pkg/errors"
	"github.com/sidkik/pishow/pkg/fswatch"
	"github.com/sidkik/pishow/pkg/metrics"
	"github.com/sidkik/pishow/pkg/remote"
)

const backendName = "local"

var fs = afero.NewOsFs()

// watch will be overridden in mock tests.
var watch = func(dir string) (<-chan struct{}, func() error, error) {
	watcher, err := fswatch.Watch(dir)
	if err != nil {
		return nil, nil, err
	}
	return watcher.Events, watcher.Close, nil
}

// Client reads remote directories from beneath Root.
type Client struct {
	root    string
	clock   clockwork.Clock
	timeout time.Duration

	// watchers holds the change events for each polled directory. Watches
	// are started on the first poll and kept open so that changes between
	// polls aren't missed.
	watchers map[string]<-chan struct{}
	closers  []func() error
}

// New creates a Client that resolves remote paths relative to `root`.
func New(root string, clock clockwork.Clock, pollTimeout time.Duration) *Client {
	return &Client{
		root:     root,
		clock:    clock,
		timeout:  pollTimeout,
		watchers: map[string]<-chan struct{}{},
	}
}

// ListFiles returns the regular files directly within `dir`. Hidden files are
// skipped since sync clients use them for their own bookkeeping.
func (c *Client) ListFiles(ctx context.Context, dir string) (names []string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRemoteOperation(backendName, "list", time.Since(start), err)
	}()

	infos, err := afero.ReadDir(fs, c.resolve(dir))
	if err != nil {
		return nil, classify("list", dir, err)
	}

	for _, info := range infos {
		if !info.Mode().IsRegular() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		names = append(names, info.Name())
	}
	return names, nil
}

// GetFile opens the file at `path`.
func (c *Client) GetFile(ctx context.Context, path string) (io.ReadCloser, error) {
	start := time.Now()
	f, err := fs.Open(c.resolve(path))
	metrics.RecordRemoteOperation(backendName, "get", time.Since(start), err)
	if err != nil {
		return nil, classify("get", path, err)
	}
	return f, nil
}

// GetMetadata returns the modification time of the file at `path`.
func (c *Client) GetMetadata(ctx context.Context, path string) (remote.Metadata, error) {
	start := time.Now()
	info, err := fs.Stat(c.resolve(path))
	metrics.RecordRemoteOperation(backendName, "stat", time.Since(start), err)
	if err != nil {
		return remote.Metadata{}, classify("stat", path, err)
	}
	return remote.Metadata{Modified: info.ModTime()}, nil
}

// Poll waits for a filesystem event within `dir`.
func (c *Client) Poll(ctx context.Context, dir string) (bool, error) {
	events, ok := c.watchers[dir]
	if !ok {
		var closer func() error
		var err error
		events, closer, err = watch(c.resolve(dir))
		if err != nil {
			return false, classify("watch", dir, err)
		}
		c.watchers[dir] = events
		c.closers = append(c.closers, closer)
	}

	timeout := c.clock.NewTimer(c.timeout)
	defer timeout.Stop()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timeout.Chan():
		return false, nil
	case _, ok := <-events:
		if !ok {
			delete(c.watchers, dir)
			return false, errors.RemoteAPIError{Op: "watch", Path: dir,
				Err: errors.New("watcher closed")}
		}
		return true, nil
	}
}

// Close stops all file watchers.
func (c *Client) Close() error {
	for _, closer := range c.closers {
		if err := closer(); err != nil {
			log.WithError(err).Warn("Failed to close file watcher")
		}
	}
	c.closers = nil
	c.watchers = map[string]<-chan struct{}{}
	return nil
}

func (c *Client) resolve(path string) string {
	return filepath.Join(c.root, filepath.FromSlash(path))
}

func classify(op, path string, err error) error {
	if _, ok := err.(errors.FileNotFound); ok || os.IsNotExist(err) {
		return errors.RemoteAPIError{Op: op, Path: path, Err: errors.ErrNotFound}
	}
	return errors.RemoteAPIError{Op: op, Path: path, Err: err}
}
