// Package gcs implements remote.Client on Google Cloud Storage.
package gcs

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/sidkik/pishow/pkg/config"
	"github.com/sidkik/pishow/pkg/errors"
	"github.com/sidkik/pishow/pkg/metrics"
	"github.com/sidkik/pishow/pkg/remote"
)

const backendName = "gcs"

type objectIterator interface {
	Next() (*storage.ObjectAttrs, error)
}

// bucket is the subset of a storage.BucketHandle used by Client.
type bucket interface {
	objects(ctx context.Context, q *storage.Query) objectIterator
	attrs(ctx context.Context, name string) (*storage.ObjectAttrs, error)
	newReader(ctx context.Context, name string) (io.ReadCloser, error)
}

type bucketHandle struct {
	*storage.BucketHandle
}

func (b bucketHandle) objects(ctx context.Context, q *storage.Query) objectIterator {
	return b.Objects(ctx, q)
}

func (b bucketHandle) attrs(ctx context.Context, name string) (*storage.ObjectAttrs, error) {
	return b.Object(name).Attrs(ctx)
}

func (b bucketHandle) newReader(ctx context.Context, name string) (io.ReadCloser, error) {
	return b.Object(name).NewReader(ctx)
}

// Client reads a remote directory stored as an object name prefix within a
// bucket.
type Client struct {
	bucket bucket
	poller *remote.ListingPoller
}

// New creates a Client from the remote config. If no credentials file is
// configured, the application default credentials are used.
func New(ctx context.Context, cfg config.Remote) (*Client, error) {
	var options []option.ClientOption
	if cfg.CredentialsFile != "" {
		options = append(options, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		options = append(options, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return nil, errors.WithContext(err, "create gcs client")
	}

	log.WithField("bucket", cfg.Bucket).Debug("Created GCS client")
	return newClient(bucketHandle{client.Bucket(cfg.Bucket)}, remote.NewListingPoller(
		clockwork.NewRealClock(), cfg.PollInterval.Duration, cfg.PollTimeout.Duration)), nil
}

func newClient(bucket bucket, poller *remote.ListingPoller) *Client {
	return &Client{bucket: bucket, poller: poller}
}

// ListFiles returns the objects directly under `dir`.
func (c *Client) ListFiles(ctx context.Context, dir string) ([]string, error) {
	listing, err := c.list(ctx, dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for name := range listing {
		names = append(names, name)
	}
	return names, nil
}

// GetFile opens the object at `path`.
func (c *Client) GetFile(ctx context.Context, path string) (io.ReadCloser, error) {
	start := time.Now()
	r, err := c.bucket.newReader(ctx, remote.ObjectKey(path))
	metrics.RecordRemoteOperation(backendName, "get", time.Since(start), err)
	if err != nil {
		return nil, classify(ctx, "get", path, err)
	}
	return r, nil
}

// GetMetadata returns the last update time of the object at `path`.
func (c *Client) GetMetadata(ctx context.Context, path string) (remote.Metadata, error) {
	start := time.Now()
	attrs, err := c.bucket.attrs(ctx, remote.ObjectKey(path))
	metrics.RecordRemoteOperation(backendName, "attrs", time.Since(start), err)
	if err != nil {
		return remote.Metadata{}, classify(ctx, "attrs", path, err)
	}
	return remote.Metadata{Modified: attrs.Updated}, nil
}

// Poll lists `dir` until an object is added, removed, or updated.
func (c *Client) Poll(ctx context.Context, dir string) (bool, error) {
	return c.poller.Poll(ctx, dir, func(ctx context.Context) (remote.Listing, error) {
		return c.list(ctx, dir)
	})
}

func (c *Client) list(ctx context.Context, dir string) (remote.Listing, error) {
	start := time.Now()
	prefix := remote.ObjectPrefix(dir)
	iter := c.bucket.objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})

	listing := remote.Listing{}
	for {
		obj, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			metrics.RecordRemoteOperation(backendName, "list", time.Since(start), err)
			return nil, classify(ctx, "list", dir, err)
		}

		// Synthetic entries for nested prefixes only have Prefix set.
		if obj.Prefix != "" {
			continue
		}

		name := strings.TrimPrefix(obj.Name, prefix)
		if name == "" {
			continue
		}
		listing[name] = obj.Updated
	}
	metrics.RecordRemoteOperation(backendName, "list", time.Since(start), nil)
	return listing, nil
}

// classify converts a GCS error into the error types expected of a
// remote.Client.
func classify(ctx context.Context, op, path string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return errors.RemoteAPIError{Op: op, Path: path, Err: errors.ErrNotFound}
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return errors.NetworkError{Err: err}
	}

	if apiErr.Code == http.StatusNotFound {
		return errors.RemoteAPIError{Op: op, Path: path, Err: errors.ErrNotFound}
	}
	return errors.RemoteAPIError{Op: op, Path: path, Err: apiErr}
}
