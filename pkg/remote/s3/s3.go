// Package s3 implements remote.Client for S3 and S3-compatible object stores
// such as MinIO.
package s3

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/pishow/pkg/config"
	"github.com/sidkik/pishow/pkg/errors"
	"github.com/sidkik/pishow/pkg/metrics"
	"github.com/sidkik/pishow/pkg/remote"
)

const backendName = "s3"

// api is the subset of the S3 client used by Client.
type api interface {
	s3.ListObjectsV2APIClient
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Client reads a remote directory stored as a key prefix within a bucket.
type Client struct {
	api    api
	bucket string
	poller *remote.ListingPoller
}

// New creates a Client from the remote config. Credentials are taken from the
// config if set, and from the default AWS credential chain otherwise.
func New(ctx context.Context, cfg config.Remote) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.WithContext(err, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.WithFields(log.Fields{
		"bucket":   cfg.Bucket,
		"endpoint": cfg.Endpoint,
	}).Debug("Created S3 client")
	return newClient(client, cfg.Bucket, remote.NewListingPoller(
		clockwork.NewRealClock(), cfg.PollInterval.Duration, cfg.PollTimeout.Duration)), nil
}

func newClient(api api, bucket string, poller *remote.ListingPoller) *Client {
	return &Client{api: api, bucket: bucket, poller: poller}
}

// ListFiles returns the objects directly under `dir`. Objects in nested
// prefixes are ignored.
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
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(remote.ObjectKey(path)),
	})
	metrics.RecordRemoteOperation(backendName, "get", time.Since(start), err)
	if err != nil {
		return nil, classify(ctx, "get", path, err)
	}
	return out.Body, nil
}

// GetMetadata returns the last modified time of the object at `path`.
func (c *Client) GetMetadata(ctx context.Context, path string) (remote.Metadata, error) {
	start := time.Now()
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(remote.ObjectKey(path)),
	})
	metrics.RecordRemoteOperation(backendName, "head", time.Since(start), err)
	if err != nil {
		return remote.Metadata{}, classify(ctx, "head", path, err)
	}
	return remote.Metadata{Modified: aws.ToTime(out.LastModified)}, nil
}

// Poll lists `dir` until an object is added, removed, or modified.
func (c *Client) Poll(ctx context.Context, dir string) (bool, error) {
	return c.poller.Poll(ctx, dir, func(ctx context.Context) (remote.Listing, error) {
		return c.list(ctx, dir)
	})
}

func (c *Client) list(ctx context.Context, dir string) (remote.Listing, error) {
	prefix := remote.ObjectPrefix(dir)
	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	start := time.Now()
	listing := remote.Listing{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			metrics.RecordRemoteOperation(backendName, "list", time.Since(start), err)
			return nil, classify(ctx, "list", dir, err)
		}

		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			// Skip the placeholder object some tools create for folders.
			if name == "" {
				continue
			}
			listing[name] = aws.ToTime(obj.LastModified)
		}
	}
	metrics.RecordRemoteOperation(backendName, "list", time.Since(start), nil)
	return listing, nil
}

// classify converts an S3 error into the error types expected of a
// remote.Client.
func classify(ctx context.Context, op, path string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return errors.NetworkError{Err: err}
	}

	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return errors.RemoteAPIError{Op: op, Path: path, Err: errors.ErrNotFound}
	}
	return errors.RemoteAPIError{Op: op, Path: path, Err: apiErr}
}
