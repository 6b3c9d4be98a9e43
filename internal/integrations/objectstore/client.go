package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the minimal S3 interface required by Client.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher is the read-side interface consumed by the batch orchestrator.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
}

// Client reads uploaded input files from a fixed S3 bucket.
type Client struct {
	api    s3API
	bucket string
}

// New creates a Client for the given bucket.
func New(api s3API, bucket string) (*Client, error) {
	if api == nil {
		return nil, errors.New("objectstore: api must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("objectstore: bucket must not be empty")
	}
	return &Client{api: api, bucket: bucket}, nil
}

// Fetch opens the object at key for reading. The caller owns the returned
// body and must close it.
func (c *Client) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("objectstore: key is required")
	}
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: get s3://%s/%s: %w", c.bucket, key, err)
	}
	return out.Body, nil
}
