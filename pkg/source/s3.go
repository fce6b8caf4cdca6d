package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/statkit/dta/internal/logctx"
)

// Client fetches objects from S3 into seekable local storage. The
// format needs random access, so objects are buffered to a temp file
// rather than streamed.
type Client struct {
	s3Client *s3.Client
}

// NewClient creates a new S3 client using default AWS configuration.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Client{s3Client: s3.NewFromConfig(cfg)}, nil
}

// NewClientWithConfig creates a new S3 client with a custom AWS config.
func NewClientWithConfig(cfg aws.Config) *Client {
	return &Client{s3Client: s3.NewFromConfig(cfg)}
}

// TempObject is a downloaded S3 object. Close removes the backing
// temp file.
type TempObject struct {
	*os.File
}

// Close closes and removes the temp file.
func (t *TempObject) Close() error {
	name := t.File.Name()
	err := t.File.Close()
	if rmErr := os.Remove(name); err == nil {
		err = rmErr
	}
	return err
}

// Fetch downloads s3://bucket/key to a temp file and returns it
// positioned at the start.
func (c *Client) Fetch(ctx context.Context, bucket, key string) (*TempObject, error) {
	resp, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "dta-s3-*.dta")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("buffer s3://%s/%s: %w", bucket, key, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	log := logctx.FromContext(ctx)
	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("bytes", written).
		Msg("downloaded object")
	return &TempObject{File: tmp}, nil
}

// ParseS3URL splits an s3://bucket/key URL.
func ParseS3URL(url string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(url, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
