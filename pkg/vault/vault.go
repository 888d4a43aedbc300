// Package vault keeps the raw prompt and completion bodies of every model call
// in S3-compatible object storage. Run records only carry vault references.
package vault

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const scheme = "vault://"

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Client wraps an S3-compatible object store bound to one bucket.
type Client struct {
	mc     *minio.Client
	bucket string
}

// Ref points at a stored object.
type Ref struct {
	URI      string // vault://bucket/run_id/name
	Checksum string // sha256:hex
	Size     int64
}

// New connects to the object store and creates the bucket if needed.
func New(ctx context.Context, cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("vault: connect: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("vault: check bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("vault: create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Client{mc: mc, bucket: cfg.Bucket}, nil
}

// Bucket returns the bucket this client writes to.
func (c *Client) Bucket() string {
	return c.bucket
}

// Store writes one JSON body under <runID>/<name>.
func (c *Client) Store(ctx context.Context, runID, name string, data []byte) (Ref, error) {
	key := Key(runID, name)
	info, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return Ref{}, fmt.Errorf("vault: store %s: %w", key, err)
	}

	return Ref{
		URI:      scheme + c.bucket + "/" + key,
		Checksum: Checksum(data),
		Size:     info.Size,
	}, nil
}

// Fetch reads the object a vault URI points to.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, ok := ParseURI(uri)
	if !ok {
		return nil, fmt.Errorf("vault: fetch: malformed ref %q", uri)
	}

	obj, err := c.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("vault: fetch %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", key, err)
	}
	return data, nil
}

// Key builds the object key for one body of a run.
func Key(runID, name string) string {
	return runID + "/" + name
}

// ParseURI splits vault://bucket/key into its bucket and key.
func ParseURI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, scheme)
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Checksum returns "sha256:<hex>" for data.
func Checksum(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}

// VerifyChecksum reports whether data still matches a stored checksum.
func VerifyChecksum(data []byte, expected string) bool {
	return Checksum(data) == expected
}
