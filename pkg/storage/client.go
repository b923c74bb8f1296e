package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/macwinusb/winusb/pkg/errors"
)

const urlScheme = "s3://"

// IsS3URL reports whether a source image reference points at S3.
func IsS3URL(ref string) bool {
	return strings.HasPrefix(ref, urlScheme)
}

// ParseURL splits s3://bucket/key into its bucket and key.
func ParseURL(ref string) (bucket, key string, err error) {
	if !IsS3URL(ref) {
		return "", "", fmt.Errorf("not an s3 url: %q", ref)
	}
	rest := strings.TrimPrefix(ref, urlScheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("s3 url %q must name a bucket and an object key", ref)
	}
	return bucket, key, nil
}

// Client provides S3 storage operations
type Client struct {
	s3Client *s3.Client
}

// NewClient creates a new S3 client. Anonymous access skips the default
// credential chain, for public buckets.
func NewClient(ctx context.Context, region string, anonymous bool) (*Client, error) {
	slog.Debug("s3_client_init", "region", region, "anonymous", anonymous)

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if anonymous {
		opts = append(opts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{s3Client: s3.NewFromConfig(cfg)}, nil
}

// DownloadResult contains download metadata
type DownloadResult struct {
	LocalPath string
	SHA256    string
	Size      int64
}

// Download downloads an object from S3 and computes SHA256
func (c *Client) Download(ctx context.Context, bucket, key, localPath string) (*DownloadResult, error) {
	slog.Info("s3_download_start", "bucket", bucket, "key", key)

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_get_object_failed", "bucket", bucket, "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to get object from S3")
	}
	defer result.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		slog.Error("local_file_creation_failed", "path", localPath, "error", err)
		return nil, errors.Wrap(err, "failed to create local file")
	}

	res, err := copyWithChecksum(f, result.Body)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(localPath)
		slog.Error("s3_download_failed", "bucket", bucket, "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to download file")
	}
	res.LocalPath = localPath

	slog.Info("s3_download_complete",
		"key", key,
		"size_mb", res.Size/1024/1024,
		"local_path", localPath,
		"sha256", res.SHA256[:16]+"...",
	)
	return res, nil
}

func copyWithChecksum(dst io.Writer, src io.Reader) (*DownloadResult, error) {
	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, hash), src)
	if err != nil {
		return nil, err
	}
	return &DownloadResult{SHA256: hex.EncodeToString(hash.Sum(nil)), Size: size}, nil
}
