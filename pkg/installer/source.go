package installer

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/macwinusb/winusb/pkg/storage"
)

// Fetcher resolves a remote source image reference to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (localPath, sha256 string, err error)
}

// S3Fetcher downloads s3:// images into a work directory. The S3 client is
// created on first use.
type S3Fetcher struct {
	Dir       string
	Region    string
	Anonymous bool

	once   sync.Once
	client *storage.Client
	err    error
}

// NewS3Fetcher creates a fetcher writing into dir.
func NewS3Fetcher(dir, region string, anonymous bool) *S3Fetcher {
	return &S3Fetcher{Dir: dir, Region: region, Anonymous: anonymous}
}

func (f *S3Fetcher) Fetch(ctx context.Context, ref string) (string, string, error) {
	bucket, key, err := storage.ParseURL(ref)
	if err != nil {
		return "", "", err
	}

	f.once.Do(func() {
		f.client, f.err = storage.NewClient(ctx, f.Region, f.Anonymous)
	})
	if f.err != nil {
		return "", "", f.err
	}

	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", "", errors.Wrap(err, "failed to create download dir")
	}

	local := filepath.Join(f.Dir, path.Base(key))
	res, err := f.client.Download(ctx, bucket, key, local)
	if err != nil {
		return "", "", err
	}
	return res.LocalPath, res.SHA256, nil
}
