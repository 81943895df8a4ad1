package uploader

import (
	"context"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"gmark/internal/config"
	"gmark/internal/util"
)

// GCSUploader uploads run directories to Google Cloud Storage.
type GCSUploader struct {
	cfg    config.GCSConfig
	client *storage.Client
}

// NewGCS constructs an uploader from GCS configuration.
func NewGCS(ctx context.Context, cfg config.GCSConfig) (*GCSUploader, error) {
	if !cfg.Enabled {
		return &GCSUploader{cfg: cfg}, nil
	}
	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSUploader{cfg: cfg, client: client}, nil
}

// Enabled reports whether GCS uploads are configured.
func (u *GCSUploader) Enabled() bool {
	return u.cfg.Enabled
}

// UploadDir uploads a run directory and returns its GCS URL prefix.
func (u *GCSUploader) UploadDir(ctx context.Context, dir string) (string, error) {
	if !u.cfg.Enabled {
		return "", nil
	}
	if u.client == nil {
		return "", errors.New("gcs uploader is not initialized")
	}
	bucket := u.client.Bucket(u.cfg.Bucket)
	return publish(ctx, dir, "gs", u.cfg.Bucket, u.cfg.Prefix, func(ctx context.Context, obj object) error {
		return writeObject(ctx, bucket.Object(obj.Key), obj)
	})
}

// Close releases the client.
func (u *GCSUploader) Close() error {
	if u.client == nil {
		return nil
	}
	return u.client.Close()
}

// writeObject streams one file into handle.
func writeObject(ctx context.Context, handle *storage.ObjectHandle, obj object) error {
	file, err := os.Open(obj.Path)
	if err != nil {
		return err
	}
	defer util.CloseWithErr(file, "gcs object "+obj.Key)

	w := handle.NewWriter(ctx)
	w.ContentType = obj.ContentType
	w.Metadata = map[string]string{"generator": "gmark"}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
