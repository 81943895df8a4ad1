// Package uploader publishes workload run directories to object storage.
package uploader

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"gmark/internal/config"
)

// Uploader copies a directory tree to remote storage and returns its location.
type Uploader interface {
	Enabled() bool
	UploadDir(ctx context.Context, dir string) (string, error)
}

// NoopUploader is used when no backend is configured.
type NoopUploader struct{}

// Enabled always reports false.
func (n NoopUploader) Enabled() bool {
	return false
}

// UploadDir does nothing.
func (n NoopUploader) UploadDir(ctx context.Context, dir string) (string, error) {
	return "", nil
}

// New returns the uploaders enabled in cfg. When both backends are enabled
// every directory goes to both and the locations are joined by a comma.
func New(ctx context.Context, cfg config.StorageConfig) (Uploader, error) {
	var out multi
	if cfg.S3.Enabled {
		u, err := NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, errors.Wrap(err, "s3 uploader")
		}
		out = append(out, u)
	}
	if cfg.GCS.Enabled {
		u, err := NewGCS(ctx, cfg.GCS)
		if err != nil {
			return nil, errors.Wrap(err, "gcs uploader")
		}
		out = append(out, u)
	}
	switch len(out) {
	case 0:
		return NoopUploader{}, nil
	case 1:
		return out[0], nil
	}
	return out, nil
}

type multi []Uploader

func (m multi) Enabled() bool {
	return len(m) > 0
}

func (m multi) UploadDir(ctx context.Context, dir string) (string, error) {
	locations := make([]string, 0, len(m))
	for _, u := range m {
		loc, err := u.UploadDir(ctx, dir)
		if err != nil {
			return strings.Join(locations, ","), err
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ","), nil
}

// uploadConcurrency bounds in-flight object writes per directory.
const uploadConcurrency = 4

// putFunc stores one object.
type putFunc func(ctx context.Context, obj object) error

// publish uploads every file below dir through put and returns the
// scheme://bucket/prefix location of the directory.
func publish(ctx context.Context, dir, scheme, bucket, prefix string, put putFunc) (string, error) {
	objects, err := collectObjects(dir, prefix)
	if err != nil {
		return "", err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, obj := range objects {
		g.Go(func() error {
			if err := put(gctx, obj); err != nil {
				return errors.Wrapf(err, "upload %s", obj.Key)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s://%s/%s", scheme, bucket, objectPrefix(prefix, dir)), nil
}

// object is one local file and the key it is stored under.
type object struct {
	Path        string
	Key         string
	ContentType string
}

// objectPrefix returns the key prefix for dir, ending in a slash.
func objectPrefix(prefix, dir string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return prefix + filepath.Base(dir) + "/"
}

// collectObjects lists every regular file below dir in walk order.
func collectObjects(dir, prefix string) ([]object, error) {
	base := objectPrefix(prefix, dir)
	var out []object
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, object{
			Path:        path,
			Key:         base + filepath.ToSlash(rel),
			ContentType: contentType(path),
		})
		return nil
	})
	return out, err
}

func contentType(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".sql", ".txt", ".md":
		return "text/plain; charset=utf-8"
	case ".zst":
		return "application/zstd"
	case "":
		return "application/octet-stream"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
