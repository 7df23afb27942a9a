package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Uploader stores one object and returns a URL clients can fetch it from.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Object is a single image awaiting upload. Extension may carry a leading dot.
type Object struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ObjectKey builds a collision-free key of the form
// prefix/owner/YYYY/MM/DD/<uuid>.ext.
func ObjectKey(prefix, owner, ext string, now time.Time) string {
	if owner == "" {
		owner = "anonymous"
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	name := uuid.NewString() + "." + ext
	return path.Join(prefix, owner, now.UTC().Format("2006/01/02"), name)
}

// UploadAll uploads every object concurrently and returns the URLs in input
// order. Any failure fails the whole batch.
func UploadAll(ctx context.Context, up Uploader, prefix, owner string, objects []Object) ([]string, error) {
	urls := make([]string, len(objects))
	if len(objects) == 0 {
		return urls, nil
	}
	now := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, obj := range objects {
		key := ObjectKey(prefix, owner, obj.Extension, now)
		g.Go(func() error {
			url, err := up.Upload(gctx, key, obj.Data, obj.ContentType)
			if err != nil {
				return fmt.Errorf("upload image %d: %w", i+1, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
