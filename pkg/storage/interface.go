package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// URLResolver turns a stored object key (for example a user's avatar) into a
// URL a browser can load. Uploads are handled by the file service; this
// service only reads.
type URLResolver interface {
	// GetURL returns a URL for accessing the content.
	// For local storage, this returns a path under the public base URL.
	// For S3, this returns a presigned URL valid for the specified duration,
	// or a direct URL when a public URL prefix is configured.
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Config selects and configures the object store.
type Config struct {
	Driver string      `mapstructure:"driver"` // "none", "local", "s3"
	Local  LocalConfig `mapstructure:"local"`
	S3     S3Config    `mapstructure:"s3"`
}

// noopResolver is used when no object store is configured; every key resolves
// to an empty URL so projections simply omit avatars.
type noopResolver struct{}

func (noopResolver) GetURL(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

// New creates the URLResolver selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (URLResolver, error) {
	switch cfg.Driver {
	case "", "none":
		return noopResolver{}, nil
	case "local":
		return NewLocalStorage(cfg.Local)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
