package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage resolves keys to files under a base directory that a static
// file server exposes at BaseURL.
type LocalStorage struct {
	basePath string
	baseURL  string
}

// LocalConfig holds configuration for local storage.
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"`
	BaseURL  string `mapstructure:"base_url"`
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "/files"
	}

	return &LocalStorage{
		basePath: absPath,
		baseURL:  baseURL,
	}, nil
}

// fullPath returns the filesystem path for a key, or "" when the key would
// escape basePath.
func (s *LocalStorage) fullPath(key string) string {
	cleanKey := filepath.Clean("/" + key)
	full := filepath.Join(s.basePath, cleanKey)
	if !strings.HasPrefix(full, s.basePath) {
		return ""
	}
	return full
}

// GetURL returns the public URL of an existing file.
func (s *LocalStorage) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	path := s.fullPath(key)
	if path == "" {
		return "", fmt.Errorf("invalid key: %s", key)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	rel, err := filepath.Rel(s.basePath, path)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/" + filepath.ToSlash(rel), nil
}
