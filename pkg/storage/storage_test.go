package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGetURL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "avatars"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "avatars", "u1.png"), []byte("png"), 0o600))

	s, err := NewLocalStorage(LocalConfig{BasePath: dir, BaseURL: "https://files.example.com/"})
	require.NoError(t, err)

	url, err := s.GetURL(context.Background(), "avatars/u1.png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/avatars/u1.png", url)

	_, err = s.GetURL(context.Background(), "avatars/missing.png", time.Minute)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// Traversal is clamped to the base directory.
	_, err = s.GetURL(context.Background(), "../../etc/passwd", time.Minute)
	assert.Error(t, err)
}

func TestS3PublicURL(t *testing.T) {
	s, err := NewS3Storage(context.Background(), S3Config{
		Bucket:          "avatars",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		PublicURL:       "https://cdn.example.com/avatars/",
	})
	require.NoError(t, err)

	url, err := s.GetURL(context.Background(), "u1.png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/u1.png", url)
}

func TestS3PresignedURL(t *testing.T) {
	s, err := NewS3Storage(context.Background(), S3Config{
		Endpoint:        "http://localhost:9000",
		Bucket:          "avatars",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	url, err := s.GetURL(context.Background(), "u1.png", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/avatars/u1.png?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
}

func TestNewDriverSelection(t *testing.T) {
	r, err := New(context.Background(), Config{})
	require.NoError(t, err)
	url, err := r.GetURL(context.Background(), "anything", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, url)

	_, err = New(context.Background(), Config{Driver: "gcs"})
	assert.Error(t, err)
}
