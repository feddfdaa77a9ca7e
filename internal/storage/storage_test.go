package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalStorageStoreAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, "/media/", zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "uploads/plays/hamlet.png", strings.NewReader("png-bytes"), "image/png"))

	data, err := os.ReadFile(filepath.Join(root, "uploads", "plays", "hamlet.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "/media/uploads/plays/hamlet.png", s.URL("uploads/plays/hamlet.png"))

	entries, err := os.ReadDir(filepath.Join(root, "uploads", "plays"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	require.NoError(t, s.Delete(ctx, "uploads/plays/hamlet.png"))
	require.NoError(t, s.Delete(ctx, "uploads/plays/hamlet.png"))
	_, err = os.Stat(filepath.Join(root, "uploads", "plays", "hamlet.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/media", zap.NewNop())
	require.NoError(t, err)

	for _, key := range []string{"../etc/passwd", "uploads/../../x", "", "a\\b"} {
		err := s.Store(context.Background(), key, strings.NewReader("x"), "")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestS3URL(t *testing.T) {
	s := &S3Storage{bucket: "posters", prefix: "theatre", region: "eu-west-1"}
	assert.Equal(t, "https://posters.s3.eu-west-1.amazonaws.com/theatre/uploads/plays/a.png", s.URL("uploads/plays/a.png"))

	s.prefix = ""
	assert.Equal(t, "https://posters.s3.eu-west-1.amazonaws.com/uploads/plays/a.png", s.URL("/uploads/plays/a.png"))
}
