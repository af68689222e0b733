package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/vodforge/internal/apperrors"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollectFiles_FindsMasterPlaylistAtDepthOne(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "index.m3u8"), "#EXTM3U")
	writeTestFile(t, filepath.Join(dir, "480p", "index.m3u8"), "#EXTM3U")
	writeTestFile(t, filepath.Join(dir, "480p", "segment_000.ts"), "data")
	writeTestFile(t, filepath.Join(dir, "thumbnail.jpg"), "data")

	entries, masterKey, err := collectFiles(dir, "videos/abc/")
	require.NoError(t, err)
	assert.Equal(t, "videos/abc/index.m3u8", masterKey)
	assert.Len(t, entries, 4)

	keys := make(map[string]bool)
	for _, e := range entries {
		keys[e.objectKey] = true
	}
	assert.True(t, keys["videos/abc/index.m3u8"])
	assert.True(t, keys["videos/abc/480p/index.m3u8"])
	assert.True(t, keys["videos/abc/480p/segment_000.ts"])
	assert.True(t, keys["videos/abc/thumbnail.jpg"])
}

func TestCollectFiles_NoMasterPlaylistWhenMissing(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "480p", "index.m3u8"), "#EXTM3U")

	_, masterKey, err := collectFiles(dir, "videos/abc/")
	require.NoError(t, err)
	assert.Empty(t, masterKey)
}

func TestContentTypeForKey(t *testing.T) {
	assert.Equal(t, "application/vnd.apple.mpegurl", contentTypeForKey("videos/x/index.m3u8"))
	assert.Equal(t, "video/mp2t", contentTypeForKey("videos/x/480p/segment_000.ts"))
	assert.Equal(t, "image/jpeg", contentTypeForKey("videos/x/thumbnail.jpg"))
}

func TestUpload_FailsWithNoMasterPlaylist(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "480p", "segment_000.ts"), "data")

	u := New(nil, nil, 0)
	_, masterKey, err := collectFiles(dir, "videos/abc/")
	require.NoError(t, err)
	assert.Empty(t, masterKey)
	assert.Equal(t, DefaultUploadConcurrency, u.concurrency)

	// Upload itself short-circuits before touching the nil client since
	// collectFiles already found no master playlist.
	_, err = u.Upload(context.Background(), "U1", "v", dir, "videos/abc/")
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindNoMasterPlaylist, appErr.Kind)
}

func TestNew_DefaultsConcurrency(t *testing.T) {
	u := New(nil, nil, -1)
	assert.Equal(t, DefaultUploadConcurrency, u.concurrency)

	u2 := New(nil, nil, 5)
	assert.Equal(t, 5, u2.concurrency)
}
