package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestIsRemote(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"https://example.com/a.glb", true},
		{"http://example.com/a.glb", true},
		{"/data/a.glb", false},
		{"a.glb", false},
		{"ftp://example.com/a.glb", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRemote(tt.ref), tt.ref)
	}
}

func TestAssetID(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"https://x/y/abc.glb", "abc"},
		{"https://x/y/abc.glb?download=1", "abc"},
		{"/data/objects/chair.v2.fbx", "chair"},
		{"relative/dir/lamp.GLB", "lamp"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, AssetID(tt.ref))
		})
	}
}

func TestFetchDownloadsAndRenames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("glTF-binary-bytes"))
	}))
	defer srv.Close()

	tmp := filepath.Join(t.TempDir(), "tmp-objects")
	f := NewFetcher(tmp, zaptest.NewLogger(t))

	path, err := f.Fetch(context.Background(), srv.URL+"/objects/abc.glb")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "abc.glb", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "glTF-binary-bytes", string(data))
	assert.NoFileExists(t, path+".tmp")
}

func TestFetchDefaultsExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	path, err := NewFetcher(t.TempDir(), nil).Fetch(context.Background(), srv.URL+"/objects/abc")
	require.NoError(t, err)
	assert.Equal(t, "abc.glb", filepath.Base(path))
}

func TestFetchHTTPErrorLeavesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	tmp := t.TempDir()
	_, err := NewFetcher(tmp, nil).Fetch(context.Background(), srv.URL+"/abc.glb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchTruncatedBodyRemovesTemp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("short"))
	}))
	defer srv.Close()

	tmp := t.TempDir()
	_, err := NewFetcher(tmp, nil).Fetch(context.Background(), srv.URL+"/abc.glb")
	require.Error(t, err)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAcquire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mesh"))
	}))
	defer srv.Close()
	f := NewFetcher(t.TempDir(), zaptest.NewLogger(t))

	t.Run("local", func(t *testing.T) {
		local := filepath.Join(t.TempDir(), "chair.glb")
		require.NoError(t, os.WriteFile(local, []byte("mesh"), 0644))

		path, release, err := f.Acquire(context.Background(), local)
		require.NoError(t, err)
		assert.Equal(t, local, path)
		release()
		assert.FileExists(t, local, "local files are never deleted")
	})

	t.Run("remote", func(t *testing.T) {
		path, release, err := f.Acquire(context.Background(), srv.URL+"/lamp.glb")
		require.NoError(t, err)
		assert.FileExists(t, path)
		release()
		assert.NoFileExists(t, path)
		release()
	})
}
