// Package assets resolves asset references to local files, downloading
// remote ones into a scratch directory.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const defaultExt = ".glb"

// IsRemote reports whether ref is fetched over HTTP(S)
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http")
}

// AssetID returns the basename of ref up to its first dot
func AssetID(ref string) string {
	base := ref
	if IsRemote(ref) {
		if u, err := url.Parse(ref); err == nil && u.Path != "" {
			base = u.Path
		}
		base = path.Base(base)
	} else {
		base = filepath.Base(base)
	}
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

// remoteExt returns the extension of the URL path, .glb when there is none
func remoteExt(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	}
	if ext := path.Ext(path.Base(p)); ext != "" {
		return ext
	}
	return defaultExt
}

// Fetcher downloads remote assets into TmpDir
type Fetcher struct {
	TmpDir string
	Client *http.Client
	Logger *zap.Logger
}

// NewFetcher creates a fetcher using http.DefaultClient
func NewFetcher(tmpDir string, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{TmpDir: tmpDir, Client: http.DefaultClient, Logger: logger}
}

// Fetch downloads rawURL to TmpDir/<id><ext> and returns the absolute path.
// The body is written to a .tmp file first and renamed once complete.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := os.MkdirAll(f.TmpDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	finalPath, err := filepath.Abs(filepath.Join(f.TmpDir, AssetID(rawURL)+remoteExt(rawURL)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve download path: %w", err)
	}
	tmpPath := finalPath + ".tmp"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to download %s: %s", rawURL, resp.Status)
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}

	f.logger().Debug("asset downloaded", zap.String("url", rawURL), zap.String("path", finalPath), zap.Int64("bytes", n))
	return finalPath, nil
}

// Acquire returns a local path for ref. Local references are used in place;
// remote ones are downloaded and release deletes the copy.
func (f *Fetcher) Acquire(ctx context.Context, ref string) (string, func(), error) {
	if !IsRemote(ref) {
		return ref, func() {}, nil
	}

	localPath, err := f.Fetch(ctx, ref)
	if err != nil {
		return "", func() {}, err
	}
	release := func() {
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			f.logger().Warn("failed to remove downloaded asset", zap.String("path", localPath), zap.Error(err))
		}
	}
	return localPath, release, nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
