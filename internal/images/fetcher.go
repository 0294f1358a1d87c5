package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxBytes caps a single fetched asset.
const DefaultMaxBytes = 40 * 1024 * 1024

// Fetcher retrieves raw image bytes from http(s) URLs or local paths.
type Fetcher struct {
	HTTPClient *http.Client

	// BaseDir confines scheme-less paths, absolute ones included. file://
	// URLs name the local path as given.
	BaseDir string

	// MaxBytes limits a single asset. Zero means DefaultMaxBytes.
	MaxBytes int64

	// Mounts maps URL path prefixes such as "/static/uploads/" to local
	// directories, so server-relative URLs resolve without a round trip.
	Mounts map[string]string
}

// NewFetcher creates a new image fetcher
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		BaseDir: ".",
	}
}

// Open returns a stream of the asset at rawURL.
func (f *Fetcher) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.openHTTP(ctx, u.String())
	case "file":
		if u.Path == "" {
			return nil, fmt.Errorf("empty image path")
		}
		return f.openLocal(filepath.FromSlash(u.Path))
	case "":
		return f.openFile(u.Path)
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
}

// FetchBytes downloads the whole asset into memory.
func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	rc, err := f.Open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	limit := f.maxBytes()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image too large (max %d bytes)", limit)
	}

	return data, nil
}

func (f *Fetcher) openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	slog.Debug("Fetched image", "url", rawURL, "content_type", resp.Header.Get("Content-Type"))
	return resp.Body, nil
}

func (f *Fetcher) openFile(path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("empty image path")
	}
	if mounted, ok := f.mounted(path); ok {
		return f.openLocal(mounted)
	}

	// rooting at "/" before cleaning keeps ".." from climbing out of BaseDir
	rel := filepath.Clean("/" + filepath.FromSlash(path))
	return f.openLocal(filepath.Join(f.BaseDir, rel))
}

func (f *Fetcher) openLocal(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return file, nil
}

func (f *Fetcher) mounted(path string) (string, bool) {
	for prefix, dir := range f.Mounts {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rel := strings.TrimPrefix(path, prefix)
		if rel == "" || strings.Contains(rel, "..") {
			return "", false
		}
		return filepath.Join(dir, filepath.FromSlash(rel)), true
	}
	return "", false
}

func (f *Fetcher) maxBytes() int64 {
	if f.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return f.MaxBytes
}
