package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/url"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/webp"
)

// ErrAssetLoadFailed marks an image that could not be fetched or decoded
// by either path. It is logged, never returned to a composite.
var ErrAssetLoadFailed = errors.New("asset load failed")

// ErrImageTooLarge rejects images whose declared dimensions exceed the
// pixel budget, before any pixel data is decoded.
var ErrImageTooLarge = errors.New("image too large")

const (
	// DefaultConcurrency bounds LoadAll fan-out.
	DefaultConcurrency = 13

	// DefaultMaxPixels caps width*height of a decoded image.
	DefaultMaxPixels = 64 * 1024 * 1024
)

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Origin is the same-origin base used by the fallback path, for
	// example the editor server's own address.
	Origin string

	// TempDir holds transient blobs. Empty means os.TempDir().
	TempDir string

	// CacheSize bounds the decoded bitmap cache used by Load. Zero
	// disables caching.
	CacheSize int

	// Concurrency bounds LoadAll. Zero means DefaultConcurrency.
	Concurrency int

	// MaxPixels bounds decoded image area. Zero means DefaultMaxPixels.
	MaxPixels int
}

// Loader resolves an image URL to a decoded bitmap.
type Loader struct {
	fetcher     *Fetcher
	origin      *url.URL
	tempDir     string
	cache       *lru.Cache[string, image.Image]
	concurrency int
	maxPixels   int
}

// NewLoader creates a loader on top of fetcher.
func NewLoader(fetcher *Fetcher, opts LoaderOptions) (*Loader, error) {
	if fetcher == nil {
		fetcher = NewFetcher(0)
	}

	l := &Loader{
		fetcher:     fetcher,
		tempDir:     opts.TempDir,
		concurrency: opts.Concurrency,
		maxPixels:   opts.MaxPixels,
	}
	if l.concurrency <= 0 {
		l.concurrency = DefaultConcurrency
	}
	if l.maxPixels <= 0 {
		l.maxPixels = DefaultMaxPixels
	}

	if opts.Origin != "" {
		origin, err := url.Parse(opts.Origin)
		if err != nil {
			return nil, fmt.Errorf("failed to parse origin: %w", err)
		}
		if origin.Scheme == "" || origin.Host == "" {
			return nil, fmt.Errorf("origin must be absolute, got %q", opts.Origin)
		}
		l.origin = origin
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, image.Image](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create image cache: %w", err)
		}
		l.cache = cache
	}

	return l, nil
}

// Load returns the decoded image at rawURL, consulting the cache first.
// A nil result means "skip this image".
func (l *Loader) Load(ctx context.Context, rawURL string) image.Image {
	if l.cache != nil {
		if img, ok := l.cache.Get(rawURL); ok {
			return img
		}
	}

	img := l.LoadFresh(ctx, rawURL)
	if img != nil && l.cache != nil {
		l.cache.Add(rawURL, img)
	}
	return img
}

// LoadFresh always fetches and decodes. It tries the URL directly and, if
// that fails and an origin is configured, retries through the same-origin
// path. It never panics and never returns an error.
func (l *Loader) LoadFresh(ctx context.Context, rawURL string) (img image.Image) {
	if rawURL == "" {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Image decoder panicked", "url", rawURL, "panic", r)
			img = nil
		}
	}()

	img, err := l.loadDirect(ctx, rawURL)
	if err == nil {
		return img
	}
	slog.Debug("Direct image load failed", "url", rawURL, "error", err)

	if l.origin != nil && ctx.Err() == nil {
		fallback, ferr := l.loadSameOrigin(ctx, rawURL)
		if ferr == nil {
			return fallback
		}
		err = errors.Join(err, ferr)
	}

	slog.Warn("Skipping image", "url", rawURL, "error", fmt.Errorf("%w: %w", ErrAssetLoadFailed, err))
	return nil
}

// LoadAll loads every URL concurrently and returns results aligned with
// urls. Empty URLs and failures yield nil entries.
func (l *Loader) LoadAll(ctx context.Context, urls []string, fresh bool) []image.Image {
	results := make([]image.Image, len(urls))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, l.concurrency)

	for i, u := range urls {
		if u == "" {
			continue
		}
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			if fresh {
				results[idx] = l.LoadFresh(ctx, u)
			} else {
				results[idx] = l.Load(ctx, u)
			}
		}(i, u)
	}

	wg.Wait()
	return results
}

func (l *Loader) loadDirect(ctx context.Context, rawURL string) (image.Image, error) {
	data, err := l.fetcher.FetchBytes(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	img, err := Decode(bytes.NewReader(data), l.maxPixels)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// CheckDimensions rejects a decoded config larger than maxPixels.
func CheckDimensions(cfg image.Config, maxPixels int) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}

// Decode reads the image header, checks it against maxPixels and only then
// decodes the pixels.
func Decode(r io.ReadSeeker, maxPixels int) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, err
	}
	if err := CheckDimensions(cfg, maxPixels); err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(r)
	return img, err
}

// loadSameOrigin fetches the bytes from the configured origin, parks them
// in a temporary blob and decodes from there. The blob is removed as soon
// as decoding finishes, whatever the outcome.
func (l *Loader) loadSameOrigin(ctx context.Context, rawURL string) (image.Image, error) {
	target, err := l.sameOriginURL(rawURL)
	if err != nil {
		return nil, err
	}

	data, err := l.fetcher.FetchBytes(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("same-origin fetch: %w", err)
	}

	blob, release, err := l.materialize(data)
	if err != nil {
		return nil, err
	}
	defer release()

	file, err := os.Open(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	defer file.Close()

	img, err := Decode(file, l.maxPixels)
	if err != nil {
		return nil, fmt.Errorf("failed to decode same-origin image: %w", err)
	}

	slog.Debug("Loaded image through same-origin fallback", "url", rawURL, "via", target)
	return img, nil
}

func (l *Loader) sameOriginURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}

	rel := &url.URL{Path: u.Path, RawQuery: u.RawQuery}
	if rel.Path == "" {
		rel.Path = "/"
	}
	return l.origin.ResolveReference(rel).String(), nil
}

func (l *Loader) materialize(data []byte) (string, func(), error) {
	f, err := os.CreateTemp(l.tempDir, "photoclock-blob-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create blob: %w", err)
	}
	name := f.Name()
	release := func() {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to release blob", "path", name, "error", err)
		}
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		release()
		return "", nil, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		release()
		return "", nil, fmt.Errorf("failed to close blob: %w", err)
	}

	return name, release, nil
}
