// Package capture snapshots the current collage to a raster.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/clockface-studio/photoclock/internal/compose"
	"github.com/clockface-studio/photoclock/internal/layout"
	"github.com/clockface-studio/photoclock/internal/surface"
)

var (
	ErrCaptureUnavailable  = errors.New("capture unavailable")
	ErrRasterizationFailed = errors.New("rasterization failed")
)

// DefaultSettleDelay is how long styling changes get before a capture
// reads the surface.
const DefaultSettleDelay = 10 * time.Millisecond

// Rasterizer turns a scene into pixels.
type Rasterizer interface {
	Rasterize(ctx context.Context, scene compose.Scene) (image.Image, error)
}

// ImageLoader resolves placement URLs, nil entries meaning "skip".
type ImageLoader interface {
	LoadAll(ctx context.Context, urls []string, fresh bool) []image.Image
}

// Suspender is implemented by the live preview so a capture can hold it off.
type Suspender interface {
	Suspend()
	Resume()
}

// Options select how a capture behaves.
type Options struct {
	PrintMode          bool
	SuspendLivePreview bool
}

// Pipeline captures whatever the surface currently shows.
type Pipeline struct {
	surface    surface.Adapter
	state      func() layout.State
	loader     ImageLoader
	rasterizer Rasterizer

	SettleDelay time.Duration

	mu   sync.Mutex
	live Suspender
}

// New creates a pipeline. state must return a value snapshot; when the
// surface mirrors an editor, state should also resync it under the editor's
// lock (see editor.Editor.SyncSurface). Capture itself never writes the
// surface layout.
func New(surf surface.Adapter, state func() layout.State, loader ImageLoader, rasterizer Rasterizer) *Pipeline {
	if rasterizer == nil {
		rasterizer = compose.Rasterizer{}
	}
	return &Pipeline{
		surface:     surf,
		state:       state,
		loader:      loader,
		rasterizer:  rasterizer,
		SettleDelay: DefaultSettleDelay,
	}
}

// SetLivePreview registers the preview scheduler to suspend during
// captures that ask for it.
func (p *Pipeline) SetLivePreview(s Suspender) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live = s
}

func (p *Pipeline) livePreview() Suspender {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Capture renders the current layout at scale times the surface width.
func (p *Pipeline) Capture(ctx context.Context, scale float64, opts Options) (image.Image, error) {
	if p.surface == nil || !p.surface.Mounted() {
		return nil, ErrCaptureUnavailable
	}
	if scale <= 0 {
		scale = 1
	}

	if opts.PrintMode {
		p.surface.SetPrintMode(true)
		defer p.surface.SetPrintMode(false)
	}

	if p.SettleDelay > 0 {
		timer := time.NewTimer(p.SettleDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	snapshot := p.state()

	if opts.SuspendLivePreview {
		if live := p.livePreview(); live != nil {
			live.Suspend()
			defer live.Resume()
		}
	}

	if _, err := p.surface.Measure(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}

	var images []image.Image
	if p.loader != nil {
		images = p.loader.LoadAll(ctx, placementURLs(snapshot), false)
	}

	scene := compose.BuildScene(snapshot, scale, images, compose.SceneOptions{Guides: !opts.PrintMode})
	img, err := p.rasterizer.Rasterize(ctx, scene)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrRasterizationFailed, err)
	}

	slog.Debug("Captured snapshot", "size", scene.Size, "scale", scale, "print", opts.PrintMode)
	return img, nil
}

func placementURLs(s layout.State) []string {
	placements := s.Placements()
	urls := make([]string, len(placements))
	for i, t := range placements {
		urls[i] = t.SourceURL
	}
	return urls
}
