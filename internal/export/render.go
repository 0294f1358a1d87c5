// Package export renders the collage at print resolution and encodes it.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/clockface-studio/photoclock/internal/compose"
	"github.com/clockface-studio/photoclock/internal/geometry"
	"github.com/clockface-studio/photoclock/internal/layout"
	"github.com/clockface-studio/photoclock/internal/surface"
)

var ErrExportUnavailable = errors.New("export unavailable")

// ImageLoader resolves placement URLs, nil entries meaning "skip".
type ImageLoader interface {
	LoadAll(ctx context.Context, urls []string, fresh bool) []image.Image
}

// Result is a finished print raster.
type Result struct {
	Image    image.Image
	SizePx   int
	Scale    float64
	WidthMM  float64
	HeightMM float64
}

// Renderer composes the layout from scratch at print density. It reads the
// surface only to check availability and to reconcile drifted slots.
type Renderer struct {
	surface surface.Adapter
	state   func() layout.State
	loader  ImageLoader

	// MinOutputSize overrides geometry.MinOutputSize when positive.
	MinOutputSize int
}

// NewRenderer creates a renderer. state must return a value snapshot.
func NewRenderer(surf surface.Adapter, state func() layout.State, loader ImageLoader) *Renderer {
	return &Renderer{surface: surf, state: state, loader: loader}
}

// Render produces the print raster and its physical size.
func (r *Renderer) Render(ctx context.Context) (Result, error) {
	if r.surface == nil || !r.surface.Mounted() {
		return Result{}, ErrExportUnavailable
	}

	start := time.Now()
	snapshot := r.state()
	r.reconcile(&snapshot)

	size := geometry.OutputSize(snapshot.PreviewWidth, r.MinOutputSize)
	scale := float64(size) / snapshot.PreviewWidth

	urls := make([]string, 0, geometry.SlotCount+1)
	for _, t := range snapshot.Placements() {
		urls = append(urls, t.SourceURL)
	}

	var images []image.Image
	if r.loader != nil {
		images = r.loader.LoadAll(ctx, urls, true)
	}

	scene := compose.BuildScene(snapshot, scale, images, compose.SceneOptions{Interpolator: xdraw.CatmullRom})
	scene.Size = size

	img, err := compose.Draw(ctx, scene)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compose export: %w", err)
	}

	mm := geometry.PxToMM(float64(size))
	slog.Info("Rendered export",
		"size_px", size,
		"scale", scale,
		"mm", mm,
		"loaded", countLoaded(images),
		"duration", time.Since(start))

	return Result{
		Image:    img,
		SizePx:   size,
		Scale:    scale,
		WidthMM:  mm,
		HeightMM: mm,
	}, nil
}

// reconcile fills placements missing from the layout with the data the
// surface still carries for them.
func (r *Renderer) reconcile(s *layout.State) {
	for i := 1; i <= geometry.SlotCount; i++ {
		current, _ := s.Slot(i)
		if !current.IsEmpty() {
			continue
		}
		el, ok := r.surface.Element(surface.SlotID(i))
		if !ok || el.Data.IsEmpty() {
			continue
		}
		slog.Debug("Reconciled placement from surface", "element", el.ID, "url", el.Data.SourceURL)
		_ = s.SetSlot(i, el.Data)
	}

	if s.Center.Image.IsEmpty() {
		if el, ok := r.surface.Element(surface.CenterID); ok && !el.Data.IsEmpty() {
			slog.Debug("Reconciled placement from surface", "element", el.ID, "url", el.Data.SourceURL)
			s.SetCenter(el.Data)
		}
	}
}

func countLoaded(images []image.Image) int {
	n := 0
	for _, img := range images {
		if img != nil {
			n++
		}
	}
	return n
}
