package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/clockface-studio/photoclock/internal/compose"
	"github.com/clockface-studio/photoclock/internal/layout"
	"github.com/clockface-studio/photoclock/internal/surface"
)

type fakeLoader struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeLoader) LoadAll(ctx context.Context, urls []string, fresh bool) []image.Image {
	f.mu.Lock()
	f.urls = append([]string(nil), urls...)
	f.mu.Unlock()

	out := make([]image.Image, len(urls))
	for i, u := range urls {
		if u == "" {
			continue
		}
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		for j := 0; j < len(img.Pix); j += 4 {
			img.Pix[j], img.Pix[j+3] = 220, 255
		}
		out[i] = img
	}
	return out
}

type countingSuspender struct {
	mu        sync.Mutex
	depth     int
	maxDepth  int
	suspends  int
	unbalance bool
}

func (c *countingSuspender) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depth++
	c.suspends++
	if c.depth > c.maxDepth {
		c.maxDepth = c.depth
	}
}

func (c *countingSuspender) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.depth == 0 {
		c.unbalance = true
		return
	}
	c.depth--
}

// recordingRasterizer records surface state at the moment of rasterisation.
type recordingRasterizer struct {
	surf      *surface.Model
	live      *countingSuspender
	err       error
	printMode bool
	depth     int
	scene     compose.Scene
}

func (p *recordingRasterizer) Rasterize(ctx context.Context, scene compose.Scene) (image.Image, error) {
	p.printMode = p.surf.PrintMode()
	if p.live != nil {
		p.live.mu.Lock()
		p.depth = p.live.depth
		p.live.mu.Unlock()
	}
	p.scene = scene
	if p.err != nil {
		return nil, p.err
	}
	return compose.Draw(ctx, scene)
}

func newState(t *testing.T) layout.State {
	t.Helper()
	s := layout.New(360)
	if err := s.SetSlot(1, layout.ImageTransform{SourceURL: "one.png", Scale: 1}); err != nil {
		t.Fatal(err)
	}
	s.SetCenter(layout.ImageTransform{SourceURL: "center.png", Scale: 1})
	return s
}

func TestCaptureRequiresMountedSurface(t *testing.T) {
	s := newState(t)
	p := New(surface.NewModel(), func() layout.State { return s }, &fakeLoader{}, nil)

	if _, err := p.Capture(context.Background(), 1, Options{}); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("Expected ErrCaptureUnavailable, got %v", err)
	}

	p = New(nil, func() layout.State { return s }, &fakeLoader{}, nil)
	if _, err := p.Capture(context.Background(), 1, Options{}); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("Expected ErrCaptureUnavailable for nil surface, got %v", err)
	}
}

func TestCaptureRendersAtScale(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
		size  int
	}{
		{"screen", 1, 360},
		{"double", 2, 720},
		{"non-positive defaults to one", 0, 360},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(t)
			surf := surface.NewModel()
			surf.Mount(360)
			loader := &fakeLoader{}

			p := New(surf, func() layout.State { return s }, loader, nil)
			p.SettleDelay = 0

			img, err := p.Capture(context.Background(), tt.scale, Options{})
			if err != nil {
				t.Fatalf("Capture failed: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.size {
				t.Errorf("Expected width %d, got %d", tt.size, b.Dx())
			}
			if len(loader.urls) != 13 || loader.urls[0] != "one.png" || loader.urls[12] != "center.png" {
				t.Errorf("Unexpected placement urls: %v", loader.urls)
			}

			el, _ := surf.Element(surface.SlotID(1))
			if el.BackgroundURL != "" {
				t.Errorf("Expected capture to leave the surface layout alone, got %+v", el)
			}
		})
	}
}

func TestCapturePrintModeAndSuspension(t *testing.T) {
	s := newState(t)
	surf := surface.NewModel()
	surf.Mount(360)
	live := &countingSuspender{}
	rec := &recordingRasterizer{surf: surf, live: live}

	p := New(surf, func() layout.State { return s }, &fakeLoader{}, rec)
	p.SetLivePreview(live)

	if _, err := p.Capture(context.Background(), 1, Options{PrintMode: true, SuspendLivePreview: true}); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	if !rec.printMode {
		t.Error("Expected print mode during rasterisation")
	}
	if surf.PrintMode() {
		t.Error("Expected print mode reverted")
	}
	if rec.depth != 1 {
		t.Errorf("Expected live preview suspended once during rasterisation, got depth %d", rec.depth)
	}
	if live.depth != 0 || live.unbalance {
		t.Errorf("Expected balanced suspend/resume, got %+v", live)
	}
	for _, photo := range rec.scene.Photos {
		if photo.Guide {
			t.Error("Expected no guides in print mode")
		}
	}
}

func TestCaptureRasterizerFailure(t *testing.T) {
	s := newState(t)
	surf := surface.NewModel()
	surf.Mount(360)
	live := &countingSuspender{}
	rec := &recordingRasterizer{surf: surf, live: live, err: errors.New("gpu on fire")}

	p := New(surf, func() layout.State { return s }, &fakeLoader{}, rec)
	p.SetLivePreview(live)

	_, err := p.Capture(context.Background(), 1, Options{PrintMode: true, SuspendLivePreview: true})
	if !errors.Is(err, ErrRasterizationFailed) {
		t.Fatalf("Expected ErrRasterizationFailed, got %v", err)
	}
	if surf.PrintMode() {
		t.Error("Expected print mode reverted after failure")
	}
	if live.depth != 0 {
		t.Errorf("Expected suspension released after failure, got depth %d", live.depth)
	}
}

func TestCaptureReadsSnapshotAtInvocation(t *testing.T) {
	var mu sync.Mutex
	s := newState(t)
	state := func() layout.State {
		mu.Lock()
		defer mu.Unlock()
		return s
	}

	surf := surface.NewModel()
	surf.Mount(360)
	rec := &recordingRasterizer{surf: surf}
	p := New(surf, state, &fakeLoader{}, rec)
	p.SettleDelay = 0

	if _, err := p.Capture(context.Background(), 1, Options{}); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	_ = s.ClearSlot(1)
	mu.Unlock()

	if rec.scene.Photos[0].Transform.SourceURL != "one.png" {
		t.Error("Expected the captured scene to keep its snapshot")
	}

	red := rec.scene.Photos[0].Image
	if red == nil {
		t.Fatal("Expected slot 1 image")
	}
	if c := color.RGBAModel.Convert(red.At(0, 0)).(color.RGBA); c.R != 220 {
		t.Errorf("Unexpected pixel %+v", c)
	}
}
