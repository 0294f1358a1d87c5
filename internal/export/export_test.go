package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clockface-studio/photoclock/internal/geometry"
	"github.com/clockface-studio/photoclock/internal/images"
	"github.com/clockface-studio/photoclock/internal/layout"
	"github.com/clockface-studio/photoclock/internal/surface"
)

func photoServer(t *testing.T) *httptest.Server {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 210, G: 20, B: 20, A: 255}}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newLoader(t *testing.T) *images.Loader {
	t.Helper()
	l, err := images.NewLoader(images.NewFetcher(5*time.Second), images.LoaderOptions{TempDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func mounted(s layout.State) *surface.Model {
	m := surface.NewModel()
	m.Mount(s.PreviewWidth)
	m.Sync(s)
	return m
}

func TestRenderUnavailableWithoutSurface(t *testing.T) {
	s := layout.New(360)

	r := NewRenderer(surface.NewModel(), func() layout.State { return s }, nil)
	if _, err := r.Render(context.Background()); !errors.Is(err, ErrExportUnavailable) {
		t.Errorf("Expected ErrExportUnavailable, got %v", err)
	}

	r = NewRenderer(nil, func() layout.State { return s }, nil)
	if _, err := r.Render(context.Background()); !errors.Is(err, ErrExportUnavailable) {
		t.Errorf("Expected ErrExportUnavailable for nil surface, got %v", err)
	}
}

func TestRenderPrintSize(t *testing.T) {
	s := layout.New(360)
	r := NewRenderer(mounted(s), func() layout.State { return s }, nil)

	res, err := r.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if res.SizePx != 4096 {
		t.Errorf("Expected 4096px, got %d", res.SizePx)
	}
	if math.Abs(res.Scale-11.3778) > 1e-3 {
		t.Errorf("Expected scale ≈ 11.378, got %v", res.Scale)
	}
	if math.Abs(res.WidthMM-1083.73) > 0.01 || res.WidthMM != res.HeightMM {
		t.Errorf("Expected ≈1083.73mm square, got %vx%v", res.WidthMM, res.HeightMM)
	}
	if b := res.Image.Bounds(); b.Dx() != 4096 || b.Dy() != 4096 {
		t.Errorf("Expected 4096x4096 raster, got %v", b)
	}
}

func TestRenderSkipsFailedImage(t *testing.T) {
	srv := photoServer(t)

	s := layout.New(360)
	if err := s.SetNumbers(layout.NumbersStyle{Enabled: false}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= geometry.SlotCount; i++ {
		u := srv.URL + "/photo.png"
		if i == 5 {
			u = srv.URL + "/missing.png"
		}
		if err := s.SetSlot(i, layout.ImageTransform{SourceURL: u, Scale: 1}); err != nil {
			t.Fatal(err)
		}
	}

	r := NewRenderer(mounted(s), func() layout.State { return s }, newLoader(t))
	r.MinOutputSize = 1

	res, err := r.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if res.SizePx != 1440 {
		t.Fatalf("Expected the 4x floor (1440px), got %d", res.SizePx)
	}

	rgba, ok := res.Image.(*image.RGBA)
	if !ok {
		t.Fatalf("Expected *image.RGBA, got %T", res.Image)
	}

	m := s.Metrics().Scale(res.Scale)
	for i := 1; i <= geometry.SlotCount; i++ {
		p := geometry.SlotCenter(i, m.RingRadius, m.DiscCenter())
		c := rgba.RGBAAt(int(p.X), int(p.Y))
		red := c.R > 180 && c.G < 60
		if i == 5 && red {
			t.Errorf("Expected slot 5 blank, got %+v", c)
		}
		if i != 5 && !red {
			t.Errorf("Expected slot %d rendered, got %+v", i, c)
		}
	}
}

func TestRenderReconcilesFromSurface(t *testing.T) {
	srv := photoServer(t)

	s := layout.New(360)
	if err := s.SetNumbers(layout.NumbersStyle{Enabled: false}); err != nil {
		t.Fatal(err)
	}
	surf := mounted(s)
	if err := surf.SetElementData(surface.SlotID(2), layout.ImageTransform{SourceURL: srv.URL + "/drift.png", Scale: 1}); err != nil {
		t.Fatal(err)
	}

	r := NewRenderer(surf, func() layout.State { return s }, newLoader(t))
	r.MinOutputSize = 1

	res, err := r.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	m := s.Metrics().Scale(res.Scale)
	p := geometry.SlotCenter(2, m.RingRadius, m.DiscCenter())
	if c := res.Image.(*image.RGBA).RGBAAt(int(p.X), int(p.Y)); c.R < 180 || c.G > 60 {
		t.Errorf("Expected slot 2 filled from surface data, got %+v", c)
	}

	if got, _ := s.Slot(2); !got.IsEmpty() {
		t.Error("Expected the layout itself to stay untouched")
	}
}

func TestEncodeJPEGQualityBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for _, q := range []float64{0, 0.92, 1, 3} {
		var buf bytes.Buffer
		if err := EncodeJPEG(&buf, img, q); err != nil {
			t.Errorf("quality %v: %v", q, err)
			continue
		}
		if _, err := jpeg.Decode(&buf); err != nil {
			t.Errorf("quality %v: output does not decode: %v", q, err)
		}
	}

	if err := EncodeJPEG(&bytes.Buffer{}, nil, 0.9); err == nil {
		t.Error("Expected error for nil image")
	}
}

func TestEncodePDF(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	var jpg bytes.Buffer
	if err := EncodeJPEG(&jpg, img, PDFQuality); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		data    []byte
		w, h    float64
		wantErr bool
	}{
		{"square", jpg.Bytes(), 1083.73, 1083.73, false},
		{"portrait", jpg.Bytes(), 100, 200, false},
		{"empty jpeg", nil, 100, 100, true},
		{"zero size", jpg.Bytes(), 0, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := EncodePDF(&out, tt.data, tt.w, tt.h)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EncodePDF error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.HasPrefix(out.Bytes(), []byte("%PDF")) {
				t.Errorf("Expected PDF header, got %q", out.Bytes()[:min(8, out.Len())])
			}
		})
	}
}
