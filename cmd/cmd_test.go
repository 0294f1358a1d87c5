package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/clockface-studio/photoclock/internal/layout"
)

func writeLayoutFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetRGBA(8, 8, color.RGBA{R: 10, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "photo.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	s := layout.New(360)
	for i := 1; i <= 12; i++ {
		if err := s.SetSlot(i, layout.ImageTransform{SourceURL: "photo.png", Scale: 1}); err != nil {
			t.Fatal(err)
		}
	}
	data, err := json.Marshal(s.Payload())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "layout.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runRoot(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func TestRenderCommand(t *testing.T) {
	t.Setenv("PHOTOCLOCK_MIN_OUTPUT_SIZE", "100")
	layoutPath := writeLayoutFixture(t)

	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, data []byte)
	}{
		{
			name:   "pdf",
			format: "pdf",
			check: func(t *testing.T, data []byte) {
				if !bytes.HasPrefix(data, []byte("%PDF")) {
					t.Error("Expected a PDF document")
				}
			},
		},
		{
			name:   "jpeg",
			format: "jpeg",
			check: func(t *testing.T, data []byte) {
				img, err := jpeg.Decode(bytes.NewReader(data))
				if err != nil {
					t.Fatal(err)
				}
				if img.Bounds().Dx() != 1440 {
					t.Errorf("Expected 1440px render, got %d", img.Bounds().Dx())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out."+tt.format)
			if err := runRoot(t, "render", layoutPath, "--format", tt.format, "--out", out); err != nil {
				t.Fatalf("render failed: %v", err)
			}
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, data)
		})
	}
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	layoutPath := writeLayoutFixture(t)
	if err := runRoot(t, "render", layoutPath, "--format", "tiff"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestPreviewCommand(t *testing.T) {
	layoutPath := writeLayoutFixture(t)
	out := filepath.Join(t.TempDir(), "preview.png")

	if err := runRoot(t, "preview", layoutPath, "--out", out, "--scale", "0.5", "--print"); err != nil {
		t.Fatalf("preview failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 180 {
		t.Errorf("Expected 180px preview, got %d", img.Bounds().Dx())
	}
}

func TestUnknownLogLevel(t *testing.T) {
	layoutPath := writeLayoutFixture(t)
	defer func() { logLevel = "info" }()
	if err := runRoot(t, "preview", layoutPath, "--log-level", "loud"); err == nil {
		t.Error("Expected error for unknown log level")
	}
}
