package compose

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/clockface-studio/photoclock/internal/geometry"
	"github.com/clockface-studio/photoclock/internal/layout"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func plainState(t *testing.T) layout.State {
	t.Helper()
	s := layout.New(360)
	if err := s.SetNumbers(layout.NumbersStyle{Enabled: false}); err != nil {
		t.Fatal(err)
	}
	return s
}

func isWhite(c color.RGBA) bool {
	return c.R == 255 && c.G == 255 && c.B == 255
}

func isRed(c color.RGBA) bool {
	return c.R > 200 && c.G < 60 && c.B < 60
}

func TestDrawPlacesPhotoInsideFrame(t *testing.T) {
	s := plainState(t)
	if err := s.SetSlot(1, layout.ImageTransform{SourceURL: "red.png", Scale: 1}); err != nil {
		t.Fatal(err)
	}

	images := make([]image.Image, geometry.SlotCount+1)
	images[0] = solid(40, 80, color.RGBA{R: 230, A: 255})

	img, err := Draw(context.Background(), BuildScene(s, 1, images, SceneOptions{}))
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 360 || b.Dy() != 360 {
		t.Fatalf("Expected 360x360, got %v", b)
	}

	// slot 1 centre is (180, 67); its frame spans 55px either side
	tests := []struct {
		name  string
		x, y  int
		check func(color.RGBA) bool
	}{
		{"slot centre", 180, 67, isRed},
		{"inside clip", 180, 20, isRed},
		{"frame corner outside clip", 127, 14, isWhite},
		{"raster corner", 3, 3, isWhite},
		{"empty neighbour", 237, 82, isWhite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := img.RGBAAt(tt.x, tt.y)
			if !tt.check(got) {
				t.Errorf("Unexpected pixel at (%d,%d): %+v", tt.x, tt.y, got)
			}
		})
	}
}

func TestDrawMissingImageLeavesFrameBlank(t *testing.T) {
	s := plainState(t)
	for i := 1; i <= geometry.SlotCount; i++ {
		if err := s.SetSlot(i, layout.ImageTransform{SourceURL: "photo.png", Scale: 1}); err != nil {
			t.Fatal(err)
		}
	}

	images := make([]image.Image, geometry.SlotCount+1)
	for i := 0; i < geometry.SlotCount; i++ {
		images[i] = solid(10, 10, color.RGBA{R: 230, A: 255})
	}
	images[2] = nil // slot 3 failed to load

	img, err := Draw(context.Background(), BuildScene(s, 1, images, SceneOptions{Guides: true}))
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	disc := geometry.Point{X: 180, Y: 180}
	for i := 1; i <= geometry.SlotCount; i++ {
		p := geometry.SlotCenter(i, s.RingRadius(), disc)
		got := img.RGBAAt(int(p.X), int(p.Y))
		if i == 3 {
			if !isWhite(got) {
				t.Errorf("Expected slot 3 blank, got %+v", got)
			}
			continue
		}
		if !isRed(got) {
			t.Errorf("Expected slot %d red, got %+v", i, got)
		}
	}
}

func TestDrawBorderUsesAccentColor(t *testing.T) {
	s := plainState(t)
	if err := s.SetColor("#0000ff"); err != nil {
		t.Fatal(err)
	}

	img, err := Draw(context.Background(), BuildScene(s, 1, nil, SceneOptions{}))
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	got := img.RGBAAt(180, 1)
	if got.B < 150 || got.R > 100 {
		t.Errorf("Expected blue border at top edge, got %+v", got)
	}
}

func TestDrawGuidesOnlyWhenRequested(t *testing.T) {
	s := plainState(t)
	box := image.Rect(125, 12, 235, 122) // slot 1 frame

	for _, guides := range []bool{false, true} {
		img, err := Draw(context.Background(), BuildScene(s, 1, nil, SceneOptions{Guides: guides}))
		if err != nil {
			t.Fatalf("Draw failed: %v", err)
		}
		marked := false
		for y := box.Min.Y; y < box.Max.Y && !marked; y++ {
			for x := box.Min.X; x < box.Max.X; x++ {
				if !isWhite(img.RGBAAt(x, y)) {
					marked = true
					break
				}
			}
		}
		if marked != guides {
			t.Errorf("guides=%v: expected marked=%v", guides, guides)
		}
	}
}

func TestDrawNumbers(t *testing.T) {
	s := layout.New(360)
	img, err := Draw(context.Background(), BuildScene(s, 1, nil, SceneOptions{}))
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	// "12" is centred over slot 1
	inked := false
	for y := 50; y < 90 && !inked; y++ {
		for x := 165; x < 195; x++ {
			if c := img.RGBAAt(x, y); c.R < 128 {
				inked = true
				break
			}
		}
	}
	if !inked {
		t.Error("Expected hour number ink near 12 o'clock")
	}
}

func TestBuildSceneScales(t *testing.T) {
	s := layout.New(360)
	scene := BuildScene(s, 2, nil, SceneOptions{})

	if scene.Size != 720 {
		t.Errorf("Expected size 720, got %d", scene.Size)
	}
	if len(scene.Photos) != geometry.SlotCount+1 {
		t.Fatalf("Expected 13 photos, got %d", len(scene.Photos))
	}
	if scene.Photos[0].Diameter != 220 {
		t.Errorf("Expected ring diameter 220, got %v", scene.Photos[0].Diameter)
	}
	if scene.Photos[12].Diameter != 320 {
		t.Errorf("Expected center diameter 320, got %v", scene.Photos[12].Diameter)
	}
	if scene.Numbers.Radius != 226 {
		t.Errorf("Expected numbers radius 226, got %v", scene.Numbers.Radius)
	}
	if scene.Numbers.Size != 36 {
		t.Errorf("Expected numbers size 36, got %v", scene.Numbers.Size)
	}
}

func TestDrawRejectsInvalidCanvas(t *testing.T) {
	for _, size := range []int{0, -5, MaxCanvasSize + 1} {
		if _, err := Draw(context.Background(), Scene{Size: size}); !errors.Is(err, ErrInvalidCanvas) {
			t.Errorf("size %d: expected ErrInvalidCanvas, got %v", size, err)
		}
	}
}

func TestDrawHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := plainState(t)
	if _, err := Draw(ctx, BuildScene(s, 1, nil, SceneOptions{})); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
