package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gomono"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/clockface-studio/photoclock/internal/geometry"
)

// MaxCanvasSize bounds the raster side length.
const MaxCanvasSize = 16384

// ErrInvalidCanvas is returned for a non-positive or oversized raster.
var ErrInvalidCanvas = errors.New("invalid canvas size")

var (
	fontOnce   sync.Once
	fontSource *text.FontSource
	fontErr    error
)

func numbersFace(size float64) (text.Face, error) {
	fontOnce.Do(func() {
		fontSource, fontErr = text.NewFontSource(gomono.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("failed to load numbers font: %w", fontErr)
	}
	return fontSource.Face(size), nil
}

// Draw renders scene onto a white square raster.
func Draw(ctx context.Context, scene Scene) (img *image.RGBA, err error) {
	n := scene.Size
	if n <= 0 || n > MaxCanvasSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCanvas, n)
	}

	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("compose panicked: %v", r)
		}
	}()

	pm := gg.NewPixmap(n, n)
	dc := gg.NewContext(n, n, gg.WithPixmap(pm))
	defer dc.Close()
	dc.ClearWithColor(gg.Hex(BackgroundColor))

	// photos are blended straight into the pixmap memory
	canvas := &image.RGBA{Pix: pm.Data(), Stride: 4 * n, Rect: image.Rect(0, 0, n, n)}

	interp := scene.Interpolator
	if interp == nil {
		interp = xdraw.ApproxBiLinear
	}

	masks := make(map[int]*image.Alpha)
	for _, p := range scene.Photos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.Image != nil {
			if err := drawPhoto(canvas, p, interp, masks); err != nil {
				return nil, err
			}
			continue
		}
		if p.Guide {
			if err := drawGuide(dc, p); err != nil {
				return nil, err
			}
		}
	}

	if scene.Numbers.Enabled {
		if err := drawNumbers(dc, scene.Numbers); err != nil {
			return nil, err
		}
	}

	if scene.BorderWidth > 0 {
		half := float64(n) / 2
		dc.SetHexColor(scene.BorderColor)
		dc.SetLineWidth(scene.BorderWidth)
		dc.DrawCircle(half, half, half-scene.BorderWidth/2)
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("failed to stroke border: %w", err)
		}
	}

	return canvas, nil
}

// drawPhoto resamples p.Image into a frame-sized buffer using the cover-fit
// rect, then blends it through a circular mask.
func drawPhoto(canvas *image.RGBA, p Photo, interp xdraw.Interpolator, masks map[int]*image.Alpha) error {
	d := int(math.Round(p.Diameter))
	if d <= 0 {
		return nil
	}
	b := p.Image.Bounds()
	if b.Empty() {
		return nil
	}

	t := p.Transform.Normalized()
	r := geometry.DrawRect(float64(d), float64(b.Dx()), float64(b.Dy()), t.OffsetX, t.OffsetY, t.Scale)
	sx := r.W / float64(b.Dx())
	sy := r.H / float64(b.Dy())

	frame := image.NewRGBA(image.Rect(0, 0, d, d))
	s2d := f64.Aff3{
		sx, 0, r.X - sx*float64(b.Min.X),
		0, sy, r.Y - sy*float64(b.Min.Y),
	}
	interp.Transform(frame, s2d, p.Image, b, xdraw.Src, nil)

	mask, ok := masks[d]
	if !ok {
		var err error
		if mask, err = circleMask(d); err != nil {
			return err
		}
		masks[d] = mask
	}

	x0 := int(math.Round(p.Center.X - p.Diameter/2))
	y0 := int(math.Round(p.Center.Y - p.Diameter/2))
	draw.DrawMask(canvas, image.Rect(x0, y0, x0+d, y0+d), frame, image.Point{}, mask, image.Point{}, draw.Over)
	return nil
}

func circleMask(d int) (*image.Alpha, error) {
	dc := gg.NewContext(d, d)
	defer dc.Close()

	half := float64(d) / 2
	dc.DrawCircle(half, half, half)
	dc.SetRGBA(1, 1, 1, 1)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("failed to rasterize clip: %w", err)
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("failed to flush clip: %w", err)
	}

	mask := image.NewAlpha(image.Rect(0, 0, d, d))
	draw.Draw(mask, mask.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return mask, nil
}

func drawGuide(dc *gg.Context, p Photo) error {
	width := math.Max(1, p.Diameter*0.012)
	dash := math.Max(2, p.Diameter*0.05)

	dc.SetHexColor(GuideColor)
	dc.SetLineWidth(width)
	dc.SetDash(dash, dash*0.6)
	defer dc.ClearDash()

	dc.DrawCircle(p.Center.X, p.Center.Y, p.Diameter/2-width/2)
	if err := dc.Stroke(); err != nil {
		return fmt.Errorf("failed to stroke guide: %w", err)
	}
	return nil
}

func drawNumbers(dc *gg.Context, n Numbers) error {
	if n.Size <= 0 {
		return nil
	}
	face, err := numbersFace(n.Size)
	if err != nil {
		slog.Warn("Skipping hour numbers", "error", err)
		return nil
	}

	dc.SetFont(face)
	dc.SetHexColor(n.Color)
	for hour := 1; hour <= 12; hour++ {
		pos := geometry.HourPosition(hour, n.Radius, n.Center)
		dc.DrawStringAnchored(strconv.Itoa(hour), pos.X, pos.Y, 0.5, 0.5)
	}
	return nil
}

// Rasterizer is the default scene rasteriser.
type Rasterizer struct{}

func (Rasterizer) Rasterize(ctx context.Context, scene Scene) (image.Image, error) {
	img, err := Draw(ctx, scene)
	if err != nil {
		return nil, err
	}
	return img, nil
}
