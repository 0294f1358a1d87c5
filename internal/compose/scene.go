// Package compose rasterises a collage disc. The live preview and the
// print export both go through Draw so they cannot disagree.
package compose

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/clockface-studio/photoclock/internal/geometry"
	"github.com/clockface-studio/photoclock/internal/layout"
)

const (
	// BorderRatio is the disc border width as a fraction of the raster.
	BorderRatio = 0.006

	// MinNumbersSize is the smallest hour-marker size at preview scale.
	MinNumbersSize = 12.0

	BackgroundColor = "#ffffff"
	GuideColor      = "#b8b8b8"
)

// Photo is one circular frame.
type Photo struct {
	Center    geometry.Point
	Diameter  float64
	Image     image.Image // nil leaves the frame blank
	Transform layout.ImageTransform
	Guide     bool // draw a dashed placeholder when Image is nil
}

// Numbers describes the hour markers.
type Numbers struct {
	Enabled bool
	Center  geometry.Point
	Radius  float64
	Size    float64
	Color   string
}

// Scene is everything Draw needs. Lengths are raster pixels.
type Scene struct {
	Size        int
	Photos      []Photo
	Numbers     Numbers
	BorderColor string
	BorderWidth float64

	// Interpolator resamples photos. Nil means ApproxBiLinear.
	Interpolator xdraw.Interpolator
}

// SceneOptions tunes BuildScene.
type SceneOptions struct {
	Guides       bool
	Interpolator xdraw.Interpolator
}

// BuildScene lays out s at the given scale. images must hold the 13
// placements in layout.State.Placements order; missing entries are blank.
func BuildScene(s layout.State, scale float64, images []image.Image, opts SceneOptions) Scene {
	m := s.Metrics().Scale(scale)
	disc := m.DiscCenter()
	size := int(math.Round(m.PreviewWidth))

	imageAt := func(i int) image.Image {
		if i < len(images) {
			return images[i]
		}
		return nil
	}

	photos := make([]Photo, 0, geometry.SlotCount+1)
	for i, slot := range s.Slots {
		photos = append(photos, Photo{
			Center:    geometry.SlotCenter(slot.Index, m.RingRadius, disc),
			Diameter:  m.SlotSize,
			Image:     imageAt(i),
			Transform: slot.Image,
			Guide:     opts.Guides && slot.Image.IsEmpty(),
		})
	}
	photos = append(photos, Photo{
		Center:    disc,
		Diameter:  m.CenterDiameter,
		Image:     imageAt(geometry.SlotCount),
		Transform: s.Center.Image,
		Guide:     opts.Guides && s.Center.Image.IsEmpty(),
	})

	return Scene{
		Size:   size,
		Photos: photos,
		Numbers: Numbers{
			Enabled: s.Numbers.Enabled,
			Center:  disc,
			Radius:  m.NumbersDistance,
			Size:    math.Max(MinNumbersSize, s.Numbers.SizePx) * scale,
			Color:   s.Numbers.Color,
		},
		BorderColor:  s.Color,
		BorderWidth:  math.Max(1, float64(size)*BorderRatio),
		Interpolator: opts.Interpolator,
	}
}
