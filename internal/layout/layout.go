package layout

import (
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/clockface-studio/photoclock/internal/geometry"
)

const (
	DefaultPreviewWidth   = 360.0
	MinPreviewWidth       = 160.0
	DefaultRingSlotSize   = 110.0
	MinRingSlotSize       = 40.0
	DefaultCenterDiameter = 160.0
	DefaultNumbersSize    = 18.0
	DefaultNumbersColor   = "#222222"
	DefaultColor          = "#111111"

	MaxOffset = 100.0
)

var (
	ErrSlotOutOfRange = errors.New("slot index out of range")
	ErrInvalidColor   = errors.New("invalid color")
	ErrInvalidPayload = errors.New("invalid layout payload")
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ImageTransform places one photograph inside its circular frame. Offsets
// are percentages of the frame diameter.
type ImageTransform struct {
	AttachmentRef string  `json:"attachment_id"`
	SourceURL     string  `json:"url"`
	OffsetX       float64 `json:"x"`
	OffsetY       float64 `json:"y"`
	Scale         float64 `json:"scale"`
}

// IsEmpty reports whether the frame has no image.
func (t ImageTransform) IsEmpty() bool {
	return t.SourceURL == ""
}

// Normalized returns t with offsets bounded to ±100% and a positive scale.
func (t ImageTransform) Normalized() ImageTransform {
	t.OffsetX = geometry.Clamp(t.OffsetX, -MaxOffset, MaxOffset)
	t.OffsetY = geometry.Clamp(t.OffsetY, -MaxOffset, MaxOffset)
	if t.Scale <= 0 || math.IsNaN(t.Scale) || math.IsInf(t.Scale, 0) {
		t.Scale = 1
	}
	return t
}

// RingSlot is one of the 12 fixed ring positions.
type RingSlot struct {
	Index int
	Image ImageTransform
}

// CenterDisc is the 13th placement.
type CenterDisc struct {
	Image    ImageTransform
	Diameter float64
}

// NumbersStyle controls the hour markers. A zero DistancePx means "use the
// ring radius".
type NumbersStyle struct {
	Enabled    bool    `json:"enabled"`
	Color      string  `json:"color"`
	SizePx     float64 `json:"size"`
	DistancePx float64 `json:"distance"`
}

// State is the complete collage layout. It holds no references, so a plain
// assignment is a full snapshot.
type State struct {
	Slots        [geometry.SlotCount]RingSlot
	Center       CenterDisc
	RingSlotSize float64
	Numbers      NumbersStyle
	Color        string

	// PreviewWidth is the available preview area. It bounds the center
	// diameter and is not part of the wire payload.
	PreviewWidth float64
}

// New returns an empty layout sized for the given preview width.
func New(previewWidth float64) State {
	s := State{
		RingSlotSize: DefaultRingSlotSize,
		Center: CenterDisc{
			Image:    ImageTransform{Scale: 1},
			Diameter: DefaultCenterDiameter,
		},
		Numbers: NumbersStyle{
			Enabled: true,
			Color:   DefaultNumbersColor,
			SizePx:  DefaultNumbersSize,
		},
		Color: DefaultColor,
	}
	for i := range s.Slots {
		s.Slots[i] = RingSlot{Index: i + 1, Image: ImageTransform{Scale: 1}}
	}
	s.Resize(previewWidth)
	return s
}

// ValidSlot reports whether index names a ring slot.
func ValidSlot(index int) bool {
	return index >= 1 && index <= geometry.SlotCount
}

// Slot returns the transform held by ring slot index.
func (s *State) Slot(index int) (ImageTransform, error) {
	if !ValidSlot(index) {
		return ImageTransform{}, fmt.Errorf("%w: %d", ErrSlotOutOfRange, index)
	}
	return s.Slots[index-1].Image, nil
}

// SetSlot replaces the transform of ring slot index.
func (s *State) SetSlot(index int, t ImageTransform) error {
	if !ValidSlot(index) {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, index)
	}
	s.Slots[index-1].Image = t.Normalized()
	return nil
}

// ClearSlot empties ring slot index. The slot itself stays.
func (s *State) ClearSlot(index int) error {
	return s.SetSlot(index, ImageTransform{Scale: 1})
}

// SetCenter replaces the center transform.
func (s *State) SetCenter(t ImageTransform) {
	s.Center.Image = t.Normalized()
}

// SetCenterDiameter clamps and stores the center diameter, returning the
// value actually applied.
func (s *State) SetCenterDiameter(d float64) float64 {
	s.Center.Diameter = geometry.ClampCenterDiameter(d, s.CenterMax())
	return s.Center.Diameter
}

// CenterMax is the largest center diameter the current preview allows.
func (s *State) CenterMax() float64 {
	return geometry.CenterMax(s.PreviewWidth)
}

// SetRingSlotSize clamps and stores the ring frame diameter.
func (s *State) SetRingSlotSize(size float64) float64 {
	s.RingSlotSize = geometry.Clamp(size, MinRingSlotSize, math.Max(MinRingSlotSize, s.PreviewWidth/2))
	return s.RingSlotSize
}

// SetNumbers stores the hour-marker style. Distance is clamped against the
// current ring and center sizes; zero keeps the "follow the ring" default.
func (s *State) SetNumbers(n NumbersStyle) error {
	if n.Color == "" {
		n.Color = DefaultNumbersColor
	}
	if !hexColor.MatchString(n.Color) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, n.Color)
	}
	if n.SizePx <= 0 || math.IsNaN(n.SizePx) {
		n.SizePx = DefaultNumbersSize
	}
	if n.DistancePx < 0 || math.IsNaN(n.DistancePx) {
		n.DistancePx = 0
	}
	if n.DistancePx > 0 {
		n.DistancePx = geometry.Clamp(n.DistancePx, 0, s.numbersMax())
	}
	s.Numbers = n
	return nil
}

// SetColor sets the accent color.
func (s *State) SetColor(c string) error {
	if !hexColor.MatchString(c) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, c)
	}
	s.Color = c
	return nil
}

// Resize records a new preview width and re-clamps everything derived from
// it.
func (s *State) Resize(previewWidth float64) {
	if previewWidth < MinPreviewWidth || math.IsNaN(previewWidth) {
		previewWidth = MinPreviewWidth
	}
	s.PreviewWidth = previewWidth
	s.SetRingSlotSize(s.RingSlotSize)
	s.SetCenterDiameter(s.Center.Diameter)
	if s.Numbers.DistancePx > 0 {
		s.Numbers.DistancePx = geometry.Clamp(s.Numbers.DistancePx, 0, s.numbersMax())
	}
}

// RingRadius is the ring radius at preview resolution.
func (s *State) RingRadius() float64 {
	return geometry.RingRadius(s.PreviewWidth, s.RingSlotSize)
}

// NumbersDistance is the effective hour-marker distance at preview
// resolution.
func (s *State) NumbersDistance() float64 {
	return geometry.EffectiveNumbersDistance(s.Numbers.DistancePx, s.RingRadius(), s.numbersMax())
}

// Metrics returns the preview-resolution disc metrics.
func (s *State) Metrics() geometry.Metrics {
	return geometry.NewMetrics(s.PreviewWidth, s.RingSlotSize, s.Center.Diameter, s.Numbers.DistancePx, s.Numbers.SizePx)
}

// Placements lists every non-structural placement: ring slots 1..12 then
// the center.
func (s *State) Placements() []ImageTransform {
	out := make([]ImageTransform, 0, geometry.SlotCount+1)
	for _, slot := range s.Slots {
		out = append(out, slot.Image)
	}
	return append(out, s.Center.Image)
}

func (s *State) numbersMax() float64 {
	return geometry.NumbersMax(s.RingRadius(), s.RingSlotSize, s.Center.Diameter)
}
