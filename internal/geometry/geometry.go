package geometry

import "math"

const (
	// SlotCount is the number of ring positions around the disc.
	SlotCount = 12

	// RingMargin keeps ring frames off the disc edge.
	RingMargin = 12.0

	// MinRingRadius stops the ring collapsing on very small previews.
	MinRingRadius = 50.0

	// MinCenterDiameter is the smallest center photo diameter.
	MinCenterDiameter = 120.0

	// MinOutputSize is the print raster floor in pixels.
	MinOutputSize = 4096

	// OutputScaleFloor ties the print raster to the preview size.
	OutputScaleFloor = 4.0

	// CSSPixelsPerInch is the reference density used for mm conversion.
	CSSPixelsPerInch = 96.0
)

// Point is a position in pixels.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// SlotAngleDegrees returns the clockwise angle of a 1-indexed ring slot,
// measured from 12 o'clock. Slot 1 is at 0°, slot 2 at 30°, and so on.
func SlotAngleDegrees(index int) float64 {
	i := (index - 1) % SlotCount
	if i < 0 {
		i += SlotCount
	}
	return float64(i) * 30
}

// HourAngleDegrees returns the clock-face angle of an hour marker, so 12
// sits at the top and 3 at the right.
func HourAngleDegrees(hour int) float64 {
	h := hour % SlotCount
	if h < 0 {
		h += SlotCount
	}
	return float64(h) * 30
}

// PointOnCircle maps a clock-face angle (0 = up, clockwise) to a point.
func PointOnCircle(angleDeg, radius float64, center Point) Point {
	theta := angleDeg * math.Pi / 180
	return Point{
		X: center.X + radius*math.Sin(theta),
		Y: center.Y - radius*math.Cos(theta),
	}
}

// SlotCenter returns the center of ring slot index.
func SlotCenter(index int, ringRadius float64, discCenter Point) Point {
	return PointOnCircle(SlotAngleDegrees(index), ringRadius, discCenter)
}

// HourPosition returns the anchor point of an hour number.
func HourPosition(hour int, radius float64, discCenter Point) Point {
	return PointOnCircle(HourAngleDegrees(hour), radius, discCenter)
}

// CoverScale is the factor that makes an image of size w×h fully cover a
// square frame of side d.
func CoverScale(frameDiameter, imgW, imgH float64) float64 {
	if imgW <= 0 || imgH <= 0 {
		return 0
	}
	return math.Max(frameDiameter/imgW, frameDiameter/imgH)
}

// DrawRect computes where an image is drawn inside its circular frame.
// The result is frame-local: (0,0) is the frame's top-left corner. Offsets
// are percentages of the frame diameter, so the same transform works at any
// resolution.
func DrawRect(frameDiameter, imgW, imgH, offsetX, offsetY, scale float64) Rect {
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}
	s := CoverScale(frameDiameter, imgW, imgH) * scale
	w := imgW * s
	h := imgH * s
	return Rect{
		X: (frameDiameter-w)/2 + offsetX/100*frameDiameter,
		Y: (frameDiameter-h)/2 + offsetY/100*frameDiameter,
		W: w,
		H: h,
	}
}

// RingRadius is the distance from the disc center to each ring slot center
// for a preview of width w with ring frames of diameter s.
func RingRadius(w, s float64) float64 {
	return math.Max(w/2-s/2-RingMargin, MinRingRadius)
}

// CenterMax is the largest center diameter the preview area allows.
func CenterMax(previewWidth float64) float64 {
	return math.Max(MinCenterDiameter, previewWidth-2*RingMargin)
}

// ClampCenterDiameter bounds d to [MinCenterDiameter, max].
func ClampCenterDiameter(d, max float64) float64 {
	if max < MinCenterDiameter {
		max = MinCenterDiameter
	}
	return Clamp(d, MinCenterDiameter, max)
}

// NumbersMax is the upper bound for the hour-number distance.
func NumbersMax(ringRadius, slotSize, centerDiameter float64) float64 {
	return math.Max(1.2*(ringRadius+slotSize), centerDiameter)
}

// EffectiveNumbersDistance resolves an unset (zero or negative) distance to
// the ring radius and bounds everything else to [0, max].
func EffectiveNumbersDistance(distance, ringRadius, max float64) float64 {
	if distance <= 0 || math.IsNaN(distance) {
		distance = ringRadius
	}
	return Clamp(distance, 0, max)
}

// OutputSize is the print raster side: at least minSize, and at least
// OutputScaleFloor times the preview width.
func OutputSize(previewWidth float64, minSize int) int {
	if minSize <= 0 {
		minSize = MinOutputSize
	}
	floor := int(math.Ceil(previewWidth * OutputScaleFloor))
	if floor > minSize {
		return floor
	}
	return minSize
}

// PxToMM converts pixels to millimetres at 96 px/inch.
func PxToMM(px float64) float64 {
	return px * 25.4 / CSSPixelsPerInch
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
