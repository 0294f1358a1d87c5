package geometry

// Metrics holds every length the compositor needs for one disc. All values
// are in pixels of the target raster.
type Metrics struct {
	PreviewWidth    float64
	RingRadius      float64
	SlotSize        float64
	CenterDiameter  float64
	NumbersDistance float64
	NumbersSize     float64
}

// NewMetrics derives the disc metrics at preview resolution.
func NewMetrics(previewWidth, slotSize, centerDiameter, numbersDistance, numbersSize float64) Metrics {
	radius := RingRadius(previewWidth, slotSize)
	center := ClampCenterDiameter(centerDiameter, CenterMax(previewWidth))
	return Metrics{
		PreviewWidth:    previewWidth,
		RingRadius:      radius,
		SlotSize:        slotSize,
		CenterDiameter:  center,
		NumbersDistance: EffectiveNumbersDistance(numbersDistance, radius, NumbersMax(radius, slotSize, center)),
		NumbersSize:     numbersSize,
	}
}

// Scale returns the same layout magnified by f.
func (m Metrics) Scale(f float64) Metrics {
	return Metrics{
		PreviewWidth:    m.PreviewWidth * f,
		RingRadius:      m.RingRadius * f,
		SlotSize:        m.SlotSize * f,
		CenterDiameter:  m.CenterDiameter * f,
		NumbersDistance: m.NumbersDistance * f,
		NumbersSize:     m.NumbersSize * f,
	}
}

// DiscCenter is the middle of a square raster of side PreviewWidth.
func (m Metrics) DiscCenter() Point {
	return Point{X: m.PreviewWidth / 2, Y: m.PreviewWidth / 2}
}
