// Package surface models the live presentation of a collage: one element
// per frame with its on-screen box and background styling.
package surface

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/clockface-studio/photoclock/internal/geometry"
	"github.com/clockface-studio/photoclock/internal/layout"
)

// ErrNotMounted is returned by Measure when nothing is displayed.
var ErrNotMounted = errors.New("surface not mounted")

// CenterID names the center element.
const CenterID = "center"

// SlotID names the element of ring slot index.
func SlotID(index int) string {
	return "slot-" + strconv.Itoa(index)
}

// ParseID is the inverse of SlotID. The center yields index 0.
func ParseID(id string) (int, error) {
	if id == CenterID {
		return 0, nil
	}
	rest, ok := strings.CutPrefix(id, "slot-")
	if !ok {
		return 0, fmt.Errorf("unknown element %q", id)
	}
	index, err := strconv.Atoi(rest)
	if err != nil || !layout.ValidSlot(index) {
		return 0, fmt.Errorf("unknown element %q", id)
	}
	return index, nil
}

// Adapter is what the compositor needs from a presentation surface.
type Adapter interface {
	Sync(s layout.State)
	Measure() (Geometry, error)
	SetPrintMode(on bool)
	Element(id string) (Element, bool)
	Mounted() bool
}

// Geometry is the measured size of the surface.
type Geometry struct {
	Width     float64 `json:"width"`
	PrintMode bool    `json:"print_mode"`
}

// Box is a pixel rectangle relative to the surface's top-left corner.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one circular frame as displayed.
type Element struct {
	ID  string `json:"id"`
	Box Box    `json:"box"`

	// Background mirrors CSS: size is a percentage of the cover-fit size,
	// position is a percentage with 50 meaning centered.
	BackgroundURL  string  `json:"background_url,omitempty"`
	BackgroundSize float64 `json:"background_size"`
	BackgroundX    float64 `json:"background_x"`
	BackgroundY    float64 `json:"background_y"`

	// Guide is set for empty frames showing their dashed placeholder.
	Guide bool `json:"guide"`

	// Data carries the transform the way data attributes do in a DOM.
	Data layout.ImageTransform `json:"data"`
}

// Model is an in-memory Adapter. A browser front end renders its JSON.
type Model struct {
	mu        sync.RWMutex
	mounted   bool
	width     float64
	printMode bool
	order     []string
	elements  map[string]*Element
}

// NewModel returns an unmounted surface.
func NewModel() *Model {
	m := &Model{elements: make(map[string]*Element, geometry.SlotCount+1)}
	for i := 1; i <= geometry.SlotCount; i++ {
		m.addElement(SlotID(i))
	}
	m.addElement(CenterID)
	return m
}

func (m *Model) addElement(id string) {
	m.order = append(m.order, id)
	m.elements[id] = &Element{ID: id, BackgroundSize: 100, BackgroundX: 50, BackgroundY: 50, Guide: true}
}

// Mount makes the surface available at the given width.
func (m *Model) Mount(width float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mounted = true
	m.width = width
}

// Unmount makes every later Measure fail.
func (m *Model) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mounted = false
}

func (m *Model) Mounted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mounted
}

// Sync lays out every element from s. It is the only routine that writes
// element boxes and backgrounds.
func (m *Model) Sync(s layout.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.width = s.PreviewWidth
	metrics := s.Metrics()
	disc := metrics.DiscCenter()

	for _, slot := range s.Slots {
		center := geometry.SlotCenter(slot.Index, metrics.RingRadius, disc)
		m.apply(m.elements[SlotID(slot.Index)], center, metrics.SlotSize, slot.Image)
	}
	m.apply(m.elements[CenterID], disc, metrics.CenterDiameter, s.Center.Image)
}

func (m *Model) apply(el *Element, center geometry.Point, d float64, t layout.ImageTransform) {
	el.Box = Box{Left: center.X - d/2, Top: center.Y - d/2, Width: d, Height: d}
	el.Data = t
	el.BackgroundURL = t.SourceURL
	el.BackgroundSize = t.Scale * 100
	el.BackgroundX = 50 + t.OffsetX
	el.BackgroundY = 50 + t.OffsetY
	el.Guide = t.IsEmpty() && !m.printMode
}

// SetPrintMode swaps print styling in or out. Print mode hides guides.
func (m *Model) SetPrintMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.printMode = on
	for _, el := range m.elements {
		el.Guide = el.Data.IsEmpty() && !on
	}
}

func (m *Model) PrintMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.printMode
}

// Measure reports the current surface geometry.
func (m *Model) Measure() (Geometry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.mounted {
		return Geometry{}, ErrNotMounted
	}
	return Geometry{Width: m.width, PrintMode: m.printMode}, nil
}

// Element returns a copy of the element with the given id.
func (m *Model) Element(id string) (Element, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	el, ok := m.elements[id]
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// SetElementData overwrites an element's data attributes without going
// through Sync. Clients that edit the surface directly use it.
func (m *Model) SetElementData(id string, t layout.ImageTransform) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.elements[id]
	if !ok {
		return fmt.Errorf("unknown element %q", id)
	}
	el.Data = t
	el.BackgroundURL = t.SourceURL
	return nil
}

// Elements returns copies of all elements, ring slots first.
func (m *Model) Elements() []Element {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Element, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.elements[id])
	}
	return out
}

type modelJSON struct {
	Mounted   bool      `json:"mounted"`
	Width     float64   `json:"width"`
	PrintMode bool      `json:"print_mode"`
	Elements  []Element `json:"elements"`
}

func (m *Model) MarshalJSON() ([]byte, error) {
	elements := m.Elements()

	m.mu.RLock()
	doc := modelJSON{
		Mounted:   m.mounted,
		Width:     m.width,
		PrintMode: m.printMode,
		Elements:  elements,
	}
	m.mu.RUnlock()

	return json.Marshal(doc)
}
