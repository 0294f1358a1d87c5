// Package editor owns the layout of the single editing session and
// funnels every change through one path.
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/clockface-studio/photoclock/internal/layout"
	"github.com/clockface-studio/photoclock/internal/surface"
)

var ErrUnknownTarget = errors.New("unknown target")

// Target names a placement: a ring slot, or the center when Slot is 0.
type Target struct {
	Slot int
}

var Center = Target{}

// ParseTarget accepts "slot-N", a bare slot number, or "center".
func ParseTarget(s string) (Target, error) {
	if s == surface.CenterID {
		return Center, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		s = surface.SlotID(n)
	}
	index, err := surface.ParseID(s)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
	return Target{Slot: index}, nil
}

func (t Target) IsCenter() bool {
	return t.Slot == 0
}

func (t Target) String() string {
	if t.IsCenter() {
		return surface.CenterID
	}
	return surface.SlotID(t.Slot)
}

// Updater is notified after every committed change.
type Updater interface {
	RequestUpdate()
}

// Settings is a partial update of the layout-wide options. Nil fields are
// left alone.
type Settings struct {
	Color       *string              `json:"color,omitempty"`
	RingSize    *float64             `json:"ring_size,omitempty"`
	ShowNumbers *bool                `json:"show_numbers,omitempty"`
	Numbers     *layout.NumbersStyle `json:"numbers,omitempty"`
}

// Editor serialises layout mutations. Each one is applied to a copy and
// committed only if it succeeds; the surface and the preview are then told.
type Editor struct {
	mu      sync.Mutex
	state   layout.State
	payload []byte
	surface surface.Adapter
	preview Updater
}

// New creates an editor around an initial state.
func New(state layout.State, surf surface.Adapter) *Editor {
	e := &Editor{state: state, surface: surf}
	e.publishLocked()
	return e
}

// SetPreview registers the live preview.
func (e *Editor) SetPreview(u Updater) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.preview = u
}

// Snapshot returns a copy of the current layout.
func (e *Editor) Snapshot() layout.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SyncSurface re-lays the surface from the current layout and returns the
// snapshot it used. Both happen under the editor lock, so the surface never
// goes back to an older layout than the one last committed.
func (e *Editor) SyncSurface() layout.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.surface != nil {
		e.surface.Sync(e.state)
	}
	return e.state
}

func (e *Editor) Payload() layout.Payload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Payload()
}

// PayloadJSON returns the payload published by the last mutation.
func (e *Editor) PayloadJSON() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.payload...)
}

func (e *Editor) mutate(op string, fn func(s *layout.State) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state
	if err := fn(&next); err != nil {
		return err
	}
	e.state = next
	e.publishLocked()

	slog.Debug("Layout changed", "op", op)
	if e.preview != nil {
		e.preview.RequestUpdate()
	}
	return nil
}

func (e *Editor) publishLocked() {
	if e.surface != nil {
		e.surface.Sync(e.state)
	}
	data, err := json.Marshal(e.state)
	if err != nil {
		slog.Error("Failed to serialize layout", "error", err)
		return
	}
	e.payload = data
}

func (e *Editor) SetSlot(index int, t layout.ImageTransform) error {
	return e.mutate("set_slot", func(s *layout.State) error {
		return s.SetSlot(index, t)
	})
}

func (e *Editor) ClearSlot(index int) error {
	return e.mutate("clear_slot", func(s *layout.State) error {
		return s.ClearSlot(index)
	})
}

// Place sets the transform of any target.
func (e *Editor) Place(target Target, t layout.ImageTransform) error {
	if target.IsCenter() {
		e.SetCenter(t)
		return nil
	}
	return e.SetSlot(target.Slot, t)
}

// MoveImage pans a placement by dx, dy percent of its frame.
func (e *Editor) MoveImage(target Target, dx, dy float64) (layout.ImageTransform, error) {
	return e.adjust("move_image", target, func(t *layout.ImageTransform) {
		t.OffsetX += dx
		t.OffsetY += dy
	})
}

// ZoomImage sets the user zoom of a placement.
func (e *Editor) ZoomImage(target Target, scale float64) (layout.ImageTransform, error) {
	return e.adjust("zoom_image", target, func(t *layout.ImageTransform) {
		t.Scale = scale
	})
}

func (e *Editor) adjust(op string, target Target, fn func(t *layout.ImageTransform)) (layout.ImageTransform, error) {
	var out layout.ImageTransform
	err := e.mutate(op, func(s *layout.State) error {
		if target.IsCenter() {
			t := s.Center.Image
			fn(&t)
			s.SetCenter(t)
			out = s.Center.Image
			return nil
		}
		t, err := s.Slot(target.Slot)
		if err != nil {
			return err
		}
		fn(&t)
		if err := s.SetSlot(target.Slot, t); err != nil {
			return err
		}
		out, _ = s.Slot(target.Slot)
		return nil
	})
	return out, err
}

func (e *Editor) SetCenter(t layout.ImageTransform) {
	_ = e.mutate("set_center", func(s *layout.State) error {
		s.SetCenter(t)
		return nil
	})
}

// SetCenterDiameter returns the diameter actually applied.
func (e *Editor) SetCenterDiameter(d float64) float64 {
	var applied float64
	_ = e.mutate("set_center_diameter", func(s *layout.State) error {
		applied = s.SetCenterDiameter(d)
		return nil
	})
	return applied
}

func (e *Editor) SetRingSlotSize(size float64) float64 {
	var applied float64
	_ = e.mutate("set_ring_size", func(s *layout.State) error {
		applied = s.SetRingSlotSize(size)
		return nil
	})
	return applied
}

func (e *Editor) SetNumbers(n layout.NumbersStyle) error {
	return e.mutate("set_numbers", func(s *layout.State) error {
		return s.SetNumbers(n)
	})
}

func (e *Editor) SetColor(c string) error {
	return e.mutate("set_color", func(s *layout.State) error {
		return s.SetColor(c)
	})
}

// ApplySettings updates several options at once, all or nothing.
func (e *Editor) ApplySettings(in Settings) error {
	return e.mutate("apply_settings", func(s *layout.State) error {
		if in.Color != nil {
			if err := s.SetColor(*in.Color); err != nil {
				return err
			}
		}
		if in.RingSize != nil {
			s.SetRingSlotSize(*in.RingSize)
		}
		numbers := s.Numbers
		if in.Numbers != nil {
			numbers = *in.Numbers
			numbers.Enabled = s.Numbers.Enabled
		}
		if in.ShowNumbers != nil {
			numbers.Enabled = *in.ShowNumbers
		}
		return s.SetNumbers(numbers)
	})
}

// Resize follows a change of the preview area.
func (e *Editor) Resize(width float64) {
	_ = e.mutate("resize", func(s *layout.State) error {
		s.Resize(width)
		return nil
	})
}

// Hydrate replaces the whole layout from a payload, keeping the current
// preview width.
func (e *Editor) Hydrate(p layout.Payload) error {
	return e.mutate("hydrate", func(s *layout.State) error {
		next, err := layout.FromPayload(p, s.PreviewWidth)
		if err != nil {
			return err
		}
		*s = next
		return nil
	})
}
