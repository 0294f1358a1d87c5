package layout

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CenterPayload is the center transform plus its diameter.
type CenterPayload struct {
	ImageTransform
	Size float64 `json:"size"`
}

// Payload is the wire format handed to export and cart collaborators.
type Payload struct {
	Color       string                    `json:"color"`
	Slots       map[string]ImageTransform `json:"slots"`
	Center      CenterPayload             `json:"center"`
	RingSize    float64                   `json:"ring_size"`
	ShowNumbers bool                      `json:"show_numbers"`
	Numbers     NumbersStyle              `json:"numbers"`
}

// Payload serializes the state.
func (s *State) Payload() Payload {
	p := Payload{
		Color:       s.Color,
		Slots:       make(map[string]ImageTransform, len(s.Slots)),
		Center:      CenterPayload{ImageTransform: s.Center.Image, Size: s.Center.Diameter},
		RingSize:    s.RingSlotSize,
		ShowNumbers: s.Numbers.Enabled,
		Numbers:     s.Numbers,
	}
	for _, slot := range s.Slots {
		p.Slots[strconv.Itoa(slot.Index)] = slot.Image
	}
	return p
}

// MarshalJSON encodes the state as its payload.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Payload())
}

// FromPayload rebuilds a state for the given preview width. Missing slots
// stay empty; unknown slot keys are rejected.
func FromPayload(p Payload, previewWidth float64) (State, error) {
	s := New(previewWidth)

	if p.Color != "" {
		if err := s.SetColor(p.Color); err != nil {
			return State{}, err
		}
	}

	for key, t := range p.Slots {
		index, err := strconv.Atoi(key)
		if err != nil {
			return State{}, fmt.Errorf("%w: slot key %q", ErrInvalidPayload, key)
		}
		if err := s.SetSlot(index, t); err != nil {
			return State{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}

	if p.RingSize > 0 {
		s.SetRingSlotSize(p.RingSize)
	}
	s.SetCenter(p.Center.ImageTransform)
	if p.Center.Size > 0 {
		s.SetCenterDiameter(p.Center.Size)
	}

	numbers := p.Numbers
	numbers.Enabled = p.ShowNumbers
	if err := s.SetNumbers(numbers); err != nil {
		return State{}, err
	}

	return s, nil
}

// UnmarshalPayload decodes JSON payload bytes into a state.
func UnmarshalPayload(data []byte, previewWidth float64) (State, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return FromPayload(p, previewWidth)
}
