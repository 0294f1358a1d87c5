package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/clockface-studio/photoclock/internal/editor"
	"github.com/clockface-studio/photoclock/internal/layout"
)

func (h *Handler) writeLayout(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(h.session.Editor.PayloadJSON()); err != nil {
		slog.Error("Unable to write layout", "err", err)
	}
}

func (h *Handler) HandleLayout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeLayout(w)
	case "PUT":
		var payload layout.Payload
		if !h.decodeJSON(w, r, &payload) {
			return
		}
		if err := h.session.Editor.Hydrate(payload); err != nil {
			h.writeActionError(w, "hydrate layout", err)
			return
		}
		h.writeLayout(w)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleLayoutSlot(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/layout/slots/")
	index, err := strconv.Atoi(raw)
	if err != nil {
		h.writeError(w, "Invalid slot: "+raw, http.StatusBadRequest)
		return
	}

	switch r.Method {
	case "PUT":
		var t layout.ImageTransform
		if !h.decodeJSON(w, r, &t) {
			return
		}
		if err := h.session.Editor.SetSlot(index, t); err != nil {
			h.writeActionError(w, "set slot", err)
			return
		}
	case "DELETE":
		if err := h.session.Editor.ClearSlot(index); err != nil {
			h.writeActionError(w, "clear slot", err)
			return
		}
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeLayout(w)
}

func (h *Handler) HandleLayoutCenter(w http.ResponseWriter, r *http.Request) {
	if r.Method != "PUT" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var center layout.CenterPayload
	if !h.decodeJSON(w, r, &center) {
		return
	}
	h.session.Editor.SetCenter(center.ImageTransform)
	if center.Size > 0 {
		h.session.Editor.SetCenterDiameter(center.Size)
	}
	h.writeLayout(w)
}

func (h *Handler) HandleLayoutSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != "PUT" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var settings editor.Settings
	if !h.decodeJSON(w, r, &settings) {
		return
	}
	if err := h.session.Editor.ApplySettings(settings); err != nil {
		h.writeActionError(w, "apply settings", err)
		return
	}
	h.writeLayout(w)
}

// HandleLayoutMove pans a placement by {dx, dy}, or zooms it when a scale
// is given.
func (h *Handler) HandleLayoutMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Target string   `json:"target"`
		DX     float64  `json:"dx"`
		DY     float64  `json:"dy"`
		Scale  *float64 `json:"scale"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}

	target, err := editor.ParseTarget(request.Target)
	if err != nil {
		h.writeActionError(w, "move image", err)
		return
	}

	var t layout.ImageTransform
	if request.Scale != nil {
		t, err = h.session.Editor.ZoomImage(target, *request.Scale)
	} else {
		t, err = h.session.Editor.MoveImage(target, request.DX, request.DY)
	}
	if err != nil {
		h.writeActionError(w, "move image", err)
		return
	}

	h.writeJSON(w, map[string]any{
		"target":    target.String(),
		"transform": t,
	})
}

func (h *Handler) HandleLayoutResize(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Width float64 `json:"width"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.Width <= 0 {
		h.writeError(w, "width must be positive", http.StatusBadRequest)
		return
	}

	h.session.Editor.Resize(request.Width)
	h.writeLayout(w)
}

func (h *Handler) HandleSurface(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.session.Surface)
}
