package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clockface-studio/photoclock/internal/editor"
	"github.com/clockface-studio/photoclock/internal/layout"
)

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Check if this is a JSON request with image URL
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL string `json:"image_url"`
		Slot     string `json:"slot"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	target, ok := h.parseOptionalTarget(w, request.Slot)
	if !ok {
		return
	}

	imageData, filename, err := h.downloadImageFromURL(r.Context(), request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to process image URL: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.storeAndPlace(w, imageData, filename, target)
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	target, ok := h.parseOptionalTarget(w, r.FormValue("slot"))
	if !ok {
		return
	}

	fileData, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if int64(len(fileData)) > h.maxUpload {
		h.writeError(w, "File too large", http.StatusBadRequest)
		return
	}

	h.storeAndPlace(w, fileData, header.Filename, target)
}

func (h *Handler) parseOptionalTarget(w http.ResponseWriter, slot string) (*editor.Target, bool) {
	if slot == "" {
		return nil, true
	}
	target, err := editor.ParseTarget(slot)
	if err != nil {
		h.writeActionError(w, "upload", err)
		return nil, false
	}
	return &target, true
}

// storeAndPlace saves the image and, when a target was named, places it
// there with a neutral transform.
func (h *Handler) storeAndPlace(w http.ResponseWriter, data []byte, filename string, target *editor.Target) {
	upload, err := h.processImageFile(data, filename)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if target != nil {
		t := layout.ImageTransform{AttachmentRef: upload.AttachmentID, SourceURL: upload.URL, Scale: 1}
		if err := h.session.Editor.Place(*target, t); err != nil {
			h.writeActionError(w, "upload", err)
			return
		}
		upload.Slot = target.String()
		slog.Info("Upload placed", "target", upload.Slot, "url", upload.URL)
	}

	h.writeJSON(w, upload)
}
