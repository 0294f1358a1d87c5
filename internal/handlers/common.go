package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/clockface-studio/photoclock/internal/capture"
	"github.com/clockface-studio/photoclock/internal/compose"
	"github.com/clockface-studio/photoclock/internal/editor"
	"github.com/clockface-studio/photoclock/internal/export"
	"github.com/clockface-studio/photoclock/internal/images"
	"github.com/clockface-studio/photoclock/internal/layout"
	"github.com/clockface-studio/photoclock/internal/storage"
)

// Options locates the directories and collaborators a Handler serves.
type Options struct {
	UploadsDir string
	ExportsDir string
	StaticDir  string

	// Ledger persists cart orders. Nil keeps orders in memory only.
	Ledger *storage.Ledger

	// Fetcher downloads images for URL uploads.
	Fetcher *images.Fetcher

	// MaxUploadBytes caps a single uploaded image.
	MaxUploadBytes int64

	// MaxImagePixels caps the declared width*height of an upload.
	MaxImagePixels int
}

type Handler struct {
	session    *editor.Session
	orderStore *storage.OrderStore
	ledger     *storage.Ledger
	fetcher    *images.Fetcher
	uploadsDir string
	exportsDir string
	staticDir  string
	maxUpload  int64
	maxPixels  int
}

func New(session *editor.Session, opts Options) *Handler {
	h := &Handler{
		session:    session,
		orderStore: storage.New(),
		ledger:     opts.Ledger,
		fetcher:    opts.Fetcher,
		uploadsDir: opts.UploadsDir,
		exportsDir: opts.ExportsDir,
		staticDir:  opts.StaticDir,
		maxUpload:  opts.MaxUploadBytes,
		maxPixels:  opts.MaxImagePixels,
	}
	if h.uploadsDir == "" {
		h.uploadsDir = "uploads"
	}
	if h.exportsDir == "" {
		h.exportsDir = "exports"
	}
	if h.staticDir == "" {
		h.staticDir = "static"
	}
	if h.fetcher == nil {
		h.fetcher = images.NewFetcher(0)
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 10 * 1024 * 1024
	}
	if h.maxPixels <= 0 {
		h.maxPixels = images.DefaultMaxPixels
	}

	if h.ledger != nil {
		for _, order := range h.ledger.Orders() {
			h.orderStore.Set(order.ID, &order)
		}
		slog.Info("Loaded cart orders", "count", len(h.orderStore.GetAll()), "ledger", h.ledger.Path())
	}
	return h
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeActionError maps an error from an editor, capture or export action
// to a status code.
func (h *Handler) writeActionError(w http.ResponseWriter, action string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, capture.ErrCaptureUnavailable), errors.Is(err, export.ErrExportUnavailable):
		code = http.StatusServiceUnavailable
	case errors.Is(err, layout.ErrSlotOutOfRange),
		errors.Is(err, layout.ErrInvalidColor),
		errors.Is(err, layout.ErrInvalidPayload),
		errors.Is(err, editor.ErrUnknownTarget):
		code = http.StatusBadRequest
	case errors.Is(err, capture.ErrRasterizationFailed), errors.Is(err, compose.ErrInvalidCanvas):
		code = http.StatusInternalServerError
	}
	slog.Error("Action failed", "action", action, "status", code, "error", err)
	http.Error(w, action+": "+err.Error(), code)
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// File operation helpers
func (h *Handler) ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
