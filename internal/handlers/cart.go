package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clockface-studio/photoclock/internal/export"
	"github.com/clockface-studio/photoclock/internal/models"
)

// ExportsURLPrefix is where cart artifacts are served.
const ExportsURLPrefix = "/static/exports/"

func (h *Handler) HandleCart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.orderStore.List())
	case "POST":
		h.addToCart(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleCartItem(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimPrefix(r.URL.Path, "/api/cart/")

	order, exists := h.orderStore.Get(orderID)
	if !exists {
		h.writeError(w, "Order not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case "GET":
		h.writeJSON(w, order)
	case "DELETE":
		if h.ledger != nil {
			if _, err := h.ledger.Remove(orderID); err != nil {
				h.writeError(w, "Failed to update ledger: "+err.Error(), http.StatusInternalServerError)
				return
			}
		}
		h.orderStore.Delete(orderID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// addToCart snapshots the current layout into an order: its payload, a
// thumbnail and the print PDF.
func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	payload := json.RawMessage(h.session.Editor.PayloadJSON())

	thumbnail, err := h.captureJPEG(r.Context(), export.ThumbnailScale, export.ThumbnailQuality)
	if err != nil {
		h.writeActionError(w, "cart thumbnail", err)
		return
	}

	pdf, result, err := h.renderPDF(r.Context())
	if err != nil {
		h.writeActionError(w, "cart pdf", err)
		return
	}

	if err := h.ensureDir(h.exportsDir); err != nil {
		h.writeError(w, "Failed to create exports directory: "+err.Error(), http.StatusInternalServerError)
		return
	}

	orderID := fmt.Sprintf("order_%d", time.Now().UnixNano())
	previewName := orderID + ".jpg"
	pdfName := orderID + ".pdf"

	if err := os.WriteFile(filepath.Join(h.exportsDir, previewName), thumbnail, 0644); err != nil {
		h.writeError(w, "Failed to save thumbnail: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(filepath.Join(h.exportsDir, pdfName), pdf, 0644); err != nil {
		h.writeError(w, "Failed to save pdf: "+err.Error(), http.StatusInternalServerError)
		return
	}

	order := &models.Order{
		ID:         orderID,
		Payload:    payload,
		PreviewRef: ExportsURLPrefix + previewName,
		PDFRef:     ExportsURLPrefix + pdfName,
		SizePx:     int64(result.SizePx),
		WidthMM:    result.WidthMM,
		HeightMM:   result.HeightMM,
		CreatedAt:  time.Now().UTC(),
	}

	if h.ledger != nil {
		if err := h.ledger.Append(*order); err != nil {
			h.writeError(w, "Failed to record order: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	h.orderStore.Set(orderID, order)

	slog.Info("Order added to cart", "order_id", orderID, "size_px", result.SizePx)
	h.writeJSON(w, order)
}
