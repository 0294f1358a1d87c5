package handlers

import (
	"log/slog"
	"net/http"
)

// Routes returns the HTTP surface of the editor.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload", h.HandleUpload)
	mux.HandleFunc("/api/layout", h.HandleLayout)
	mux.HandleFunc("/api/layout/slots/", h.HandleLayoutSlot)
	mux.HandleFunc("/api/layout/center", h.HandleLayoutCenter)
	mux.HandleFunc("/api/layout/settings", h.HandleLayoutSettings)
	mux.HandleFunc("/api/layout/move", h.HandleLayoutMove)
	mux.HandleFunc("/api/layout/resize", h.HandleLayoutResize)
	mux.HandleFunc("/api/surface", h.HandleSurface)
	mux.HandleFunc("/api/preview", h.HandlePreview)
	mux.HandleFunc("/api/export/jpeg", h.HandleExportJPEG)
	mux.HandleFunc("/api/export/pdf", h.HandleExportPDF)
	mux.HandleFunc("/api/cart", h.HandleCart)
	mux.HandleFunc("/api/cart/", h.HandleCartItem)
	mux.HandleFunc("/", h.HandleStatic)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}
