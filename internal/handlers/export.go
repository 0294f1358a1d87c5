package handlers

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/clockface-studio/photoclock/internal/capture"
	"github.com/clockface-studio/photoclock/internal/export"
)

// HandlePreview serves the live preview PNG. While the preview is a
// placeholder it answers 204. With ?wait=1 it first waits for pending
// regeneration to settle.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Query().Get("wait") != "" {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		err := h.session.Preview.Wait(ctx)
		cancel()
		if err != nil {
			slog.Warn("Preview wait interrupted", "error", err)
		}
	}

	current := h.session.Preview.Current()
	w.Header().Set("X-Preview-Version", strconv.Itoa(current.Version))
	if current.Placeholder {
		if current.Err != nil {
			w.Header().Set("X-Preview-Error", current.Err.Error())
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	etag := `"` + current.ETag + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(current.PNG); err != nil {
		slog.Error("Unable to write preview", "err", err)
	}
}

// HandleExportJPEG captures the surface at download scale in print mode.
func (h *Handler) HandleExportJPEG(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := h.captureJPEG(r.Context(), export.DownloadScale, export.DownloadQuality)
	if err != nil {
		h.writeActionError(w, "export jpeg", err)
		return
	}

	writeAttachment(w, "image/jpeg", "photoclock.jpg", data)
}

// HandleExportPDF renders the print raster and wraps it in a PDF.
func (h *Handler) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, _, err := h.renderPDF(r.Context())
	if err != nil {
		h.writeActionError(w, "export pdf", err)
		return
	}

	writeAttachment(w, "application/pdf", "photoclock.pdf", data)
}

func (h *Handler) captureJPEG(ctx context.Context, scale, quality float64) ([]byte, error) {
	img, err := h.session.Capture.Capture(ctx, scale, capture.Options{
		PrintMode:          true,
		SuspendLivePreview: true,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.EncodeJPEG(&buf, img, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *Handler) renderPDF(ctx context.Context) ([]byte, export.Result, error) {
	result, err := h.session.Export.Render(ctx)
	if err != nil {
		return nil, export.Result{}, err
	}

	var jpegBuf bytes.Buffer
	if err := export.EncodeJPEG(&jpegBuf, result.Image, export.PDFQuality); err != nil {
		return nil, export.Result{}, err
	}

	var pdfBuf bytes.Buffer
	if err := export.EncodePDF(&pdfBuf, jpegBuf.Bytes(), result.WidthMM, result.HeightMM); err != nil {
		return nil, export.Result{}, err
	}

	slog.Info("PDF rendered", "size_px", result.SizePx, "width_mm", result.WidthMM, "bytes", pdfBuf.Len())
	return pdfBuf.Bytes(), result, nil
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Error("Unable to write attachment", "filename", filename, "err", err)
	}
}
