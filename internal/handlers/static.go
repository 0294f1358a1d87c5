package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
)

func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/static/")
	path = strings.TrimPrefix(path, "/")

	// Prevent directory traversal attacks
	if strings.Contains(path, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	switch {
	case strings.HasPrefix(path, "uploads/"):
		http.ServeFile(w, r, filepath.Join(h.uploadsDir, strings.TrimPrefix(path, "uploads/")))
		return
	case strings.HasPrefix(path, "exports/"):
		http.ServeFile(w, r, filepath.Join(h.exportsDir, strings.TrimPrefix(path, "exports/")))
		return
	}

	if path == "" {
		path = "index.html"
	}

	// Set appropriate content type based on file extension
	switch {
	case strings.HasSuffix(path, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(path, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	case strings.HasSuffix(path, ".html"):
		w.Header().Set("Content-Type", "text/html")
	}

	http.ServeFile(w, r, filepath.Join(h.staticDir, filepath.FromSlash(path)))
}
