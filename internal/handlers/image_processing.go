package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/clockface-studio/photoclock/internal/images"
	"github.com/clockface-studio/photoclock/internal/models"
	"github.com/clockface-studio/photoclock/internal/utils"
	_ "golang.org/x/image/webp"
)

// UploadsURLPrefix is where stored uploads are served.
const UploadsURLPrefix = "/static/uploads/"

// processImageFile stores an image under its content hash and reports its
// dimensions. Data that does not decode as an image is rejected.
func (h *Handler) processImageFile(fileData []byte, filename string) (*models.Upload, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(fileData))
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", err)
	}
	if err := images.CheckDimensions(cfg, h.maxPixels); err != nil {
		return nil, err
	}

	if err := h.ensureDir(h.uploadsDir); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	md5Hash := utils.CalculateDataMD5(fileData)
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 5 {
		ext = "." + format
	}
	imageFilename := md5Hash + ext
	imageFilePath := filepath.Join(h.uploadsDir, imageFilename)

	if err := os.WriteFile(imageFilePath, fileData, 0644); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	slog.Info("Image saved", "filename", imageFilename, "format", format, "width", cfg.Width, "height", cfg.Height)

	return &models.Upload{
		AttachmentID: md5Hash,
		URL:          UploadsURLPrefix + imageFilename,
		Filename:     imageFilename,
		Width:        cfg.Width,
		Height:       cfg.Height,
	}, nil
}

func (h *Handler) downloadImageFromURL(ctx context.Context, imageURL string) ([]byte, string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse image url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("image_url must be http or https")
	}

	imageData, err := h.fetcher.FetchBytes(ctx, u.String())
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}

	filename := path.Base(u.Path)
	if filename == "/" || filename == "." {
		filename = ""
	}
	return imageData, filename, nil
}
