package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/clockface-studio/photoclock/internal/config"
	"github.com/clockface-studio/photoclock/internal/editor"
	"github.com/clockface-studio/photoclock/internal/export"
	"github.com/clockface-studio/photoclock/internal/images"
	"github.com/clockface-studio/photoclock/internal/layout"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	var format string
	var out string
	var previewWidth float64

	cmd := &cobra.Command{
		Use:   "render LAYOUT.json",
		Short: "Render a saved layout to a print JPEG or PDF",
		Long: `Renders a layout payload at print resolution (at least 4096px).

Relative image URLs in the layout resolve against the layout file's
directory.`,
		Example: `  # Print PDF
  photoclock render layout.json --format pdf --out clock.pdf

  # Full resolution JPEG from a layout designed at 480px
  photoclock render layout.json --format jpeg --out clock.jpg --preview-width 480`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "pdf" && format != "jpeg" && format != "jpg" {
				return fmt.Errorf("unsupported format %q (supported: pdf, jpeg)", format)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("preview-width") {
				cfg.Preview.Width = previewWidth
			}

			session, err := openLayoutSession(cfg, args[0])
			if err != nil {
				return err
			}
			defer session.Close()

			result, err := session.Export.Render(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to render layout: %w", err)
			}

			var buf bytes.Buffer
			if format == "pdf" {
				var jpegBuf bytes.Buffer
				if err := export.EncodeJPEG(&jpegBuf, result.Image, export.PDFQuality); err != nil {
					return err
				}
				if err := export.EncodePDF(&buf, jpegBuf.Bytes(), result.WidthMM, result.HeightMM); err != nil {
					return err
				}
			} else if err := export.EncodeJPEG(&buf, result.Image, export.DownloadQuality); err != nil {
				return err
			}

			if out == "" {
				out = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + "." + strings.Replace(format, "jpeg", "jpg", 1)
			}
			if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}

			slog.Info("Layout rendered", "out", out, "size_px", result.SizePx, "width_mm", fmt.Sprintf("%.1f", result.WidthMM))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "pdf", "Output format (pdf or jpeg)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to the layout name)")
	cmd.Flags().Float64Var(&previewWidth, "preview-width", layout.DefaultPreviewWidth, "Preview width the layout was designed at")

	return cmd
}

// openLayoutSession creates a session hydrated from a layout file. The live
// preview stays suspended since nothing displays it.
func openLayoutSession(cfg config.Config, layoutPath string) (*editor.Session, error) {
	data, err := os.ReadFile(layoutPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}

	state, err := layout.UnmarshalPayload(data, cfg.Preview.Width)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	fetcher := images.NewFetcher(cfg.Assets.FetchTimeout)
	fetcher.BaseDir = filepath.Dir(layoutPath)
	fetcher.MaxBytes = cfg.Assets.MaxBytes
	loader, err := images.NewLoader(fetcher, images.LoaderOptions{
		Origin:      cfg.Server.Origin,
		Concurrency: cfg.Assets.Concurrency,
		MaxPixels:   cfg.Assets.MaxPixels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image loader: %w", err)
	}

	session := editor.NewSession(editor.SessionConfig{
		PreviewWidth:  cfg.Preview.Width,
		PreviewScale:  cfg.Preview.Scale,
		SettleDelay:   cfg.Preview.SettleDelay,
		MinOutputSize: cfg.Export.MinOutputSize,
	}, loader)
	session.Preview.Suspend()

	if err := session.Editor.Hydrate(state.Payload()); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}
