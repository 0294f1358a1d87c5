package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/clockface-studio/photoclock/internal/capture"
	"github.com/clockface-studio/photoclock/internal/export"
	"github.com/spf13/cobra"
)

func newPreviewCmd() *cobra.Command {
	var out string
	var scale float64
	var printMode bool

	cmd := &cobra.Command{
		Use:   "preview LAYOUT.json",
		Short: "Capture a layout the way the editor preview shows it",
		Example: `  photoclock preview layout.json --out preview.png
  photoclock preview layout.json --out clean.png --scale 2 --print`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scale <= 0 {
				return fmt.Errorf("scale must be positive, got %v", scale)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			session, err := openLayoutSession(cfg, args[0])
			if err != nil {
				return err
			}
			defer session.Close()

			img, err := session.Capture.Capture(cmd.Context(), scale, capture.Options{PrintMode: printMode})
			if err != nil {
				return fmt.Errorf("failed to capture preview: %w", err)
			}

			var buf bytes.Buffer
			if err := export.EncodePNG(&buf, img); err != nil {
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}

			slog.Info("Preview captured", "out", out, "width", img.Bounds().Dx(), "print", printMode)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "preview.png", "Output PNG file")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Capture scale relative to the preview width")
	cmd.Flags().BoolVar(&printMode, "print", false, "Hide empty-frame guides")

	return cmd
}
