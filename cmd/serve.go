package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clockface-studio/photoclock/internal/config"
	"github.com/clockface-studio/photoclock/internal/editor"
	"github.com/clockface-studio/photoclock/internal/handlers"
	"github.com/clockface-studio/photoclock/internal/images"
	"github.com/clockface-studio/photoclock/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the collage editor server",
		Long: `Starts the photoclock editor API on the specified port.

The server holds one editing session: uploads are assigned to ring slots
or the center, the preview regenerates after edits settle, and cart
orders are recorded in the ledger file.`,
		Example: `  # Start server on default port 8888
  photoclock serve

  # Start server on custom port with a config file
  photoclock serve --port 3000 --config photoclock.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			session, err := newServerSession(cfg)
			if err != nil {
				return err
			}
			defer session.Close()

			ledger, err := storage.OpenLedger(cfg.Server.LedgerPath)
			if err != nil {
				return fmt.Errorf("failed to open order ledger: %w", err)
			}

			handler := handlers.New(session, handlers.Options{
				UploadsDir:     cfg.Server.UploadsDir,
				ExportsDir:     cfg.Server.ExportsDir,
				StaticDir:      cfg.Server.StaticDir,
				Ledger:         ledger,
				Fetcher:        images.NewFetcher(cfg.Assets.FetchTimeout),
				MaxUploadBytes: cfg.Assets.MaxBytes,
				MaxImagePixels: cfg.Assets.MaxPixels,
			})

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("photoclock editor available", "addr", addr, "url", cfg.ServerOrigin())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8888, "Port to listen on")

	return cmd
}

func newServerSession(cfg config.Config) (*editor.Session, error) {
	fetcher := images.NewFetcher(cfg.Assets.FetchTimeout)
	fetcher.MaxBytes = cfg.Assets.MaxBytes
	fetcher.Mounts = map[string]string{
		handlers.UploadsURLPrefix: cfg.Server.UploadsDir,
		handlers.ExportsURLPrefix: cfg.Server.ExportsDir,
	}

	loader, err := images.NewLoader(fetcher, images.LoaderOptions{
		Origin:      cfg.ServerOrigin(),
		CacheSize:   cfg.Assets.CacheSize,
		Concurrency: cfg.Assets.Concurrency,
		MaxPixels:   cfg.Assets.MaxPixels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image loader: %w", err)
	}

	return editor.NewSession(editor.SessionConfig{
		PreviewWidth:  cfg.Preview.Width,
		PreviewDelay:  cfg.Preview.Delay,
		PreviewScale:  cfg.Preview.Scale,
		SettleDelay:   cfg.Preview.SettleDelay,
		MinOutputSize: cfg.Export.MinOutputSize,
	}, loader), nil
}
