package editor

import (
	"time"

	"github.com/clockface-studio/photoclock/internal/capture"
	"github.com/clockface-studio/photoclock/internal/export"
	"github.com/clockface-studio/photoclock/internal/images"
	"github.com/clockface-studio/photoclock/internal/layout"
	"github.com/clockface-studio/photoclock/internal/preview"
	"github.com/clockface-studio/photoclock/internal/surface"
)

// SessionConfig sizes and tunes a Session.
type SessionConfig struct {
	PreviewWidth  float64
	PreviewDelay  time.Duration
	PreviewScale  float64
	SettleDelay   time.Duration
	MinOutputSize int
}

// Session wires the editor to its surface, preview and export paths.
type Session struct {
	Editor  *Editor
	Surface *surface.Model
	Loader  *images.Loader
	Capture *capture.Pipeline
	Preview *preview.Scheduler
	Export  *export.Renderer
}

// NewSession creates a mounted session with an empty layout. A nil loader
// gets an uncached one with no same-origin fallback.
func NewSession(cfg SessionConfig, loader *images.Loader) *Session {
	if loader == nil {
		loader, _ = images.NewLoader(nil, images.LoaderOptions{})
	}

	surf := surface.NewModel()
	surf.Mount(cfg.PreviewWidth)

	ed := New(layout.New(cfg.PreviewWidth), surf)

	pipeline := capture.New(surf, ed.SyncSurface, loader, nil)
	if cfg.SettleDelay > 0 {
		pipeline.SettleDelay = cfg.SettleDelay
	}

	sched := preview.NewScheduler(pipeline, preview.Options{
		Delay: cfg.PreviewDelay,
		Scale: cfg.PreviewScale,
	})
	pipeline.SetLivePreview(sched)
	ed.SetPreview(sched)

	renderer := export.NewRenderer(surf, ed.Snapshot, loader)
	renderer.MinOutputSize = cfg.MinOutputSize

	// an empty disc still shows its border and numbers
	sched.RequestUpdate()

	return &Session{
		Editor:  ed,
		Surface: surf,
		Loader:  loader,
		Capture: pipeline,
		Preview: sched,
		Export:  renderer,
	}
}

// Close stops background preview work.
func (s *Session) Close() {
	s.Preview.Stop()
}
