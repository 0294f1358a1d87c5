// Package preview keeps a low-resolution rendering of the collage current
// while the layout is being edited.
package preview

import (
	"bytes"
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/clockface-studio/photoclock/internal/capture"
	"github.com/clockface-studio/photoclock/internal/coalesce"
	"github.com/clockface-studio/photoclock/internal/export"
	"github.com/clockface-studio/photoclock/internal/utils"
)

const (
	DefaultDelay   = 200 * time.Millisecond
	DefaultScale   = 1.0
	DefaultTimeout = 30 * time.Second
)

// Capturer is the snapshot pipeline as seen by the scheduler.
type Capturer interface {
	Capture(ctx context.Context, scale float64, opts capture.Options) (image.Image, error)
}

// Options configures a Scheduler.
type Options struct {
	Delay   time.Duration
	Scale   float64
	Timeout time.Duration
}

// Snapshot is the preview currently on display. With Placeholder set
// there is no image, and Err holds the last failure if any.
type Snapshot struct {
	PNG         []byte
	ETag        string
	Placeholder bool
	Err         error
	Version     int
	UpdatedAt   time.Time
}

// Scheduler regenerates the preview after bursts of edits.
type Scheduler struct {
	capturer Capturer
	scale    float64
	timeout  time.Duration
	task     *coalesce.Task

	mu      sync.RWMutex
	current Snapshot
}

// NewScheduler creates a scheduler that starts in the placeholder state.
func NewScheduler(c Capturer, opts Options) *Scheduler {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	s := &Scheduler{
		capturer: c,
		scale:    opts.Scale,
		timeout:  opts.Timeout,
		current:  Snapshot{Placeholder: true},
	}
	s.task = coalesce.New(opts.Delay, s.regenerate)
	return s
}

// RequestUpdate asks for a fresh preview. Calls are coalesced.
func (s *Scheduler) RequestUpdate() {
	s.task.Request()
}

func (s *Scheduler) Suspend() {
	s.task.Suspend()
}

func (s *Scheduler) Resume() {
	s.task.Resume()
}

// Wait blocks until no regeneration is pending or running.
func (s *Scheduler) Wait(ctx context.Context) error {
	return s.task.Wait(ctx)
}

func (s *Scheduler) Stop() {
	s.task.Stop()
}

// Stats exposes the underlying task counters.
func (s *Scheduler) Stats() coalesce.Stats {
	return s.task.Stats()
}

// Current returns the preview on display.
func (s *Scheduler) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Scheduler) regenerate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	img, err := s.capturer.Capture(ctx, s.scale, capture.Options{SuspendLivePreview: true})
	if err != nil {
		s.placeholder(err)
		return
	}

	var buf bytes.Buffer
	if err := export.EncodePNG(&buf, img); err != nil {
		s.placeholder(err)
		return
	}
	etag := utils.CalculateDataMD5(buf.Bytes())

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.Placeholder && s.current.ETag == etag {
		slog.Debug("Preview unchanged", "etag", etag)
		return
	}
	s.current = Snapshot{
		PNG:       buf.Bytes(),
		ETag:      etag,
		Version:   s.current.Version + 1,
		UpdatedAt: time.Now(),
	}
	slog.Debug("Preview updated", "etag", etag, "version", s.current.Version, "bytes", buf.Len())
}

func (s *Scheduler) placeholder(err error) {
	slog.Warn("Preview regeneration failed", "error", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Snapshot{
		Placeholder: true,
		Err:         err,
		Version:     s.current.Version + 1,
		UpdatedAt:   time.Now(),
	}
}
