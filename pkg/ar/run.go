package ar

import (
	"context"
	"errors"
	"io"
	"time"
)

// Frame is one captured camera image
type Frame struct {
	JPEG   []byte
	Width  int
	Height int
}

// FrameSource produces camera frames. Next blocks until a frame is
// available and returns io.EOF when the source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// FrameHook observes every frame together with the status it produced
type FrameHook func(Frame, Status)

// ErrNoDetector is returned by Run when the session has no detector
var ErrNoDetector = errors.New("ar: no marker detector")

// Run pulls frames from src, detects markers and ticks the session until
// ctx is cancelled or the source ends. A failed detection skips the tick.
// Ticks are at least Config.TickInterval apart.
func (s *Session) Run(ctx context.Context, src FrameSource, hook FrameHook) error {
	if s.detector == nil {
		return ErrNoDetector
	}

	var last time.Time
	for {
		if s.Closed() {
			return ErrClosed
		}
		if wait := s.cfg.TickInterval - time.Since(last); !last.IsZero() && wait > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
		}
		last = time.Now()

		frame, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		if frame.Width > 0 && frame.Height > 0 {
			s.SetSourceSize(float64(frame.Width), float64(frame.Height))
		}

		markers, err := s.detector.Detect(frame.JPEG)
		if err != nil {
			s.log.Debug("detection failed, frame skipped", "error", err)
			continue
		}

		st := s.Tick(markers)
		if hook != nil {
			hook(frame, st)
		}
	}
}
