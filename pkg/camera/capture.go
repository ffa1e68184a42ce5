package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/automatar/internal/log"
	"github.com/teslashibe/automatar/pkg/ar"
)

// ErrClosed is returned by Next after Close
var ErrClosed = errors.New("camera: closed")

// Capture reads frames from a local video device and encodes them as JPEG.
// It implements ar.FrameSource.
type Capture struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	img    gocv.Mat
	cfg    Config
	closed bool

	log *slog.Logger
}

// Open starts capturing from cfg.Device
func Open(cfg Config) (*Capture, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config: %v", errs)
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Device, err)
	}

	c := &Capture{
		vc:  vc,
		img: gocv.NewMat(),
		log: log.With("component", "camera", "device", cfg.Device),
	}
	c.apply(cfg)
	c.log.Info("camera opened", "width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)
	return c, nil
}

// Apply reconfigures the open device. Attach the capture to a Manager to
// receive runtime updates.
func (c *Capture) Apply(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if cfg.Device != c.cfg.Device {
		return fmt.Errorf("camera device cannot change while open (%d -> %d)", c.cfg.Device, cfg.Device)
	}
	c.apply(cfg)
	return nil
}

func (c *Capture) apply(cfg Config) {
	c.vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	c.vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	c.vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	if cfg.Brightness != 0 {
		c.vc.Set(gocv.VideoCaptureBrightness, cfg.Brightness)
	}
	if cfg.Exposure > 0 {
		c.vc.Set(gocv.VideoCaptureExposure, cfg.Exposure)
	}
	c.cfg = cfg
}

// Config returns the applied configuration
func (c *Capture) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Next reads one frame. A failed read is retried at the frame interval
// until ctx is done.
func (c *Capture) Next(ctx context.Context) (ar.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return ar.Frame{}, err
		}

		frame, ok, err := c.read()
		if err != nil {
			return ar.Frame{}, err
		}
		if ok {
			return frame, nil
		}

		c.log.Debug("empty camera read")
		select {
		case <-ctx.Done():
			return ar.Frame{}, ctx.Err()
		case <-time.After(c.interval()):
		}
	}
}

func (c *Capture) interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Second / time.Duration(c.cfg.Framerate)
}

func (c *Capture) read() (ar.Frame, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ar.Frame{}, false, ErrClosed
	}
	if ok := c.vc.Read(&c.img); !ok || c.img.Empty() {
		return ar.Frame{}, false, nil
	}
	if c.cfg.Mirror {
		gocv.Flip(c.img, &c.img, 1)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.img, []int{gocv.IMWriteJpegQuality, c.cfg.Quality})
	if err != nil {
		return ar.Frame{}, false, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return ar.Frame{JPEG: data, Width: c.img.Cols(), Height: c.img.Rows()}, true, nil
}

// Close releases the device
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.img.Close()
	return c.vc.Close()
}

var _ ar.FrameSource = (*Capture)(nil)
