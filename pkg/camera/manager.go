package camera

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/automatar/internal/log"
)

// Applier pushes a configuration to an open device. *Capture implements it.
type Applier interface {
	Apply(cfg Config) error
}

// Manager owns the capture settings shared by the serve loop and the
// camera API. Updates are validated and applied to the attached device
// before they become current.
type Manager struct {
	mu      sync.RWMutex
	cfg     Config
	applier Applier
	log     *slog.Logger
}

// NewManager creates a manager starting from cfg
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, log: log.With("component", "camera")}
}

// Attach sets the device that later updates are pushed to
func (m *Manager) Attach(a Applier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applier = a
}

// Config returns the current settings
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// UsePreset replaces the settings with a named preset, keeping the device
func (m *Manager) UsePreset(name string) error {
	_, err := m.Update(map[string]any{"preset": name})
	return err
}

// Update merges params into the current settings. A "preset" key is
// applied first; the remaining keys use the Config JSON names. The device
// index cannot change through an update.
func (m *Manager) Update(params map[string]any) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cfg
	fields := make(map[string]any, len(params))
	for k, v := range params {
		fields[k] = v
	}

	if v, ok := fields["preset"]; ok {
		name, _ := v.(string)
		preset := GetPreset(name)
		if preset == nil {
			return m.cfg, fmt.Errorf("unknown preset: %v", v)
		}
		next = *preset
		next.Device = m.cfg.Device
		delete(fields, "preset")
	}

	if len(fields) > 0 {
		raw, err := json.Marshal(fields)
		if err != nil {
			return m.cfg, fmt.Errorf("encode camera params: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&next); err != nil {
			return m.cfg, fmt.Errorf("invalid camera params: %w", err)
		}
	}

	if next.Device != m.cfg.Device {
		return m.cfg, fmt.Errorf("camera device cannot change at runtime (%d -> %d)", m.cfg.Device, next.Device)
	}
	if errs := next.Validate(); len(errs) > 0 {
		return m.cfg, fmt.Errorf("validation failed: %v", errs)
	}

	if m.applier != nil {
		if err := m.applier.Apply(next); err != nil {
			return m.cfg, fmt.Errorf("apply camera config: %w", err)
		}
	}
	m.cfg = next
	m.log.Info("camera config updated", "width", next.Width, "height", next.Height, "fps", next.Framerate, "mirror", next.Mirror)
	return next, nil
}

// Settings returns the current settings plus the capture limits, in the
// shape served by the camera API.
func (m *Manager) Settings() map[string]any {
	cfg := m.Config()
	return map[string]any{
		"config":       cfg,
		"capabilities": Capabilities(),
	}
}
