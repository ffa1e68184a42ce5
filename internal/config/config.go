// Package config loads automatar configuration from a TOML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server configures the HTTP/websocket surface.
type Server struct {
	Port         string `toml:"port"`
	StaticDir    string `toml:"static_dir"`
	AllowOrigins string `toml:"allow_origins"`
}

// Camera configures the local capture device.
type Camera struct {
	Device      int  `toml:"device"`
	Width       int  `toml:"width"`
	Height      int  `toml:"height"`
	Framerate   int  `toml:"framerate"`
	JPEGQuality int  `toml:"jpeg_quality"`
	Stream      bool `toml:"stream"` // broadcast frames to /ws/camera
}

// Detector configures the ArUco marker detector.
type Detector struct {
	Dictionary string `toml:"dictionary"`
}

// Session holds the tunables of an AR session.
type Session struct {
	ConfidenceThreshold int     `toml:"confidence_threshold"`
	KnownIDMin          int     `toml:"known_id_min"`
	KnownIDMax          int     `toml:"known_id_max"`
	StaleAfterFrames    int     `toml:"stale_after_frames"`
	TickIntervalMs      int     `toml:"tick_interval_ms"`
	ReopenDelayMs       int     `toml:"reopen_delay_ms"`
	NoticeMs            int     `toml:"notice_ms"`
	OverlaySize         float64 `toml:"overlay_size"`
	DisplayWidth        float64 `toml:"display_width"`
	DisplayHeight       float64 `toml:"display_height"`
}

// Supabase configures the animation catalog backend.
type Supabase struct {
	URL            string `toml:"url"`
	Key            string `toml:"key"`
	Table          string `toml:"table"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Storage configures local durable state.
type Storage struct {
	PrefsDir string `toml:"prefs_dir"`
}

// Catalog points at an optional YAML scenario catalog.
type Catalog struct {
	Path string `toml:"path"`
}

// Logging configures the global logger.
type Logging struct {
	Level string `toml:"level"`
}

// Config is the full automatar configuration.
type Config struct {
	Server   Server   `toml:"server"`
	Camera   Camera   `toml:"camera"`
	Detector Detector `toml:"detector"`
	Session  Session  `toml:"session"`
	Supabase Supabase `toml:"supabase"`
	Storage  Storage  `toml:"storage"`
	Catalog  Catalog  `toml:"catalog"`
	Logging  Logging  `toml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: Server{
			Port:         "8080",
			StaticDir:    "./web",
			AllowOrigins: "*",
		},
		Camera: Camera{
			Device:      0,
			Width:       1280,
			Height:      720,
			Framerate:   30,
			JPEGQuality: 80,
			Stream:      true,
		},
		Detector: Detector{
			Dictionary: "4x4_50",
		},
		Session: Session{
			ConfidenceThreshold: 3,
			KnownIDMin:          6,
			KnownIDMax:          31,
			StaleAfterFrames:    0,
			TickIntervalMs:      33,
			ReopenDelayMs:       300,
			NoticeMs:            2000,
			OverlaySize:         200,
			DisplayWidth:        1280,
			DisplayHeight:       720,
		},
		Supabase: Supabase{
			Table:          "animations",
			TimeoutSeconds: 30,
		},
		Storage: Storage{
			PrefsDir: "~/.automatar",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads the config at path (or the default location when empty),
// applies environment overrides, normalizes and validates it.
// It returns the resolved path and whether a file was actually read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolvePath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolved, exists, nil
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() (string, error) {
	return expandPath("~/.config/automatar/config.toml")
}

func resolvePath(path string) (string, bool, error) {
	if path == "" {
		def, err := DefaultPath()
		if err != nil {
			return "", false, err
		}
		path = def
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// applyEnv overlays environment variables on top of file values.
func (c *Config) applyEnv() {
	c.Supabase.URL = EnvOr("SUPABASE_URL", c.Supabase.URL)
	c.Supabase.Key = EnvOr("SUPABASE_KEY", c.Supabase.Key)
	c.Server.Port = EnvOr("AUTOMATAR_PORT", c.Server.Port)
	c.Storage.PrefsDir = EnvOr("AUTOMATAR_PREFS_DIR", c.Storage.PrefsDir)
	c.Catalog.Path = EnvOr("AUTOMATAR_CATALOG", c.Catalog.Path)
	c.Logging.Level = EnvOr("LOG_LEVEL", c.Logging.Level)
	if v, ok := envInt("AUTOMATAR_CAMERA"); ok {
		c.Camera.Device = v
	}
}

func (c *Config) normalize() error {
	var err error
	if c.Storage.PrefsDir, err = expandPath(c.Storage.PrefsDir); err != nil {
		return fmt.Errorf("storage.prefs_dir: %w", err)
	}
	if c.Catalog.Path != "" {
		if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
			return fmt.Errorf("catalog.path: %w", err)
		}
	}
	c.Supabase.URL = strings.TrimRight(strings.TrimSpace(c.Supabase.URL), "/")
	if c.Supabase.Table == "" {
		c.Supabase.Table = "animations"
	}
	if c.Supabase.TimeoutSeconds <= 0 {
		c.Supabase.TimeoutSeconds = 30
	}
	if c.Session.OverlaySize <= 0 {
		c.Session.OverlaySize = 200
	}
	c.Detector.Dictionary = strings.ToLower(strings.TrimSpace(c.Detector.Dictionary))
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Session.ConfidenceThreshold < 1 {
		return fmt.Errorf("session.confidence_threshold must be >= 1, got %d", c.Session.ConfidenceThreshold)
	}
	if c.Session.KnownIDMin < 0 || c.Session.KnownIDMax < c.Session.KnownIDMin {
		return fmt.Errorf("session.known_id range [%d, %d] is invalid", c.Session.KnownIDMin, c.Session.KnownIDMax)
	}
	if c.Session.StaleAfterFrames < 0 {
		return errors.New("session.stale_after_frames must not be negative")
	}
	if c.Session.TickIntervalMs <= 0 {
		return errors.New("session.tick_interval_ms must be positive")
	}
	if c.Camera.JPEGQuality < 1 || c.Camera.JPEGQuality > 100 {
		return fmt.Errorf("camera.jpeg_quality must be 1-100, got %d", c.Camera.JPEGQuality)
	}
	if c.Supabase.URL != "" && !strings.HasPrefix(c.Supabase.URL, "http") {
		return fmt.Errorf("supabase.url must be an http(s) URL, got %q", c.Supabase.URL)
	}
	if c.Supabase.URL != "" && c.Supabase.Key == "" {
		return errors.New("supabase.key is required when supabase.url is set (or set SUPABASE_KEY)")
	}
	return nil
}

// TickInterval returns the session tick period.
func (s Session) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalMs) * time.Millisecond
}

// ReopenDelay returns the delay before the menu reopens after a reset.
func (s Session) ReopenDelay() time.Duration {
	return time.Duration(s.ReopenDelayMs) * time.Millisecond
}

// NoticeDuration returns how long transient notices stay visible.
func (s Session) NoticeDuration() time.Duration {
	return time.Duration(s.NoticeMs) * time.Millisecond
}

// KnownIDs lists the configured id range, inclusive.
func (s Session) KnownIDs() []int {
	ids := make([]int, 0, s.KnownIDMax-s.KnownIDMin+1)
	for id := s.KnownIDMin; id <= s.KnownIDMax; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Timeout returns the Supabase request timeout.
func (s Supabase) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Enabled reports whether a catalog backend is configured.
func (s Supabase) Enabled() bool {
	return s.URL != ""
}

// EnvOr returns the value of key, or fallback if unset or empty.
func EnvOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}
