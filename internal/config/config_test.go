package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Error("exists should be false for a missing file")
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Session.ConfidenceThreshold != 3 {
		t.Errorf("threshold = %d, want 3", cfg.Session.ConfidenceThreshold)
	}
	if cfg.Session.KnownIDMin != 6 || cfg.Session.KnownIDMax != 31 {
		t.Errorf("known ids = [%d,%d], want [6,31]", cfg.Session.KnownIDMin, cfg.Session.KnownIDMax)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = "9000"

[session]
confidence_threshold = 5
reopen_delay_ms = 150

[supabase]
url = "https://example.supabase.co/"
key = "anon"
`)

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Error("exists should be true")
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Session.ConfidenceThreshold != 5 {
		t.Errorf("threshold = %d", cfg.Session.ConfidenceThreshold)
	}
	if cfg.Session.ReopenDelay() != 150*time.Millisecond {
		t.Errorf("reopen delay = %v", cfg.Session.ReopenDelay())
	}
	if cfg.Supabase.URL != "https://example.supabase.co" {
		t.Errorf("supabase url should be trimmed, got %q", cfg.Supabase.URL)
	}
	// untouched defaults survive a partial file
	if cfg.Camera.JPEGQuality != 80 {
		t.Errorf("jpeg quality = %d, want default 80", cfg.Camera.JPEGQuality)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("SUPABASE_KEY", "env-key")
	t.Setenv("AUTOMATAR_PORT", "7070")

	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Supabase.URL != "https://env.supabase.co" || cfg.Supabase.Key != "env-key" {
		t.Errorf("supabase = %+v", cfg.Supabase)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if !cfg.Supabase.Enabled() {
		t.Error("supabase should be enabled")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero threshold", "[session]\nconfidence_threshold = 0\n", "confidence_threshold"},
		{"inverted range", "[session]\nknown_id_min = 10\nknown_id_max = 2\n", "known_id"},
		{"url without key", "[supabase]\nurl = \"https://x.supabase.co\"\n", "supabase.key"},
		{"bad quality", "[camera]\njpeg_quality = 0\n", "jpeg_quality"},
		{"bad toml", "[session\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestSession_KnownIDs(t *testing.T) {
	s := Session{KnownIDMin: 6, KnownIDMax: 9}
	ids := s.KnownIDs()
	if len(ids) != 4 || ids[0] != 6 || ids[3] != 9 {
		t.Errorf("KnownIDs = %v", ids)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := expandPath("~/.automatar")
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if got != filepath.Join(home, ".automatar") {
		t.Errorf("expandPath = %q", got)
	}
}
