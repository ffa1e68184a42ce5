package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/kvstore"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_KEY", "")
	t.Setenv("AUTOMATAR_PREFS_DIR", "")

	dir := t.TempDir()
	prefs := filepath.Join(dir, "prefs")
	path := filepath.Join(dir, "config.toml")
	body := "[storage]\nprefs_dir = \"" + prefs + "\"\n\n[logging]\nlevel = \"error\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, prefs
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScenariosCommand(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "scenarios")
	if err != nil {
		t.Fatalf("scenarios: %v", err)
	}
	for _, want := range []string{"Cam-A", "Gear-C", "sea_models/dolphin.stl"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "--config", cfgPath, "scenarios", "--yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "direct_models:") {
		t.Errorf("yaml output = %s", out)
	}
}

func TestPrefsCommands(t *testing.T) {
	cfgPath, prefsDir := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "prefs", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No preferences stored") {
		t.Errorf("empty list = %q", out)
	}

	store, err := kvstore.NewFileStore(prefsDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(animation.PreferencesKey, []byte(`{"5":"B","9":"X"}`)); err != nil {
		t.Fatal(err)
	}

	out, err = run(t, "--config", cfgPath, "prefs", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "B") || !strings.Contains(out, "X") {
		t.Errorf("list = %s", out)
	}

	if _, err := run(t, "--config", cfgPath, "prefs", "reset"); err == nil {
		t.Error("reset without ids should fail")
	}
	if _, err := run(t, "--config", cfgPath, "prefs", "reset", "abc"); err == nil {
		t.Error("reset with a bad id should fail")
	}

	out, err = run(t, "--config", cfgPath, "prefs", "reset", "5")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Removed 1") {
		t.Errorf("reset = %q", out)
	}

	prefs := animation.NewPreferences(store)
	if err := prefs.Load(); err != nil {
		t.Fatal(err)
	}
	if _, ok := prefs.Get(5); ok || prefs.Len() != 1 {
		t.Errorf("prefs after reset = %v", prefs.All())
	}

	if out, err = run(t, "--config", cfgPath, "prefs", "reset", "--all"); err != nil || !strings.Contains(out, "Removed 1") {
		t.Errorf("reset --all = %q, %v", out, err)
	}
}

func TestAnimationsListWithoutBackend(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	if _, err := run(t, "--config", cfgPath, "animations", "list"); !errors.Is(err, errNoCatalogBackend) {
		t.Errorf("error = %v, want errNoCatalogBackend", err)
	}
}

func TestAnimationsRefresh(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/animations/refresh" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"animations":4,"loaded":true}`))
	}))
	defer srv.Close()

	out, err := run(t, "--config", cfgPath, "animations", "refresh", "--server", srv.URL)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !strings.Contains(out, "4 animations") {
		t.Errorf("output = %q", out)
	}
}

func fakeSupabase(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/animations" || r.Header.Get("apikey") != "anon" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodPost:
			var row map[string]any
			if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			calls = append(calls, "insert "+row["name"].(string))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode([]map[string]any{row})
		case http.MethodDelete:
			calls = append(calls, "delete "+r.URL.Query().Get("id"))
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method", http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)

	t.Setenv("SUPABASE_URL", srv.URL)
	t.Setenv("SUPABASE_KEY", "anon")
	return srv, &calls
}

func TestAnimationsSave(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, calls := fakeSupabase(t)

	dir := t.TempDir()
	good := filepath.Join(dir, "wave.json")
	row := `{"id":"w1","name":"Wave","frame_rate":4,"marker_tags":["5",7],"frame_urls":[{"url":"https://cdn/w0.png"}]}`
	if err := os.WriteFile(good, []byte(row), 0o644); err != nil {
		t.Fatal(err)
	}
	noFrames := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(noFrames, []byte(`{"name":"Empty","marker_tags":[5]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", cfgPath, "animations", "save", good)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.Contains(out, "Saved animation w1 (Wave)") {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, "--config", cfgPath, "animations", "save", noFrames); err == nil {
		t.Error("a row without frames should be rejected")
	}
	if _, err := run(t, "--config", cfgPath, "animations", "save", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("a missing file should fail")
	}
	if len(*calls) != 1 || (*calls)[0] != "insert Wave" {
		t.Errorf("calls = %v", *calls)
	}
}

func TestAnimationsDelete(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, calls := fakeSupabase(t)

	out, err := run(t, "--config", cfgPath, "animations", "delete", "w1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "Deleted animation w1") {
		t.Errorf("output = %q", out)
	}
	if len(*calls) != 1 || (*calls)[0] != "delete eq.w1" {
		t.Errorf("calls = %v", *calls)
	}

	if _, err := run(t, "--config", cfgPath, "animations", "delete"); err == nil {
		t.Error("delete without an id should fail")
	}
}

func TestPrefsResetThroughServer(t *testing.T) {
	cfgPath, prefsDir := writeConfig(t)

	store, err := kvstore.NewFileStore(prefsDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(animation.PreferencesKey, []byte(`{"5":"B"}`)); err != nil {
		t.Fatal(err)
	}

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.NotFound(w, r)
			return
		}
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/markers/9/preference" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"session closed"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := run(t, "--config", cfgPath, "prefs", "reset", "--server", srv.URL, "5")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out, "Reset 1 marker(s)") {
		t.Errorf("output = %q", out)
	}
	if len(paths) != 1 || paths[0] != "/api/markers/5/preference" {
		t.Errorf("paths = %v", paths)
	}

	// the file belongs to the server while it runs
	prefs := animation.NewPreferences(store)
	if err := prefs.Load(); err != nil {
		t.Fatal(err)
	}
	if _, ok := prefs.Get(5); !ok {
		t.Error("reset through the server must not edit the file")
	}

	_, err = run(t, "--config", cfgPath, "prefs", "reset", "--server", srv.URL, "9")
	if err == nil || !strings.Contains(err.Error(), "session closed") {
		t.Errorf("error = %v, want server message", err)
	}
}

func TestRenderAnimations(t *testing.T) {
	out := renderAnimations([]animation.Animation{
		{ID: "a1", Name: "Wave", Tags: []int{5, 7}, Frames: make([]animation.Frame, 3)},
	})
	for _, want := range []string{"a1", "Wave", "5,7", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
