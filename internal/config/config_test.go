package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/thesyncim/libgocapture/pkg/capture"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capturectl.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine != EngineScreenshot {
		t.Errorf("Engine = %q, want %q", cfg.Engine, EngineScreenshot)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.MaxFrames != 0 {
		t.Errorf("MaxFrames = %d, want 0", cfg.MaxFrames)
	}

	opts := cfg.Capture
	if opts.CursorCapture != nil || opts.DrawBorder != nil || opts.SecondaryWindow != nil ||
		opts.DirtyRegion != nil || opts.MinimumUpdateInterval != nil {
		t.Errorf("optional settings set without configuration: %+v", opts)
	}
	if opts.MonitorIndex != nil || opts.WindowName != nil || opts.WindowHandle != nil {
		t.Errorf("target set without configuration: %+v", opts)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
engine: native
shim_path: /opt/capture/libcapture_shim.so
log_level: debug
max_frames: 10
monitor_index: 2
cursor_capture: false
draw_border: true
minimum_update_interval_ms: 33
dirty_region: false
`)

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine != EngineNative || cfg.ShimPath != "/opt/capture/libcapture_shim.so" {
		t.Errorf("engine = %q shim = %q", cfg.Engine, cfg.ShimPath)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.MaxFrames != 10 {
		t.Errorf("log level = %v max frames = %d", cfg.LogLevel, cfg.MaxFrames)
	}

	opts := cfg.Capture
	if opts.MonitorIndex == nil || *opts.MonitorIndex != 2 {
		t.Errorf("MonitorIndex = %v, want 2", opts.MonitorIndex)
	}
	if opts.CursorCapture == nil || *opts.CursorCapture {
		t.Errorf("CursorCapture = %v, want explicit false", opts.CursorCapture)
	}
	if opts.DrawBorder == nil || !*opts.DrawBorder {
		t.Errorf("DrawBorder = %v, want true", opts.DrawBorder)
	}
	if opts.SecondaryWindow != nil {
		t.Errorf("SecondaryWindow = %v, want absent", *opts.SecondaryWindow)
	}
	if opts.MinimumUpdateInterval == nil || *opts.MinimumUpdateInterval != 33*time.Millisecond {
		t.Errorf("MinimumUpdateInterval = %v, want 33ms", opts.MinimumUpdateInterval)
	}
	if opts.DirtyRegion == nil || *opts.DirtyRegion {
		t.Errorf("DirtyRegion = %v, want explicit false", opts.DirtyRegion)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "window_name: Notepad\ncursor_capture: true\n")
	t.Setenv("CAPTURECTL_CURSOR_CAPTURE", "false")
	t.Setenv("CAPTURECTL_WINDOW_NAME", "Calculator")

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Capture.WindowName == nil || *cfg.Capture.WindowName != "Calculator" {
		t.Errorf("WindowName = %v, want Calculator", cfg.Capture.WindowName)
	}
	if cfg.Capture.CursorCapture == nil || *cfg.Capture.CursorCapture {
		t.Errorf("CursorCapture = %v, want false", cfg.Capture.CursorCapture)
	}
}

func TestFlags(t *testing.T) {
	chdir(t, t.TempDir())

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("window-handle", "", "")
	fs.Bool("draw-border", false, "")
	fs.Bool("cursor-capture", false, "")
	fs.Int("monitor-index", 1, "")

	v := New()
	if err := BindFlags(v, fs); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := fs.Parse([]string{"--window-handle=0x1F4", "--draw-border=false"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(v, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Capture.WindowHandle == nil || *cfg.Capture.WindowHandle != 0x1F4 {
		t.Errorf("WindowHandle = %v, want 0x1f4", cfg.Capture.WindowHandle)
	}
	if cfg.Capture.DrawBorder == nil || *cfg.Capture.DrawBorder {
		t.Errorf("DrawBorder = %v, want explicit false", cfg.Capture.DrawBorder)
	}
	// Unchanged flags stay absent.
	if cfg.Capture.CursorCapture != nil {
		t.Errorf("CursorCapture = %v, want absent", *cfg.Capture.CursorCapture)
	}
	if cfg.Capture.MonitorIndex != nil {
		t.Errorf("MonitorIndex = %v, want absent", *cfg.Capture.MonitorIndex)
	}
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown engine", "engine: dxgi\n"},
		{"negative max frames", "max_frames: -1\n"},
		{"bad log level", "log_level: loud\n"},
		{"negative interval", "minimum_update_interval_ms: -5\n"},
		{"bad window handle", "window_handle: hwnd\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(New(), writeConfig(t, tt.body)); err == nil {
				t.Error("Load err = nil, want error")
			}
		})
	}
}

func TestAmbiguousTarget(t *testing.T) {
	path := writeConfig(t, "monitor_index: 1\nwindow_name: Notepad\n")

	_, err := Load(New(), path)
	var ae *capture.AmbiguousTargetError
	if !errors.As(err, &ae) {
		t.Fatalf("Load err = %v, want *capture.AmbiguousTargetError", err)
	}
}

func TestMissingExplicitFile(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load err = nil for a missing explicit config file")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
