// Package config loads capturectl settings from a YAML file, CAPTURECTL_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/thesyncim/libgocapture/pkg/capture"
)

// Configuration keys. Flags are bound under the same names with '-' in place
// of '_'.
const (
	KeyEngine                  = "engine"
	KeyShimPath                = "shim_path"
	KeyLogLevel                = "log_level"
	KeyMaxFrames               = "max_frames"
	KeyMonitorIndex            = "monitor_index"
	KeyWindowName              = "window_name"
	KeyWindowHandle            = "window_handle"
	KeyCursorCapture           = "cursor_capture"
	KeyDrawBorder              = "draw_border"
	KeySecondaryWindow         = "secondary_window"
	KeyMinimumUpdateIntervalMs = "minimum_update_interval_ms"
	KeyDirtyRegion             = "dirty_region"
)

// Engine names.
const (
	EngineScreenshot = "screenshot"
	EngineNative     = "native"
)

const envPrefix = "CAPTURECTL"

// Config is the resolved capturectl configuration.
type Config struct {
	Engine    string
	ShimPath  string
	LogLevel  slog.Level
	MaxFrames int

	// Capture holds the optional capture settings; unset keys stay nil.
	Capture capture.Options
}

// New returns a viper instance with capturectl defaults, environment binding
// and config file search paths. Optional capture keys get no default so an
// absent key stays distinguishable from false.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyEngine, EngineScreenshot)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMaxFrames, 0)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("capturectl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "capturectl"))
	}
	return v
}

// BindFlags binds every flag in fs to the key of the same name with '-'
// replaced by '_'. Only flags set on the command line count as set.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

// Load reads the config file (file, or the search paths when empty) and
// resolves the configuration. A missing config file in the search paths is
// not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}
	return Resolve(v)
}

// Resolve builds a Config from the values already present in v.
func Resolve(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Engine:    strings.ToLower(v.GetString(KeyEngine)),
		ShimPath:  v.GetString(KeyShimPath),
		MaxFrames: v.GetInt(KeyMaxFrames),
	}

	switch cfg.Engine {
	case EngineScreenshot, EngineNative:
	default:
		return nil, fmt.Errorf("config: %s: unknown engine %q", KeyEngine, cfg.Engine)
	}
	if cfg.MaxFrames < 0 {
		return nil, fmt.Errorf("config: %s must not be negative", KeyMaxFrames)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return nil, fmt.Errorf("config: %s: %w", KeyLogLevel, err)
	}

	opts := &cfg.Capture
	opts.CursorCapture = optionalBool(v, KeyCursorCapture)
	opts.DrawBorder = optionalBool(v, KeyDrawBorder)
	opts.SecondaryWindow = optionalBool(v, KeySecondaryWindow)
	opts.DirtyRegion = optionalBool(v, KeyDirtyRegion)

	if v.IsSet(KeyMinimumUpdateIntervalMs) {
		ms := v.GetInt64(KeyMinimumUpdateIntervalMs)
		if ms < 0 {
			return nil, fmt.Errorf("config: %s must not be negative", KeyMinimumUpdateIntervalMs)
		}
		opts.MinimumUpdateInterval = capture.Ptr(time.Duration(ms) * time.Millisecond)
	}
	if v.IsSet(KeyMonitorIndex) {
		opts.MonitorIndex = capture.Ptr(v.GetInt(KeyMonitorIndex))
	}
	if v.IsSet(KeyWindowName) {
		opts.WindowName = capture.Ptr(v.GetString(KeyWindowName))
	}
	if v.IsSet(KeyWindowHandle) {
		h, err := strconv.ParseUint(v.GetString(KeyWindowHandle), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", KeyWindowHandle, err)
		}
		opts.WindowHandle = capture.Ptr(uintptr(h))
	}

	// Reject conflicting targets here so the error names config keys.
	if _, _, err := capture.Resolve(*opts); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func optionalBool(v *viper.Viper, key string) *bool {
	if !v.IsSet(key) {
		return nil
	}
	return capture.Ptr(v.GetBool(key))
}
