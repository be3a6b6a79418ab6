// Command capturectl lists capture targets and runs capture sessions.
//
// Usage:
//
//	capturectl monitors
//	capturectl windows
//	capturectl run --monitor-index 2 --cursor-capture=false --max-frames 120
//	capturectl run --window-name Notepad --detached
//
// Settings can also come from capturectl.yaml or CAPTURECTL_* variables.
// The native engine loads libcapture_shim from --shim-path or
// LIBCAPTURE_SHIM_PATH.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thesyncim/libgocapture/internal/config"
	"github.com/thesyncim/libgocapture/pkg/engine"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "capturectl",
		Short:        "Capture monitors and windows",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "config file (default is ./capturectl.yaml)")
	pf.String("engine", config.EngineScreenshot, "capture engine: screenshot or native")
	pf.String("shim-path", "", "path to libcapture_shim for the native engine")
	pf.String("log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(newMonitorsCmd(), newWindowsCmd(), newRunCmd())
	return root
}

// env is what every subcommand needs: resolved config, logger and engine.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	eng    engine.Engine
}

func setup(cmd *cobra.Command) (*env, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, file)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	var eng engine.Engine
	switch cfg.Engine {
	case config.EngineNative:
		n, err := engine.NewNative(cfg.ShimPath)
		if err != nil {
			return nil, fmt.Errorf("load native engine: %w", err)
		}
		eng = n
	default:
		eng = engine.NewScreenshot(logger)
	}
	return &env{cfg: cfg, logger: logger, eng: eng}, nil
}
