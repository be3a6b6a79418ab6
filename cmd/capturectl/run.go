package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/thesyncim/libgocapture/pkg/capture"
	"github.com/thesyncim/libgocapture/pkg/host"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a capture session and report frames",
		Long: `Run captures one monitor or window until it closes, --max-frames frames
have been delivered, or the process is interrupted.

At most one of --monitor-index, --window-name and --window-handle may be set.
Without any of them the first monitor is captured.`,
		Args: cobra.NoArgs,
		RunE: runCapture,
	}

	f := cmd.Flags()
	f.Int("monitor-index", 1, "1-based monitor index")
	f.String("window-name", "", "capture the first window whose title contains this text")
	f.String("window-handle", "", "capture the window with this native handle (e.g. 0x1F4)")
	f.Bool("cursor-capture", false, "draw the cursor into frames")
	f.Bool("draw-border", false, "draw the capture border")
	f.Bool("secondary-window", false, "include secondary windows (monitors only)")
	f.Int64("minimum-update-interval-ms", 0, "minimum time between frames (monitors only)")
	f.Bool("dirty-region", false, "report and render dirty regions; false only reports them (monitors only)")
	f.Int("max-frames", 0, "stop after this many frames (0 = unlimited)")
	f.Bool("detached", false, "run the session on its own goroutine and join it")
	return cmd
}

func runCapture(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	detached, _ := cmd.Flags().GetBool("detached")

	rt := host.Default()
	stopSignals := rt.NotifySignals(os.Interrupt)
	defer stopSignals()

	var frames atomic.Int64
	maxFrames := int64(e.cfg.MaxFrames)
	out := cmd.OutOrStdout()

	cbs := capture.CallbackSet{
		OnFrame: capture.FrameFunc(func(v capture.FrameView, stop *capture.StopSignal) error {
			n := frames.Add(1)
			fmt.Fprintf(out, "frame %d: %dx%d %d bytes at %v\n", n, v.Width, v.Height, len(v.Pixels), v.Timestamp)
			if maxFrames > 0 && n >= maxFrames {
				stop.Stop()
			}
			return nil
		}),
		OnClosed: capture.ClosedFunc(func() error {
			fmt.Fprintf(out, "capture closed after %d frames\n", frames.Load())
			return nil
		}),
		Runtime: rt,
	}

	opts := e.cfg.Capture
	opts.Logger = e.logger
	c, err := capture.New(e.eng, cbs, opts)
	if err != nil {
		return err
	}

	if detached {
		ctl, err := c.StartDetached()
		if err != nil {
			return err
		}
		// Join while holding the execution lock, the way a host thread would.
		tok := rt.Acquire()
		defer tok.Release()
		err = ctl.Wait(tok)
		return interruptIsExit(err)
	}

	return interruptIsExit(c.Start(context.Background()))
}

// interruptIsExit treats a Ctrl-C observed by the frame bridge as a clean exit.
func interruptIsExit(err error) error {
	var ie *capture.InterruptError
	if errors.As(err, &ie) {
		return nil
	}
	return err
}
