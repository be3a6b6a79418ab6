package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newMonitorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitors",
		Short: "List monitors in engine order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			monitors, err := e.eng.Monitors()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tNAME\tBOUNDS")
			for _, m := range monitors {
				fmt.Fprintf(w, "%d\t%s\t%v\n", m.Index, m.Name, m.Bounds)
			}
			return w.Flush()
		},
	}
}

func newWindowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List capturable windows in engine order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			windows, err := e.eng.Windows()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HANDLE\tTITLE")
			for _, win := range windows {
				fmt.Fprintf(w, "%#x\t%s\n", win.Handle, win.Title)
			}
			return w.Flush()
		},
	}
}
