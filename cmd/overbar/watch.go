package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch and control the bar in the terminal",
	Long: `Open a terminal view of the bar: the current message, its phase, the
history since the last hide and a live log of the daemon's signals.

Key bindings:
  t           Tap (shrink / restore)
  e           Expand the detail view
  h / H       Hide / hide temporarily
  s           Show again
  c           Copy the current message to the clipboard
  x           Clear the event log
  r           Refresh
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := dbus.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	events, err := client.Subscribe(ctx)
	if err != nil {
		return err
	}

	return tui.Run(tui.RunOptions{
		Config: getConfig(),
		Source: client,
		Events: events,
	})
}
