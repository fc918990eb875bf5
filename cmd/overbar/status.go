package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/model"
)

var statusOpts struct {
	follow bool
	width  int
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the bar's state in Waybar's custom module JSON format.

  "custom/overbar": {
    "exec": "overbar status --follow",
    "return-type": "json",
    "on-click": "overbar touch tap"
  }

The output includes:
  - text: the current message, empty when hidden
  - alt: the display phase (hidden, shown, shrinked, expanded)
  - tooltip: phase, message type and number of queued messages
  - class: the message type, or "hidden"

With --follow a new line is printed every time the bar changes.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&statusOpts.follow, "follow", "f", false,
		"Print a new status line on every change")
	statusCmd.Flags().IntVar(&statusOpts.width, "width", 40,
		"Truncate the text to this many characters (0 = no limit)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if !statusOpts.follow {
		err := withClient(func(ctx context.Context, c *dbus.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			return outputStatus(out, generateStatus(st, statusOpts.width))
		})
		if err != nil {
			// Waybar shows stderr nowhere; report the failure in-band.
			logger.Debug("status unavailable", "error", err)
			return outputStatus(out, WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()})
		}
		return nil
	}

	return followStatus(cmd.Context(), out)
}

// followStatus prints the status once, then again after every signal.
func followStatus(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
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

	for {
		st, err := client.Status(ctx)
		if err != nil {
			return err
		}
		if err := outputStatus(out, generateStatus(st, statusOpts.width)); err != nil {
			return err
		}

		if _, ok := <-events; !ok {
			return nil
		}
	}
}

// generateStatus creates a WaybarStatus from the daemon's status.
func generateStatus(st dbus.Status, width int) WaybarStatus {
	if st.Current == nil || !st.Phase.Visible() {
		return WaybarStatus{
			Text:    "",
			Alt:     model.PhaseHidden.String(),
			Tooltip: "Hidden",
			Class:   "hidden",
		}
	}

	cur := st.Current
	text := cur.Text
	if width > 0 {
		text = cur.TextTruncated(width)
	}

	lines := []string{
		fmt.Sprintf("%s (%s)", cur.Text, cur.TypeName),
		"Phase: " + st.Phase.String(),
	}
	if st.Queued > 0 {
		lines = append(lines, humanize.Comma(int64(st.Queued))+" queued")
	}

	return WaybarStatus{
		Text:    text,
		Alt:     st.Phase.String(),
		Tooltip: strings.Join(lines, "\n"),
		Class:   cur.TypeName,
	}
}

// outputStatus writes the status as one JSON line.
func outputStatus(w io.Writer, status WaybarStatus) error {
	return json.NewEncoder(w).Encode(status)
}
