package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/model"
)

type postFlags struct {
	typeName  string
	duration  string
	immediate bool
	noAnimate bool
	printID   bool
}

var postOpts postFlags

var postCmd = &cobra.Command{
	Use:   "post [flags] TEXT...",
	Short: "Post a message to the bar",
	Long: `Post a message to the bar.

Messages are shown one at a time in the order they were posted. An activity
message stays until something replaces it; finish and error messages hide
the bar once their duration passes and nothing else is queued.

--immediate drops everything still queued and replaces the current message
at once.

Examples:
  overbar post --type activity "Building..."
  overbar post --type finish --duration 3s "Build passed"
  overbar post --type error --immediate "Build failed"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := model.ParseMessageType(postOpts.typeName)
		if err != nil {
			return err
		}
		return runPost(cmd, t, postOpts, args)
	},
}

// shorthandCmd builds "overbar activity|finish|error TEXT...".
func shorthandCmd(t model.MessageType, short string) *cobra.Command {
	var opts postFlags
	cmd := &cobra.Command{
		Use:   t.String() + " [flags] TEXT...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPost(cmd, t, opts, args)
		},
	}
	addPostFlags(cmd, &opts)
	return cmd
}

func addPostFlags(cmd *cobra.Command, opts *postFlags) {
	cmd.Flags().StringVarP(&opts.duration, "duration", "d", "",
		"How long to show the message (e.g. 2s, 1500ms, 0 = until replaced; default from overbard config)")
	cmd.Flags().BoolVarP(&opts.immediate, "immediate", "i", false,
		"Drop queued messages and show this one now")
	cmd.Flags().BoolVar(&opts.noAnimate, "no-animate", false,
		"Switch without animation")
	cmd.Flags().BoolVar(&opts.printID, "print-id", false,
		"Print the message ID")
}

func init() {
	rootCmd.AddCommand(postCmd)
	postCmd.Flags().StringVarP(&postOpts.typeName, "type", "t", model.MessageTypeActivity.String(),
		"Message type: activity, finish, error")
	addPostFlags(postCmd, &postOpts)

	rootCmd.AddCommand(
		shorthandCmd(model.MessageTypeActivity, "Post an activity message (shown with a spinner)"),
		shorthandCmd(model.MessageTypeFinish, "Post a finish message (shown with a check mark)"),
		shorthandCmd(model.MessageTypeError, "Post an error message (shown with a cross)"),
	)
}

// parseDuration parses a duration flag. Plain integers are milliseconds and
// an empty value selects the daemon default.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "default" {
		return time.Duration(dbus.DefaultDuration), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("duration must not be negative: %s", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", s)
	}
	return d, nil
}

func runPost(cmd *cobra.Command, t model.MessageType, opts postFlags, args []string) error {
	duration, err := parseDuration(opts.duration)
	if err != nil {
		return err
	}
	text := strings.Join(args, " ")
	animated := getConfig().Post.Animated && !opts.noAnimate

	return withClient(func(ctx context.Context, c *dbus.Client) error {
		id, err := c.Post(ctx, text, t, duration, animated, opts.immediate)
		if err != nil {
			return err
		}
		logger.Debug("posted message", "message_id", id, "type", t)
		if opts.printID {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	})
}
