package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/model"
)

var hideOpts struct {
	temporary bool
}

var hideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Hide the bar",
	Long: `Hide the bar and drop everything still queued.

With --temporary the current message and the shrink preference are kept,
and 'overbar show' brings the message back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			if hideOpts.temporary {
				return c.HideTemporary(ctx)
			}
			return c.Hide(ctx)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the message hidden by 'hide --temporary'",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.Show(ctx)
		})
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch [tap|expand]",
	Short: "Send a gesture to the bar",
	Long: `Send a gesture to the bar as if it had been clicked.

tap shrinks the bar to a narrow strip, expand opens the history detail.
Either gesture on a shrinked or expanded bar returns it to normal.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"tap", "expand"},
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "tap"
		if len(args) == 1 {
			name = args[0]
		}
		g, err := model.ParseGesture(name)
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.Touch(ctx, g)
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Save or restore the shrink preference",
}

var stateSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist whether the bar is shrinked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			if err := c.SaveState(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "state saved")
			return nil
		})
	},
}

var stateRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Apply the persisted shrink preference",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			if err := c.RestoreState(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "state restored")
			return nil
		})
	},
}

func init() {
	hideCmd.Flags().BoolVar(&hideOpts.temporary, "temporary", false,
		"Keep the current message so 'overbar show' can bring it back")

	stateCmd.AddCommand(stateSaveCmd, stateRestoreCmd)
	rootCmd.AddCommand(hideCmd, showCmd, touchCmd, stateCmd)
}
