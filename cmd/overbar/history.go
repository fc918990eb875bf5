package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/overbar/internal/adapter/output"
	"github.com/jmylchreest/overbar/internal/core"
	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/model"
)

type historyFlags struct {
	format    string
	types     []string
	since     string
	search    string
	filter    string
	sortBy    string
	sortOrder string
	limit     int
	field     string
	template  string
	relative  bool
}

var historyOpts historyFlags

var historyCmd = &cobra.Command{
	Use:   "history [index|id]",
	Short: "List the messages shown since the bar was last hidden",
	Long: `List the messages the bar has shown since it was last fully hidden,
newest first.

With an index (1-based, after filtering and sorting) or an ID or unique ID
prefix, outputs that message only.

Filter expressions combine conditions with commas:
  text~deploy       text contains "deploy"
  type=error        error messages only
  duration>=2s      shown for at least two seconds
  posted>5m         posted within the last five minutes

Examples:
  overbar history
  overbar history --type error --format json
  overbar history 1 --field text
  overbar history --filter 'text~build,posted>10m'
  overbar history --format dmenu --template '{{.Message.Text}} ({{reltime .Message.PostedAt}})'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "",
		"Output format: plain, json, yaml, dmenu, ids (default from config)")
	historyCmd.Flags().StringSliceVar(&historyOpts.types, "type", nil,
		"Only list messages of these types")
	historyCmd.Flags().StringVar(&historyOpts.since, "since", "",
		"Only list messages posted within this duration (e.g. 10m, 2h, 1d)")
	historyCmd.Flags().StringVarP(&historyOpts.search, "search", "s", "",
		"Only list messages whose text contains this string")
	historyCmd.Flags().StringVar(&historyOpts.filter, "filter", "",
		"Filter expression (see above)")
	historyCmd.Flags().StringVar(&historyOpts.sortBy, "sort", "posted",
		"Sort by: posted, type, duration")
	historyCmd.Flags().StringVar(&historyOpts.sortOrder, "order", "desc",
		"Sort order: asc, desc")
	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 0,
		"Maximum number of messages (0 = all)")
	historyCmd.Flags().StringVar(&historyOpts.field, "field", "",
		"Print a single field of each message (id, text, type, duration, posted_at, indicator)")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Go template for dmenu output")
	historyCmd.Flags().BoolVar(&historyOpts.relative, "relative", false,
		"Show relative times (\"3 minutes ago\")")
}

func runHistory(cmd *cobra.Command, args []string) error {
	c := getConfig()

	formatName := historyOpts.format
	if formatName == "" {
		formatName = c.History.Format
	}
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	var messages []model.Message
	err = withClient(func(ctx context.Context, client *dbus.Client) error {
		messages, err = client.History(ctx)
		return err
	})
	if err != nil {
		return err
	}

	messages, err = selectHistory(messages, args, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyOpts.field != "" {
		for i := range messages {
			fmt.Fprintln(out, output.FormatField(&messages[i], historyOpts.field))
		}
		return nil
	}

	opts := output.DefaultFormatterOptions()
	opts.TimeFormat = c.History.TimeFormat
	opts.TextWidth = c.History.TextWidth
	opts.Relative = historyOpts.relative
	opts.Template = historyOpts.template

	return output.NewFormatter(format, opts).Format(out, messages)
}

// selectHistory applies the filter, sort and lookup flags.
func selectHistory(messages []model.Message, args []string, now time.Time) ([]model.Message, error) {
	types, err := parseTypes(historyOpts.types)
	if err != nil {
		return nil, err
	}
	since, err := core.ParseDuration(historyOpts.since)
	if err != nil {
		return nil, fmt.Errorf("invalid --since: %w", err)
	}
	expr, err := core.ParseFilterAt(historyOpts.filter, now)
	if err != nil {
		return nil, err
	}

	messages = core.Filter(messages, core.FilterOptions{
		Since:  since,
		Types:  types,
		Search: historyOpts.search,
		Now:    now,
	})
	messages = core.FilterWithExpr(messages, expr)

	field, _ := core.ParseSortField(historyOpts.sortBy)
	order, _ := core.ParseSortOrder(historyOpts.sortOrder)
	core.Sort(messages, core.SortOptions{Field: field, Order: order})

	if len(args) == 1 {
		m := core.Lookup(messages, args[0])
		if m == nil {
			return nil, fmt.Errorf("no message matches %q", args[0])
		}
		return []model.Message{*m}, nil
	}

	if historyOpts.limit > 0 && len(messages) > historyOpts.limit {
		messages = messages[:historyOpts.limit]
	}
	return messages, nil
}

// parseTypes parses message type names, accepting comma-separated lists.
func parseTypes(names []string) ([]model.MessageType, error) {
	var types []model.MessageType
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			t, err := model.ParseMessageType(part)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
	}
	return types, nil
}
