package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wippyai/opcall/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB     string
	Limit  int
	Failed bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent calls from the journal",
		Long: `Show the most recent calls recorded in the journal, newest first.

The journal is journal.path from the config file, or --db.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "journal database (overrides the config)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of calls to show")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only show calls that failed")

	return cmd
}

type historyJSON struct {
	Started    time.Time `json:"started"`
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	Options    string    `json:"options,omitempty"`
	Shape      string    `json:"shape"`
	Error      string    `json:"error,omitempty"`
	DurationNS int64     `json:"duration_ns"`
	Inputs     int       `json:"inputs"`
	Named      int       `json:"named"`
	Advisories int       `json:"advisories"`
}

func showHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	path := opts.DB
	if path == "" {
		path = opts.settings().Journal.Path
	}
	if path == "" {
		return fmt.Errorf("no journal: set journal.path in the config or pass --db")
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := cmd.Context()
	recs, err := j.Recent(ctx, opts.Limit)
	if err != nil {
		return err
	}
	total, err := j.Count(ctx, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		rows := make([]historyJSON, 0, len(recs))
		for _, rec := range recs {
			if opts.Failed && !rec.Failed() {
				continue
			}
			rows = append(rows, historyJSON{
				ID:         rec.ID.String(),
				Started:    rec.Started.UTC(),
				Operation:  rec.Operation,
				Options:    rec.Options,
				Shape:      rec.Shape.String(),
				Error:      rec.Error,
				DurationNS: rec.Duration.Nanoseconds(),
				Inputs:     rec.Inputs,
				Named:      rec.Named,
				Advisories: rec.Advisories,
			})
		}
		return writeJSON(out, rows)
	}

	p := newPainter(out)
	for _, rec := range recs {
		if opts.Failed && !rec.Failed() {
			continue
		}
		status := p.paint(resultStyle, rec.Shape.String())
		if rec.Failed() {
			status = p.paint(errorStyle, rec.Error)
		}
		fmt.Fprintf(out, "%s  %-16s %10s  %s\n",
			rec.Started.Format(time.DateTime),
			p.paint(funcStyle, rec.Operation),
			rec.Duration.Round(time.Microsecond),
			status)
	}
	fmt.Fprintf(out, "%d of %d calls\n", min(opts.Limit, total), total)
	return nil
}
