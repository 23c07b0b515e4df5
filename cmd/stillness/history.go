package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/Mavwarf/stillness/internal/history"
	"github.com/Mavwarf/stillness/internal/paths"
)

// openHistory is replaced in tests.
var openHistory = func(storage string) (history.Store, error) {
	return history.Open(storage, paths.DataDir())
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var days, clean int
	var clear bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			store, err := openHistory(cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close()
			w := cmd.OutOrStdout()

			switch {
			case clear:
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(w, "History cleared.")
				return nil
			case clean > 0:
				n, err := store.Clean(clean)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Removed %s older than %s.\n",
					english.Plural(n, "session", "sessions"), english.Plural(clean, "day", "days"))
				return nil
			}

			if days <= 0 {
				return fmt.Errorf("--days must be a positive integer")
			}
			cutoff := history.DayCutoff(days)
			recs, err := store.Since(cutoff)
			if err != nil {
				return err
			}
			sum, err := store.Summary(cutoff)
			if err != nil {
				return err
			}
			printHistory(w, recs, sum, days, time.Now())
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 7, "number of days to show")
	cmd.Flags().BoolVar(&clear, "clear", false, "delete all history")
	cmd.Flags().IntVar(&clean, "clean", 0, "delete sessions older than N days")
	cmd.MarkFlagsMutuallyExclusive("clear", "clean")
	return cmd
}

func printHistory(w io.Writer, recs []history.Record, sum history.Summary, days int, now time.Time) {
	if len(recs) == 0 {
		fmt.Fprintf(w, "No sessions in the last %s.\n", english.Plural(days, "day", "days"))
		return
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%s  %-9s  %-18s  %-8s  %s\n",
			r.Start.Local().Format("2006-01-02 Mon 15:04"),
			r.Outcome,
			r.Durations,
			r.Elapsed.Round(time.Second),
			humanize.RelTime(r.Start, now, "ago", "from now"),
		)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s, %d completed, %d stopped, %s meditated",
		english.Plural(sum.Sessions, "session", "sessions"), sum.Completed, sum.Stopped, sum.Time.Round(time.Minute))
	if sum.Streak > 0 {
		fmt.Fprintf(w, ", %s streak", english.Plural(sum.Streak, "day", "days"))
	}
	fmt.Fprintln(w)
}
