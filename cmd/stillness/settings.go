package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mavwarf/stillness/internal/render"
	"github.com/Mavwarf/stillness/internal/settings"
)

// settingsStore is replaced in tests.
var settingsStore = settings.DefaultStore

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the phase durations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printDurations(cmd.OutOrStdout(), settingsStore().Load())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the phase durations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printDurations(cmd.OutOrStdout(), settingsStore().Load())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <settle|meditate|emerge> <minutes>",
		Short: "Set one phase duration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := settings.ParseField(args[0])
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("minutes must be a whole number")
			}
			lim := settings.Limits(f)
			if n < lim.Min || n > lim.Max {
				return fmt.Errorf("%s must be between %d and %d minutes", f, lim.Min, lim.Max)
			}
			return update(cmd.OutOrStdout(), func(d settings.Durations) settings.Durations {
				return d.Set(f, n)
			})
		},
	})

	adjust := &cobra.Command{
		Use:   "adjust <settle|meditate|emerge> <+1|-1>",
		Short: "Nudge one phase duration, clamped to its range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := settings.ParseField(args[0])
			if err != nil {
				return err
			}
			dir, err := strconv.Atoi(args[1])
			if err != nil || dir == 0 {
				return fmt.Errorf("direction must be a non-zero number such as +1 or -1")
			}
			return update(cmd.OutOrStdout(), func(d settings.Durations) settings.Durations {
				return d.Adjust(f, dir)
			})
		},
	}
	// "-1" after the field name is a value, not a flag.
	adjust.Flags().SetInterspersed(false)
	cmd.AddCommand(adjust)

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default durations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return update(cmd.OutOrStdout(), func(settings.Durations) settings.Durations {
				return settings.Default()
			})
		},
	})
	return cmd
}

func update(w io.Writer, fn func(settings.Durations) settings.Durations) error {
	store := settingsStore()
	d := fn(store.Load())
	if err := store.Save(d); err != nil {
		return err
	}
	printDurations(w, d)
	return nil
}

func printDurations(w io.Writer, d settings.Durations) {
	for _, f := range []settings.Field{settings.Settle, settings.Meditate, settings.Emerge} {
		fmt.Fprintf(w, "%-9s %3d min\n", f, d.Get(f))
	}
	fmt.Fprintln(w, render.TotalLabel(d))
}
