package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Mavwarf/stillness/internal/config"
	"github.com/Mavwarf/stillness/internal/engine"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	volume     int
}

func (g *globalFlags) load() (config.Config, error) {
	return engine.LoadConfig(g.configPath, g.volume)
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{volume: -1}

	root := &cobra.Command{
		Use:   "stillness",
		Short: "A three-phase meditation timer with singing-bowl bells",
		Long: `stillness walks you through settle, meditate and emerge phases,
ringing a bell at each boundary. Run without a command for the terminal
timer, or "stillness serve" to use it from a phone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTimer(cmd, g)
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (JSON or YAML)")
	root.PersistentFlags().IntVarP(&g.volume, "volume", "v", -1, "playback volume 0-100 (overrides config)")

	root.AddCommand(
		newRunCmd(g),
		newServeCmd(g),
		newPreviewCmd(g),
		newRenderCmd(g),
		newSettingsCmd(),
		newHistoryCmd(g),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stillness %s (%s) %s/%s\n", version, buildDate, runtime.GOOS, runtime.GOARCH)
		},
	}
}
