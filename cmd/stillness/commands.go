package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Mavwarf/stillness/internal/audio"
	"github.com/Mavwarf/stillness/internal/config"
	"github.com/Mavwarf/stillness/internal/engine"
	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/render"
	"github.com/Mavwarf/stillness/internal/server"
	"github.com/Mavwarf/stillness/internal/session"
	"github.com/Mavwarf/stillness/internal/settings"
	"github.com/Mavwarf/stillness/internal/timeline"
	"github.com/Mavwarf/stillness/internal/tui"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the terminal timer (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTimer(cmd, g)
		},
	}
}

// runTimer shows the interactive TUI on a terminal. Without one (piped
// output, a service) it starts a session at once and prints one line per
// second until the session completes or the process is interrupted.
func runTimer(cmd *cobra.Command, g *globalFlags) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := engine.New(cfg, engine.Local)
	defer e.Close()

	if term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd())) {
		restore, err := observability.RedirectToFile()
		if err != nil {
			observability.Logger().Warn("log redirect failed", "err", err)
		}
		defer restore()
		return tui.Run(ctx, e.Machine, cfg.FrameRate)
	}
	return runPlain(ctx, e.Machine, cmd.OutOrStdout())
}

func runPlain(ctx context.Context, m *session.Machine, w io.Writer) error {
	done := make(chan struct{})
	var once sync.Once
	m.Subscribe(func(ev session.Event) {
		if ev.Kind == session.EventCompleted {
			once.Do(func() { close(done) })
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loop := render.NewLoop(m, &render.LineRenderer{W: w}, 1)
	go loop.Run(ctx)

	fmt.Fprintf(w, "stillness: %s\n", m.Durations())
	m.Start()
	select {
	case <-done:
		loop.Frame(m.Now())
		return nil
	case <-ctx.Done():
		return nil
	}
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var port int
	var noTLS, open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the timer to browsers on this network",
		Long: `serve runs the session on this machine and serves a web front-end.
Phones on the same network can open the printed address; the session
track is played by the browser. HTTPS (self-signed) is on by default
because mobile browsers require it for wake locks and offline use.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if noTLS {
				cfg.Server.TLS = false
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e := engine.New(cfg, engine.Web)
			defer e.Close()

			srv := server.New(e.Machine, e.Assets, e.Web, e.History, e.Bell, cfg.SampleRate)
			return srv.Serve(ctx, cfg.Server, cfg.FrameRate, open)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config, 8443)")
	cmd.Flags().BoolVar(&noTLS, "no-tls", false, "serve plain HTTP")
	cmd.Flags().BoolVar(&open, "open", false, "open a browser window")
	return cmd
}

func newPreviewCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Ring the bell once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e := engine.New(cfg, engine.Local)
			defer e.Close()
			wait := audio.BellLength
			if cfg.Backend == config.BackendSilent {
				wait = 0
			}
			if !previewBell(ctx, e.Machine, wait) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Audio unavailable, bell not played.")
			}
			return nil
		},
	}
}

// previewBell strikes the bell through the machine's audio path and waits
// for it to ring out. It reports false when the backend failed.
func previewBell(ctx context.Context, m *session.Machine, wait time.Duration) bool {
	m.PreviewBell()
	if m.Snapshot(m.Now()).Degraded {
		return false
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return true
}

func newRenderCmd(g *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the session track for the current durations as WAV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			d := settings.DefaultStore().Load()
			n, err := renderSession(out, d, engine.LoadBell(cfg), cfg.SampleRate, cfg.VolumeFraction())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %s, %d bytes\n", out, d, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "session.wav", "output file")
	return cmd
}

// renderSession writes the full session track for d to path.
func renderSession(path string, d settings.Durations, bell []int16, sampleRate int, volume float64) (int64, error) {
	if !d.Valid() {
		return 0, errors.New("stored durations are out of range")
	}
	tl := timeline.Build(d, time.Now())
	track := audio.NewSession(bell, tl.Offsets(), tl.Total(), sampleRate)
	track.SetVolume(volume)

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, track.WAVReader())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", path, err)
	}
	return n, nil
}
