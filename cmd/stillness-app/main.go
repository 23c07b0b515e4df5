package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/Mavwarf/stillness/internal/engine"
	"github.com/Mavwarf/stillness/internal/server"
)

const defaultPort = 8812

func main() {
	configPath := flag.String("config", "", "config file (JSON or YAML)")
	port := flag.Int("port", defaultPort, "local port for the embedded server")
	flag.Parse()

	cfg, err := engine.LoadConfig(*configPath, -1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stillness-app: %v\n", err)
		os.Exit(1)
	}
	// The webview talks to its own loopback server; no certificate needed.
	cfg.Server.Port = *port
	cfg.Server.TLS = false
	cfg.Server.Bind = "127.0.0.1"

	e := engine.New(cfg, engine.Web)
	defer e.Close()
	srv := server.New(e.Machine, e.Assets, e.Web, e.History, e.Bell, cfg.SampleRate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := srv.Serve(ctx, cfg.Server, cfg.FrameRate, false); err != nil {
			fmt.Fprintf(os.Stderr, "stillness-app: server: %v\n", err)
			os.Exit(1)
		}
	}()

	if err := waitForServer(*port, 3*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "stillness-app: %v\n", err)
		os.Exit(1)
	}

	app := newApp(*port, e)
	go runTray(app)

	// A blank page bootstraps the webview; startup then navigates to the
	// embedded server so SSE and audio range requests hit it directly.
	loader := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html><html><body style="background:#1d1f27"></body></html>`))
	})

	err = wails.Run(&options.App{
		Title:     "stillness",
		Width:     420,
		Height:    720,
		MinWidth:  320,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Handler: loader,
		},
		BackgroundColour: &options.RGBA{R: 0x1d, G: 0x1f, B: 0x27, A: 255},
		OnStartup:        app.startup,
		OnBeforeClose:    app.beforeClose,
		Bind:             []interface{}{app},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "stillness-app: %v\n", err)
		os.Exit(1)
	}
}

// waitForServer polls the embedded server until it responds or the
// timeout expires.
func waitForServer(port int, timeout time.Duration) error {
	addr := fmt.Sprintf("http://127.0.0.1:%d/api/state", port)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(addr)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %s", timeout)
}
