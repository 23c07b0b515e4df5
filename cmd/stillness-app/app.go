package main

import (
	"context"
	"fmt"
	"os"

	"github.com/energye/systray"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/Mavwarf/stillness/internal/engine"
)

// App holds the Wails window lifecycle and the engine the tray drives.
type App struct {
	ctx    context.Context
	port   int
	engine *engine.Engine
	ready  chan struct{} // closed when Wails startup completes
}

func newApp(port int, e *engine.Engine) *App {
	return &App{port: port, engine: e, ready: make(chan struct{})}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	url := fmt.Sprintf("http://127.0.0.1:%d", a.port)
	wailsRuntime.WindowExecJS(ctx, fmt.Sprintf("window.location.href = '%s';", url))
	close(a.ready)
}

// beforeClose hides to the tray. Shift+close quits.
func (a *App) beforeClose(ctx context.Context) bool {
	if isShiftHeld() {
		a.quit()
		return false
	}
	wailsRuntime.WindowHide(a.ctx)
	return true
}

func (a *App) ShowWindow() {
	<-a.ready
	wailsRuntime.WindowShow(a.ctx)
}

// Toggle starts a session, or stops the running one.
func (a *App) Toggle() {
	a.engine.Machine.Start()
}

// Preview rings the bell once.
func (a *App) Preview() {
	a.engine.Machine.PreviewBell()
}

func (a *App) quit() {
	a.engine.Close()
	systray.Quit()
	os.Exit(0)
}
