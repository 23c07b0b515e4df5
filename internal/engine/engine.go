// Package engine wires a session machine to its audio backend, history,
// hooks and wake lock from a loaded config. The CLI and the desktop shell
// share it.
package engine

import (
	"fmt"

	"github.com/Mavwarf/stillness/internal/audio"
	"github.com/Mavwarf/stillness/internal/config"
	"github.com/Mavwarf/stillness/internal/history"
	"github.com/Mavwarf/stillness/internal/mqtt"
	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/paths"
	"github.com/Mavwarf/stillness/internal/scheduler"
	"github.com/Mavwarf/stillness/internal/session"
	"github.com/Mavwarf/stillness/internal/settings"
	"github.com/Mavwarf/stillness/internal/toast"
	"github.com/Mavwarf/stillness/internal/wakelock"
	"github.com/Mavwarf/stillness/internal/webhook"
)

// LoadConfig reads and validates the config at path (empty searches the
// default locations). A volume of 0-100 overrides the file; negative
// leaves it alone.
func LoadConfig(path string, volume int) (config.Config, error) {
	cfg, _, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if volume >= 0 {
		if volume > 100 {
			return config.Config{}, fmt.Errorf("volume must be a number between 0 and 100")
		}
		cfg.Volume = volume
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadBell returns the configured bell at cfg's rate and volume. A bad
// bell file falls back to the synthesized bowl.
func LoadBell(cfg config.Config) []int16 {
	bell, err := audio.LoadBell(cfg.BellFile, cfg.SampleRate)
	if err != nil {
		observability.Logger().Warn("bell file unusable, using synthesized bell", "path", cfg.BellFile, "err", err)
	}
	return bell
}

// Target selects where the session is heard.
type Target int

const (
	Local Target = iota // host audio device
	Web                 // browser <audio> element via the asset store
)

// Engine is one fully wired session machine and its collaborators.
type Engine struct {
	Config  config.Config
	Bell    []int16
	Machine *session.Machine
	History history.Store
	// Assets and Web are set for the Web target only.
	Assets *scheduler.AssetStore
	Web    *scheduler.AssetBackend

	mqtt  *mqtt.Publisher
	hook  *webhook.Notifier
	toast *toast.Notifier
}

// New builds an Engine for cfg. Optional collaborators that fail to open
// (history store) are logged and replaced by no-ops.
func New(cfg config.Config, t Target) *Engine {
	e := &Engine{Config: cfg, Bell: LoadBell(cfg)}

	var backend scheduler.Backend
	switch {
	case t == Web:
		e.Assets = scheduler.NewAssetStore()
		e.Web = scheduler.NewAssetBackend(e.Assets, e.Bell, cfg.SampleRate, cfg.VolumeFraction())
		backend = e.Web
	case cfg.Backend == config.BackendScheduled:
		backend = scheduler.NewClockBackend(audio.NewOtoSink(cfg.SampleRate, cfg.VolumeFraction()), e.Bell, cfg.SampleRate)
	case cfg.Backend == config.BackendSilent:
		backend = scheduler.SilentBackend{}
	default:
		backend = scheduler.NewPrerenderedBackend(audio.NewOtoSink(cfg.SampleRate, cfg.VolumeFraction()), e.Bell, cfg.SampleRate)
	}

	opts := session.Options{
		Scheduler: scheduler.New(backend),
		Settings:  settings.DefaultStore(),
		AutoReset: cfg.AutoReset(),
		TailGrace: cfg.TailGrace(audio.BellLength),
	}
	// The browser holds its own screen wake lock.
	if t == Local {
		opts.WakeLock = wakelock.Hold
	}
	e.Machine = session.New(opts)

	store, err := history.Open(cfg.Storage, paths.DataDir())
	if err != nil {
		observability.Logger().Warn("history unavailable", "storage", cfg.Storage, "err", err)
		store = history.Discard{}
	}
	e.History = store
	history.Attach(e.Machine, store)

	e.mqtt = mqtt.Attach(e.Machine, cfg.MQTT)
	e.hook = webhook.Attach(e.Machine, cfg.Webhook)
	if cfg.DesktopNotify && t == Local {
		e.toast = toast.Attach(e.Machine)
	}
	return e
}

// Close ends a running session, then flushes hook deliveries and the
// history store.
func (e *Engine) Close() {
	if e.Machine.State() == session.Running {
		e.Machine.Stop()
	}
	e.mqtt.Wait()
	e.hook.Wait()
	e.toast.Wait()
	if err := e.History.Close(); err != nil {
		observability.Logger().Warn("closing history", "err", err)
	}
}
