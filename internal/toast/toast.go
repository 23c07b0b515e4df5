// Package toast shows a desktop notification when a session completes,
// for sessions run with the screen hidden or locked.
package toast

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/session"
)

// ErrUnsupported is returned on platforms without a notifier.
var ErrUnsupported = errors.New("toast: unsupported platform")

// Show displays a notification with title and message.
func Show(title, message string) error {
	return show(title, message)
}

// Notifier shows completion toasts in the background.
type Notifier struct {
	show func(title, message string) error
	wg   sync.WaitGroup
	log  *slog.Logger
}

// Attach subscribes a Notifier to m.
func Attach(m *session.Machine) *Notifier {
	n := &Notifier{show: Show, log: observability.WithFields("component", "toast")}
	m.Subscribe(n.handle)
	return n
}

// Message is the toast body for a completed session.
func Message(ev session.Event) string {
	total := ev.Durations.Total()
	unit := "minutes"
	if total == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Namaste. %d %s of stillness.", total, unit)
}

func (n *Notifier) handle(ev session.Event) {
	if ev.Kind != session.EventCompleted {
		return
	}
	msg := Message(ev)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.show("Session complete", msg); err != nil {
			n.log.Warn("notification failed", "err", err)
		}
	}()
}

// Wait blocks until pending notifications are shown.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}
