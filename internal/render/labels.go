package render

import (
	"fmt"

	"github.com/Mavwarf/stillness/internal/session"
	"github.com/Mavwarf/stillness/internal/settings"
	"github.com/Mavwarf/stillness/internal/timeline"
)

var statusLabels = map[timeline.PhaseName]string{
	timeline.Settle:   "Settling in…",
	timeline.Meditate: "Meditating…",
	timeline.Emerge:   "Emerging…",
}

var phaseLabels = map[timeline.PhaseName]string{
	timeline.Settle:   "Settling",
	timeline.Meditate: "Meditation",
	timeline.Emerge:   "Emerging",
}

// Status is the one-line status shown under the ring.
func Status(v session.View) string {
	switch v.State {
	case session.Running:
		return statusLabels[v.Phase]
	case session.Complete:
		return "Session complete"
	}
	return "Ready to begin"
}

// PhaseLabel names the active phase, or the closing word once complete.
func PhaseLabel(v session.View) string {
	switch v.State {
	case session.Running:
		return phaseLabels[v.Phase]
	case session.Complete:
		return "Namaste"
	}
	return ""
}

// TotalLabel is "Total: N minutes" for d.
func TotalLabel(d settings.Durations) string {
	total := d.Total()
	if total == 1 {
		return "Total: 1 minute"
	}
	return fmt.Sprintf("Total: %d minutes", total)
}
