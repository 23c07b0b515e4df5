package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/Mavwarf/stillness/internal/session"
)

// LineRenderer prints one status line per change of the displayed
// second. It serves non-terminal output such as pipes and logs.
type LineRenderer struct {
	W io.Writer

	mu   sync.Mutex
	last string
}

func (r *LineRenderer) Render(v session.View) {
	line := FormatLine(v)
	r.mu.Lock()
	defer r.mu.Unlock()
	if line == r.last {
		return
	}
	r.last = line
	fmt.Fprintln(r.W, line)
}

// FormatLine renders v as a single line of text.
func FormatLine(v session.View) string {
	switch v.State {
	case session.Running:
		return fmt.Sprintf("%s %-8s %s %s", Glyph(v.Progress), v.Phase, v.RemainingText, Bar(v.Progress, 20))
	case session.Complete:
		return "● complete"
	default:
		return fmt.Sprintf("○ ready    %s", v.Durations)
	}
}
