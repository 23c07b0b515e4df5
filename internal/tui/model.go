// Package tui is the terminal front-end: a bubbletea program fed frames by
// the render loop.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Mavwarf/stillness/internal/render"
	"github.com/Mavwarf/stillness/internal/session"
	"github.com/Mavwarf/stillness/internal/settings"
	"github.com/Mavwarf/stillness/internal/tmpl"
)

const flashDuration = 600 * time.Millisecond

// frameMsg carries one rendered snapshot from the loop.
type frameMsg session.View

// flashMsg marks a bell strike.
type flashMsg struct{}

type flashDoneMsg struct{ id int }

var fields = []settings.Field{settings.Settle, settings.Meditate, settings.Emerge}

// Model is the root bubbletea model.
type Model struct {
	machine  *session.Machine
	nudge    func()
	keys     keyMap
	help     help.Model
	bar      progress.Model
	view     session.View
	settings bool
	field    int
	flash    bool
	flashID  int
	width    int
	height   int
}

// New returns a Model driving m. nudge, if set, is called when the
// terminal regains focus.
func New(m *session.Machine, nudge func()) Model {
	return Model{
		machine: m,
		nudge:   nudge,
		keys:    defaultKeys(),
		help:    help.New(),
		bar:     progress.New(progress.WithSolidFill(string(Settle)), progress.WithoutPercentage(), progress.WithWidth(30)),
		view:    m.Snapshot(m.Now()),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.bar.Width = min(40, max(10, msg.Width-20))

	case frameMsg:
		m.view = session.View(msg)
		if m.view.State != session.Idle {
			m.settings = false
		}

	case flashMsg:
		m.flash = true
		m.flashID++
		id := m.flashID
		return m, tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashDoneMsg{id: id} })

	case flashDoneMsg:
		if msg.id == m.flashID {
			m.flash = false
		}

	case tea.FocusMsg:
		if m.nudge != nil {
			m.nudge()
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.view.State == session.Running {
			m.machine.Stop()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Preview):
		m.machine.PreviewBell()
		return m, nil
	}

	if m.settings {
		switch {
		case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Settings):
			m.settings = false
		case key.Matches(msg, m.keys.Prev):
			m.field = (m.field + len(fields) - 1) % len(fields)
		case key.Matches(msg, m.keys.Next):
			m.field = (m.field + 1) % len(fields)
		case key.Matches(msg, m.keys.Inc):
			m.machine.AdjustDuration(fields[m.field], 1)
			m.view = m.machine.Snapshot(m.machine.Now())
		case key.Matches(msg, m.keys.Dec):
			m.machine.AdjustDuration(fields[m.field], -1)
			m.view = m.machine.Snapshot(m.machine.Now())
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		m.machine.Start()
		m.view = m.machine.Snapshot(m.machine.Now())
	case key.Matches(msg, m.keys.Settings):
		// Settings are only reachable between sessions.
		if m.view.State == session.Idle {
			m.settings = true
		}
	}
	return m, nil
}

func (m Model) View() string {
	var body string
	if m.settings {
		body = m.settingsView()
	} else {
		body = m.timerView()
	}
	style := panelStyle
	if m.flash {
		style = flashStyle
	}
	panel := style.Render(body)

	var helpView string
	if m.settings {
		helpView = m.help.View(settingsKeys{m.keys})
	} else {
		helpView = m.help.View(mainKeys{m.keys})
	}
	out := lipgloss.JoinVertical(lipgloss.Center, panel, "", mutedStyle.Render(helpView))
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, out)
	}
	return out
}

func (m Model) timerView() string {
	v := m.view
	color := phaseColor(v.Phase)
	if v.State == session.Complete {
		color = Done
	}
	ring := lipgloss.NewStyle().Foreground(color).Render(render.Glyph(v.Progress))

	lines := []string{titleStyle.Render("stillness"), ""}
	label := render.PhaseLabel(v)
	switch v.State {
	case session.Running:
		lines = append(lines,
			ring+"  "+lipgloss.NewStyle().Foreground(color).Render(label),
			timerStyle.Render(v.RemainingText),
			m.bar.ViewAs(v.Progress),
		)
	case session.Complete:
		lines = append(lines, ring+"  "+lipgloss.NewStyle().Foreground(color).Render(label), "", m.bar.ViewAs(1))
	default:
		lines = append(lines, ring, mutedStyle.Render(v.Durations.String()), m.bar.ViewAs(0))
	}
	lines = append(lines, "", mutedStyle.Render(render.Status(v)))
	if v.Degraded {
		lines = append(lines, warnStyle.Render("audio unavailable, timer only"))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m Model) settingsView() string {
	d := m.view.Durations
	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n\n")
	for i, f := range fields {
		lim := settings.Limits(f)
		row := fmt.Sprintf("%-9s %3d min  %s", tmpl.TitleCase(f.String()), d.Get(f), mutedStyle.Render(fmt.Sprintf("(%d–%d)", lim.Min, lim.Max)))
		if i == m.field {
			b.WriteString(selected.Render("› " + row))
		} else {
			b.WriteString(unselected.Render("  " + row))
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(mutedStyle.Render(render.TotalLabel(d)))
	return b.String()
}

// Run shows the TUI until the user quits or ctx ends. Frames come from a
// render loop started here; bell strikes flash the panel.
func Run(ctx context.Context, m *session.Machine, frameRate int) error {
	var p *tea.Program
	loop := render.NewLoop(m, render.RendererFunc(func(v session.View) {
		if p != nil {
			p.Send(frameMsg(v))
		}
	}), frameRate)

	p = tea.NewProgram(New(m, loop.Nudge),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithReportFocus(),
	)
	m.Subscribe(func(ev session.Event) {
		// Listeners may fire from inside Update; Send must not block it.
		if ev.Kind == session.EventBell || ev.Kind == session.EventPreview {
			go p.Send(flashMsg{})
		}
	})

	lctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go loop.Run(lctx)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
