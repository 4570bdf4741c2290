package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	dashTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dashMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dashOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dashFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	dashPanelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dashNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

type snapshotMsg Snapshot

type eventMsg string

type dashDoneMsg struct{}

type dashModel struct {
	bar      progress.Model
	snap     Snapshot
	events   []string
	width    int
	stopping bool
	shutdown *ShutdownController
}

// maxDashEvents bounds the scrollback kept on screen.
const maxDashEvents = 8

func newDashModel(label string, total int, shutdown *ShutdownController) dashModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40
	return dashModel{
		bar:      bar,
		snap:     Snapshot{Label: label, Total: total},
		shutdown: shutdown,
	}
}

func (m dashModel) Init() tea.Cmd {
	return nil
}

func (m dashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 30; w > 10 && w < 60 {
			m.bar.Width = w
		}
		return m, nil
	case tea.KeyMsg:
		// The program owns the terminal, so ctrl+c arrives here as a key
		// rather than as SIGINT. Forward it so the two-stage semantics
		// apply either way.
		if msg.Type == tea.KeyCtrlC {
			if m.shutdown != nil {
				m.shutdown.RequestShutdown()
			}
			m.stopping = true
		}
		return m, nil
	case snapshotMsg:
		m.snap = Snapshot(msg)
		return m, nil
	case eventMsg:
		m.events = append(m.events, string(msg))
		if len(m.events) > maxDashEvents {
			m.events = m.events[len(m.events)-maxDashEvents:]
		}
		return m, nil
	case dashDoneMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m dashModel) View() string {
	s := m.snap
	var b strings.Builder

	b.WriteString(dashTitleStyle.Render(fmt.Sprintf("scenesync · %s wave", s.Label)))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(s.Percent()))
	b.WriteString(fmt.Sprintf("  %d/%d", s.Completed, s.Total))
	b.WriteString("\n\n")

	line := fmt.Sprintf("%s %d   %s %d   %s %d",
		dashOKStyle.Render("ok"), s.Succeeded+s.Skipped,
		dashFailStyle.Render("dl-fail"), s.FailedDownloads,
		dashFailStyle.Render("proc-fail"), s.FailedProcessing,
	)
	b.WriteString(line)
	b.WriteString("\n")
	b.WriteString(dashMutedStyle.Render(fmt.Sprintf("%.1f scenes/min · eta %s · elapsed %s",
		s.RatePerMin, formatETA(s.ETA), s.Elapsed.Round(time.Second))))
	b.WriteString("\n")

	if len(m.events) > 0 {
		b.WriteString("\n")
		b.WriteString(dashMutedStyle.Render(strings.Join(m.events, "\n")))
		b.WriteString("\n")
	}

	if m.stopping {
		b.WriteString("\n")
		b.WriteString(dashNoticeStyle.Render("shutdown requested: finishing in-flight scenes, ctrl+c again to abort"))
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
		b.WriteString(dashMutedStyle.Render("ctrl+c to stop gracefully"))
		b.WriteString("\n")
	}

	return dashPanelStyle.Render(b.String()) + "\n"
}

func formatETA(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	return d.Round(time.Second).String()
}

// Dashboard is the interactive progress surface for foreground runs. It
// implements StatusSink; snapshots and event lines are forwarded into the
// running program.
type Dashboard struct {
	prog *tea.Program
	done chan error
}

// StartDashboard launches the terminal UI for one wave.
func StartDashboard(label string, total int, shutdown *ShutdownController) *Dashboard {
	d := &Dashboard{done: make(chan error, 1)}
	d.prog = tea.NewProgram(newDashModel(label, total, shutdown))
	go func() {
		_, err := d.prog.Run()
		d.done <- err
	}()
	return d
}

// Publish implements StatusSink.
func (d *Dashboard) Publish(s Snapshot) {
	d.prog.Send(snapshotMsg(s))
}

// Event appends a line to the dashboard's scrollback.
func (d *Dashboard) Event(line string) {
	d.prog.Send(eventMsg(line))
}

// Finish pushes the final snapshot, quits the program, and waits for the
// terminal to be restored.
func (d *Dashboard) Finish(final Snapshot) error {
	d.prog.Send(snapshotMsg(final))
	d.prog.Send(dashDoneMsg{})
	return <-d.done
}
