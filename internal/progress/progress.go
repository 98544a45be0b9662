// Package progress implements the default progress-notification
// consumer behind executor.Progress: a ticking bar plus a
// line-budget-truncated list of currently running step names,
// rendered with bubbletea/bubbles/lipgloss. Grounded on the teacher's
// internal/tui/components.Progress component and, for the truncation
// and available-width arithmetic, the original Rust implementation's
// indicatif + terminal_size usage (original_source/src/lib.rs).
package progress

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"forgerun/internal/executor"
)

// reservedWidth is how much horizontal space the bar, counters, and
// surrounding punctuation consume, mirroring the original
// implementation's fixed 44-column reservation.
const reservedWidth = 44

// UpdateMsg reports the scheduler's state after a dispatch decision.
type UpdateMsg struct {
	Total     int
	Completed int
	Running   []string
}

type doneMsg struct{}

type tickMsg struct{}

// Model is the bubbletea model for the run's progress view.
type Model struct {
	bar       progress.Model
	total     int
	completed int
	running   []string
	width     int
	done      bool
}

// NewModel constructs a Model sized to the current terminal width, or
// 80 columns if the width cannot be determined (not a TTY, piped
// output, and so on).
func NewModel() Model {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30

	return Model{bar: bar, width: width}
}

// Init starts the steady redraw tick.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// Update applies an UpdateMsg or the terminal completion signal.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tickCmd()
	case UpdateMsg:
		m.total = msg.Total
		m.completed = msg.Completed
		m.running = msg.Running
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the bar and the truncated running-step summary.
func (m Model) View() string {
	if m.done {
		return ""
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = math.Min(1.0, float64(m.completed)/float64(m.total))
	}

	counter := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("[%4d/%-4d]", m.completed, m.total))

	availWidth := m.width - reservedWidth
	summary := executor.TruncateEllipsis(max(availWidth, 0), fmt.Sprintf("%d: %s", len(m.running), strings.Join(m.running, ", ")))

	return lipgloss.JoinHorizontal(lipgloss.Left, m.bar.ViewAs(ratio), " ", counter, " ", summary)
}

// Reporter drives a bubbletea.Program in the background and exposes a
// Report method matching executor.Progress's signature, so it can be
// passed directly as the executor's progress callback.
type Reporter struct {
	program *tea.Program
	done    chan struct{}
}

// NewReporter starts the progress program against os.Stdout. Callers
// must call Close once the run finishes.
func NewReporter() *Reporter {
	program := tea.NewProgram(NewModel())
	done := make(chan struct{})

	go func() {
		_, _ = program.Run()
		close(done)
	}()

	return &Reporter{program: program, done: done}
}

// Report implements executor.Progress.
func (r *Reporter) Report(total, completed int, running []string) {
	if r == nil || r.program == nil {
		return
	}
	r.program.Send(UpdateMsg{Total: total, Completed: completed, Running: running})
}

// Close signals the program to quit and waits for it to exit.
func (r *Reporter) Close() {
	if r == nil || r.program == nil {
		return
	}
	r.program.Send(doneMsg{})
	<-r.done
}
