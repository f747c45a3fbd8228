// Package tui provides a Bubble Tea terminal user interface for workshop-downloader.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/workshop-downloader/internal/config"
	"github.com/handiism/workshop-downloader/internal/download"
	"github.com/handiism/workshop-downloader/internal/model"
	"github.com/handiism/workshop-downloader/internal/registry"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateLoading State = iota
	StateInstalling
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// itemRow is the dashboard line of one requested item.
type itemRow struct {
	ID       model.ItemID
	Status   string
	Progress int
	Written  int64
	Total    int64
	Done     bool
	Failed   bool
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	logs     []LogEntry
	rows     []itemRow
	err      error

	ctx    context.Context
	cancel context.CancelFunc

	registry *registry.Registry
	send     func(tea.Msg)

	verbose bool

	width  int
	height int
}

// NewModel creates a TUI model that installs ids. send forwards progress
// events from worker goroutines into the program; it may be nil.
func NewModel(settings *config.Settings, ids []model.ItemID, verbose bool, send func(tea.Msg)) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	rows := make([]itemRow, len(ids))
	for i, id := range ids {
		rows[i] = itemRow{ID: id, Status: "queued"}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:    StateLoading,
		spinner:  sp,
		progress: prog,
		settings: settings,
		logs:     make([]LogEntry, 0),
		rows:     rows,
		ctx:      ctx,
		cancel:   cancel,
		send:     send,
		verbose:  verbose,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.openRegistry())
}

// Message types
type (
	// ProgressMsg is sent when install progress updates.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// OpenDoneMsg is sent when the registry has been loaded.
	OpenDoneMsg struct {
		Registry *registry.Registry
		Err      error
	}

	// InstallDoneMsg is sent when every requested install has returned.
	InstallDoneMsg struct {
		Results []download.Result
	}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateLoading || m.state == StateInstalling {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			} else {
				return m, tea.Quit
			}

		case "v":
			m.verbose = !m.verbose

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		m.applyEvent(msg.Event)
		cmds = append(cmds, m.progress.SetPercent(m.percent()))

		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			break
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		// Keep only last 10 logs
		if len(m.logs) > 10 {
			m.logs = m.logs[len(m.logs)-10:]
		}

	case OpenDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			break
		}
		m.registry = msg.Registry
		if m.state == StateLoading {
			m.state = StateInstalling
			cmds = append(cmds, m.startInstalls())
		}

	case InstallDoneMsg:
		for _, res := range msg.Results {
			m.applyResult(res)
		}
		if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else {
			m.state = StateComplete
		}
		cmds = append(cmds, m.progress.SetPercent(m.percent()))

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) applyEvent(event download.ProgressEvent) {
	for i := range m.rows {
		row := &m.rows[i]
		if row.ID != event.ItemID || row.Done {
			continue
		}
		if event.Status != "" {
			row.Status = event.Status
			row.Progress = event.Progress
			row.Written, row.Total = event.Written, event.Total
		}
		if event.Level == download.LevelError {
			row.Status = "failed"
		}
	}
}

func (m *Model) applyResult(res download.Result) {
	for i := range m.rows {
		row := &m.rows[i]
		if row.ID != res.ItemID {
			continue
		}
		row.Done = true
		row.Failed = !res.OK()
		switch {
		case download.IsCanceled(res.Err):
			row.Status = "canceled"
		case row.Failed:
			row.Status = res.Kind().String()
		default:
			row.Status = res.Outcome.String()
			row.Progress = 100
		}
	}
}

// percent is the mean progress over all rows; finished rows count as full.
func (m Model) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	var sum int
	for _, row := range m.rows {
		if row.Done {
			sum += 100
			continue
		}
		sum += min(max(row.Progress, 0), 100)
	}
	return float64(sum) / float64(100*len(m.rows))
}

func (m Model) counts() (ok, failed int) {
	for _, row := range m.rows {
		switch {
		case row.Done && row.Failed:
			failed++
		case row.Done:
			ok++
		}
	}
	return ok, failed
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("📦 Workshop Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Content root: %s", m.settings.ContentRoot)))
	b.WriteString("\n\n")

	switch m.state {
	case StateLoading:
		b.WriteString(m.viewLoading())
	case StateInstalling:
		b.WriteString(m.viewInstalling())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewLoading() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Scanning installed items..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewInstalling() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Installing %d item(s):", len(m.rows))))
	b.WriteString("\n")
	b.WriteString(m.renderRows())
	b.WriteString("\n")

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")

	ok, failed := m.counts()
	b.WriteString(infoStyle.Render(fmt.Sprintf("Done: %d/%d | Failed: %d", ok+failed, len(m.rows), failed)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	ok, failed := m.counts()
	box := boxStyle.Render(fmt.Sprintf(
		"✨ Install Complete!\n\n"+
			"Installed: %d\n"+
			"Failed: %d",
		ok,
		failed,
	))
	b.WriteString(box)
	b.WriteString("\n\n")
	b.WriteString(m.renderRows())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderRows())

	return b.String()
}

func (m Model) renderRows() string {
	var b strings.Builder

	for _, row := range m.rows {
		line := fmt.Sprintf("  %-12s %s", row.ID, row.Status)
		switch {
		case row.Done && row.Failed:
			b.WriteString(errorStyle.Render("✗" + line))
		case row.Done:
			b.WriteString(successStyle.Render("✓" + line))
		case row.Total > 0:
			b.WriteString(itemStyle.Render(fmt.Sprintf("•%s %s/%s %d%%", line, megabytes(row.Written), megabytes(row.Total), row.Progress)))
		case row.Written > 0:
			b.WriteString(itemStyle.Render(fmt.Sprintf("•%s %s", line, megabytes(row.Written))))
		default:
			b.WriteString(itemStyle.Render(fmt.Sprintf("•%s %d%%", line, row.Progress)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func megabytes(n int64) string {
	return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateLoading, StateInstalling:
		return "esc: cancel • v: verbose"
	case StateComplete, StateError:
		return "q: quit • v: verbose"
	}
	return ""
}

// openRegistry loads the content root and wires progress into the program.
func (m Model) openRegistry() tea.Cmd {
	settings, send := m.settings, m.send
	return func() tea.Msg {
		reg, err := registry.Open(settings, registry.NopNotifier{}, func(event download.ProgressEvent) {
			if send != nil {
				send(ProgressMsg{Event: event})
			}
		})
		return OpenDoneMsg{Registry: reg, Err: err}
	}
}

// startInstalls installs every requested item in the background.
func (m Model) startInstalls() tea.Cmd {
	ctx, reg := m.ctx, m.registry
	ids := make([]model.ItemID, len(m.rows))
	for i, row := range m.rows {
		ids[i] = row.ID
	}
	return func() tea.Msg {
		return InstallDoneMsg{Results: reg.InstallAll(ctx, ids)}
	}
}

// Run starts the TUI application and installs ids.
func Run(settings *config.Settings, ids []model.ItemID, verbose bool) error {
	var p *tea.Program
	send := func(msg tea.Msg) {
		if p != nil {
			p.Send(msg)
		}
	}

	m := NewModel(settings, ids, verbose, send)
	p = tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	m.cancel()
	return err
}
