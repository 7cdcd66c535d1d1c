package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/pkg/ui/components"
)

// QuoteFunc prices the watched request once.
type QuoteFunc func(ctx context.Context) (*domain.QuoteResult, error)

// StatusFunc reports dependency health; it runs once per round.
type StatusFunc func(ctx context.Context) []StatusMsg

// Config tunes the watch dashboard.
type Config struct {
	// Title describes the watched request.
	Title       string
	Interval    time.Duration
	Timeout     time.Duration
	HistorySize int
}

// statusBatchMsg carries one round of status reports.
type statusBatchMsg []StatusMsg

// Model is the Bubble Tea model of the watch dashboard. It re-quotes every
// Interval and keeps the best route, its fees and a quote history.
type Model struct {
	cfg    Config
	quote  QuoteFunc
	status StatusFunc

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	history  *components.HistoryComponent
	statuses *components.StatusComponent

	last     *domain.QuoteResult
	lastErr  error
	lastAt   time.Time
	rounds   int
	quoting  bool
	paused   bool
	quitting bool
	width    int
}

// New creates the dashboard. status may be nil.
func New(cfg Config, quote QuoteFunc, status StatusFunc) Model {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	return Model{
		cfg:      cfg,
		quote:    quote,
		status:   status,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		history:  components.NewHistoryComponent(cfg.HistorySize),
		statuses: components.NewStatusComponent(),
		quoting:  true,
	}
}

// Init starts the first round.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.roundCmd())
}

func (m Model) roundCmd() tea.Cmd {
	cmds := []tea.Cmd{m.quoteCmd()}
	if m.status != nil {
		cmds = append(cmds, m.statusCmd())
	}
	return tea.Batch(cmds...)
}

func (m Model) quoteCmd() tea.Cmd {
	quote, timeout := m.quote, m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		res, err := quote(ctx)
		return QuoteMsg{Result: res, Err: err, Latency: time.Since(start), At: start}
	}
}

func (m Model) statusCmd() tea.Cmd {
	status, timeout := m.status, m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return statusBatchMsg(status(ctx))
	}
}

func (m Model) scheduleCmd() tea.Cmd {
	return tea.Tick(m.cfg.Interval, func(t time.Time) tea.Msg {
		return TickMsg{At: t}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if !m.paused && !m.quoting {
				m.quoting = true
				return m, m.roundCmd()
			}
		case key.Matches(msg, m.keys.Refresh):
			if !m.quoting {
				m.quoting = true
				return m, m.roundCmd()
			}
		case key.Matches(msg, m.keys.Clear):
			m.history.Clear()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case QuoteMsg:
		m.quoting = false
		m.rounds++
		m.lastAt = msg.At
		m.history.Add(historyRow(msg))
		if msg.Err != nil {
			m.lastErr = msg.Err
		} else {
			m.last, m.lastErr = msg.Result, nil
		}
		if m.paused {
			return m, nil
		}
		return m, m.scheduleCmd()

	case TickMsg:
		if m.paused || m.quoting {
			return m, nil
		}
		m.quoting = true
		return m, m.roundCmd()

	case statusBatchMsg:
		for _, st := range msg {
			m.updateStatus(st)
		}
		return m, nil

	case StatusMsg:
		m.updateStatus(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateStatus(st StatusMsg) {
	m.statuses.Update(components.DependencyStatus{
		Name:       st.Name,
		Healthy:    st.Healthy,
		Message:    st.Message,
		LastUpdate: time.Now(),
	})
}

func historyRow(msg QuoteMsg) components.HistoryRow {
	row := components.HistoryRow{At: msg.At, Latency: msg.Latency}
	if msg.Err != nil {
		row.Err = errorText(msg.Err)
		return row
	}
	if msg.Result == nil {
		row.Err = "empty quote"
		return row
	}
	row.Provider = msg.Result.Provider
	if row.Provider == "" {
		row.Provider = string(msg.Result.Strategy)
	}
	row.AmountOut = msg.Result.AmountOut.String()
	row.OutDecimal = msg.Result.AmountOut.ToDecimal()
	row.Impact = msg.Result.PriceImpact.String()
	return row
}

func errorText(err error) string {
	code := apperror.GetCode(apperror.Surface(err))
	if code == apperror.CodeUnknownError {
		return err.Error()
	}
	return string(code)
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(" omniroute watch "))
	if m.cfg.Title != "" {
		b.WriteString("  ")
		b.WriteString(HeaderStyle.Render(m.cfg.Title))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	var quoteView string
	switch {
	case m.last != nil:
		quoteView = RenderQuote(m.last)
	case m.lastErr != nil:
		quoteView = NegativeValue.Render(m.lastErr.Error())
	default:
		quoteView = MutedValue.Render("Quoting...")
	}

	right := m.history.View() + "\n\n" + HeaderStyle.Render("DEPENDENCIES") + "\n" + m.statuses.View()
	if m.width > 110 {
		left := BoxStyle.Width(m.width/2 - 2).Render(quoteView)
		rightBox := BoxStyle.Width(m.width/2 - 2).Render(right)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, rightBox))
	} else {
		b.WriteString(BoxStyle.Render(quoteView))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(right))
	}
	b.WriteString("\n")

	if m.last != nil && m.lastErr != nil {
		b.WriteString(NegativeValue.Render("last round failed: " + errorText(m.lastErr)))
		b.WriteString("\n")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	switch {
	case m.paused:
		parts = append(parts, WarningValue.Render("⏸ PAUSED"))
	case m.quoting:
		parts = append(parts, m.spinner.View()+" quoting")
	default:
		parts = append(parts, PositiveValue.Render("● idle"))
	}
	parts = append(parts, fmt.Sprintf("Rounds: %d", m.rounds))
	parts = append(parts, fmt.Sprintf("Every %s", m.cfg.Interval))
	if !m.lastAt.IsZero() {
		parts = append(parts, MutedValue.Render("Last: "+m.lastAt.Format("15:04:05")))
	}
	return strings.Join(parts, "  │  ")
}

// Run starts the dashboard and blocks until the user quits or ctx ends.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
