package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/bookpack/internal/models"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Quote   lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Quote:   lipgloss.Color("#D7AF87"), // tan
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) quoteStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Quote).Italic(true)
}

// ingestSteps are the progress steps in display order.
var ingestSteps = []string{
	models.StepFetchDetails,
	models.StepGoodreads,
	models.StepReddit,
	models.StepCriticReviews,
	models.StepBuildKnowledge,
}

// eventMsg carries one ingestion event.
type eventMsg models.IngestionEvent

// streamEndMsg reports the event stream ending.
type streamEndMsg struct {
	err error
}

// progressModel is the bubbletea model for one ingestion.
type progressModel struct {
	meta     models.BookMetadata
	events   <-chan models.IngestionEvent
	end      <-chan error
	status   map[string]models.EventStatus
	quote    string
	final    *models.IngestionEvent
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newProgressModel(meta models.BookMetadata, events <-chan models.IngestionEvent, end <-chan error) progressModel {
	return progressModel{
		meta:   meta,
		events: events,
		end:    end,
		status: make(map[string]models.EventStatus),
		progress: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(40),
		),
		theme: defaultTheme,
	}
}

// Init starts listening for events.
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.progress.Init())
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case eventMsg:
		e := models.IngestionEvent(msg)
		m.status[e.Step] = e.Status
		if e.Quote != "" {
			m.quote = e.Quote
		}
		if e.Terminal() {
			m.final = &e
			m.done = true
			if e.Status == models.StatusFailed {
				m.err = fmt.Errorf("%w: %s", errIngestFailed, e.Step)
			}
			return m, tea.Quit
		}
		return m, m.waitForEvent()

	case streamEndMsg:
		m.done = true
		switch {
		case msg.err != nil:
			m.err = msg.err
		case m.final == nil:
			m.err = fmt.Errorf("stream ended before the book was ready")
		}
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// settled returns the fraction of steps that are done or failed.
func (m progressModel) settled() float64 {
	n := 0
	for _, step := range ingestSteps {
		if s := m.status[step]; s == models.StatusDone || s == models.StatusFailed {
			n++
		}
	}
	return float64(n) / float64(len(ingestSteps))
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", m.theme.statusStyle().Render("Ingesting"), m.meta.Title)
	for _, step := range ingestSteps {
		fmt.Fprintf(&b, "  %s %s\n", m.icon(m.status[step]), step)
	}
	fmt.Fprintf(&b, "\n%s\n", m.progress.ViewAs(m.settled()))
	if m.quote != "" {
		fmt.Fprintf(&b, "\n%s\n", m.theme.quoteStyle().Render("“"+m.quote+"”"))
	}
	b.WriteString(m.theme.hintStyle().Render("Press Ctrl+C to continue in background") + "\n")
	return b.String()
}

func (m progressModel) icon(s models.EventStatus) string {
	switch s {
	case models.StatusLoading:
		return m.theme.statusStyle().Render("…")
	case models.StatusDone:
		return m.theme.completedStyle().Render("✓")
	case models.StatusFailed:
		return m.theme.errorStyle().Render("✗")
	default:
		return m.theme.hintStyle().Render("·")
	}
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nIngestion of %s continues on the server.\nUse 'bookpack jobs' to check status.\n", m.meta.ID)
		return m.theme.hintStyle().Render(msg)
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s\n", m.err))
	}
	out := m.theme.completedStyle().Render("✓ Ready") + "\n\n"
	if m.final != nil {
		out += renderSummary(*m.final)
	}
	return out
}

// waitForEvent delivers the next event, or the stream's end.
func (m progressModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return streamEndMsg{err: <-m.end}
		}
		return eventMsg(e)
	}
}

// RunIngestProgress runs the interactive progress UI for one ingestion.
// Returns nil on success or Ctrl+C (the run continues on the server),
// error on failure.
func RunIngestProgress(ctx context.Context, meta models.BookMetadata, follow followFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan models.IngestionEvent)
	end := make(chan error, 1)
	go func() {
		err := follow(ctx, meta, func(e models.IngestionEvent) error {
			select {
			case events <- e:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		close(events)
		end <- err
	}()

	p := tea.NewProgram(newProgressModel(meta, events, end))
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}
	return nil
}
