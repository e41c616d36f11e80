package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/signalboard/sigdebate/internal/client"
	"github.com/signalboard/sigdebate/internal/models"
)

const pollInterval = time.Second

// minTurns is the smallest roster a debate can have: three analysts plus the
// orchestrator summary. Used to scale the progress bar before the first poll.
const minTurns = 4

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
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

// tickMsg triggers polling the session status
type tickMsg time.Time

// sessionUpdateMsg carries the polled session state
type sessionUpdateMsg struct {
	session  *models.Session
	messages []models.Message
	err      error
}

// runDoneMsg signals that the blocking run call returned.
type runDoneMsg struct {
	session *models.Session
	err     error
}

// progressModel is the bubbletea model for debate progress.
type progressModel struct {
	client    *client.Client
	sessionID string
	session   *models.Session
	messages  []models.Message
	progress  progress.Model
	theme     Theme
	done      bool
	quitting  bool
	err       error
}

// newProgressModel creates a new progress model.
func newProgressModel(c *client.Client, sessionID string) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		client:    c,
		sessionID: sessionID,
		progress:  prog,
		theme:     defaultTheme,
	}
}

// Init starts the run in the background and kicks off polling.
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		m.startRun(),
		tickCmd(),
		m.progress.Init(),
	)
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

	case tickMsg:
		return m, m.fetchSession()

	case sessionUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch session: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.session = msg.session
		m.messages = msg.messages

		if m.session.State.Terminal() {
			m.done = true
			if m.session.State == models.StateFailed {
				m.err = fmt.Errorf("%s", m.session.FailureReason)
			}
			return m, tea.Quit
		}
		return m, tickCmd()

	case runDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.done = true
			return m, tea.Quit
		}
		// Let the next poll pick up the terminal state and messages.
		return m, nil

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.session == nil {
		return "Starting debate...\n"
	}

	total := minTurns
	if len(m.messages) >= total {
		total = len(m.messages) + 1
	}
	pct := float64(len(m.messages)) / float64(total)

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.session.State))
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d turns", len(m.messages), total)

	lastTurn := ""
	if n := len(m.messages); n > 0 {
		lastTurn = m.theme.hintStyle().Render(fmt.Sprintf("last: %s", m.messages[n-1].Role))
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to detach, the session keeps running")

	return fmt.Sprintf("%s %s %s %s\n%s\n", status, progressBar, counts, lastTurn, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nSession %s continues on the server.\nUse 'sigdebate show %s' to check its outcome.\n",
			m.sessionID, m.sessionID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Debate failed: %s\n", m.err))
	}

	if m.session != nil && m.session.Outcome != nil {
		o := m.session.Outcome
		var output string
		output += m.theme.completedStyle().Render("✓ Debate completed") + "\n\n"
		output += fmt.Sprintf("  consensus:      %v\n", o.ConsensusReached)
		if o.FinalRecommendation != nil {
			output += fmt.Sprintf("  recommendation: %s\n", *o.FinalRecommendation)
		}
		if o.ConfidenceScore != nil {
			output += fmt.Sprintf("  confidence:     %.2f\n", *o.ConfidenceScore)
		}
		output += fmt.Sprintf("  turns:          %d\n", len(m.messages))
		return output
	}

	if m.session != nil && m.session.State == models.StateCancelled {
		return m.theme.hintStyle().Render("\nSession was cancelled.\n")
	}

	return m.theme.completedStyle().Render("✓ Debate completed\n")
}

// startRun kicks off the blocking run call in a command goroutine.
func (m progressModel) startRun() tea.Cmd {
	return func() tea.Msg {
		session, err := m.client.Run(context.Background(), m.sessionID)
		return runDoneMsg{session: session, err: err}
	}
}

// fetchSession polls the current session state and message log.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m progressModel) fetchSession() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		session, err := m.client.GetSession(ctx, m.sessionID)
		if err != nil {
			return sessionUpdateMsg{err: err}
		}
		messages, err := m.client.ListMessages(ctx, m.sessionID, 0, 0)
		return sessionUpdateMsg{session: session, messages: messages, err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunSessionProgress runs a session with the interactive progress UI.
// Returns nil on success or Ctrl+C (detach), error on debate failure.
func RunSessionProgress(c *client.Client, sessionID string) error {
	model := newProgressModel(c, sessionID)
	p := tea.NewProgram(model)

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
		if m.session != nil {
			printSession(m.session)
		}
	}

	return nil
}
