// Package tui is the interactive blackjack table: a Bubble Tea model
// fed by engine events and submitting the player's commands to the
// ledger. The model never touches episode state directly; it renders
// the read-only projection the bridge hands it.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"ledgerjack/internal/blackjack"
	"ledgerjack/internal/deck"
	"ledgerjack/internal/episode"
)

// SubmitFunc submits a command to the ledger. It is called off the
// update loop; the resulting state change arrives later as a StateMsg.
type SubmitFunc func(id episode.ID, cmd blackjack.Command) error

// StateMsg delivers a fresh projection after the engine applied or
// rolled back a command.
type StateMsg struct {
	ID    episode.ID
	State blackjack.State
}

// ErrMsg surfaces a submission failure.
type ErrMsg struct {
	Err error
}

// Model is the Bubble Tea model for one blackjack session.
type Model struct {
	logger *log.Logger
	submit SubmitFunc

	input textinput.Model

	episodeID   episode.ID
	haveEpisode bool
	state       blackjack.State

	pending string // command submitted, awaiting ledger confirmation
	lastErr string
	width   int

	quitting bool
}

// New creates the model. Commands go out through submit.
func New(logger *log.Logger, submit SubmitFunc) Model {
	ti := textinput.New()
	ti.Placeholder = "deal, hit, stand or quit"
	ti.Focus()
	ti.CharLimit = 16
	ti.Width = 32
	return Model{
		logger: logger.WithPrefix("tui"),
		submit: submit,
		input:  ti,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case StateMsg:
		m.episodeID = msg.ID
		m.haveEpisode = true
		m.state = msg.State
		m.pending = ""
		m.lastErr = ""
		return m, nil

	case ErrMsg:
		m.pending = ""
		m.lastErr = msg.Err.Error()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.ToLower(strings.TrimSpace(m.input.Value()))
			m.input.SetValue("")
			return m.handleLine(line)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleLine(line string) (tea.Model, tea.Cmd) {
	if line == "" {
		return m, nil
	}
	if line == "quit" || line == "exit" || line == "q" {
		m.quitting = true
		return m, tea.Quit
	}
	cmd, err := blackjack.ParseCommand(line)
	if err != nil {
		m.lastErr = err.Error()
		return m, nil
	}
	if !m.haveEpisode {
		m.lastErr = "waiting for the episode to appear on the ledger"
		return m, nil
	}
	m.lastErr = ""
	m.pending = cmd.String()
	submit, id := m.submit, m.episodeID
	return m, func() tea.Msg {
		if err := submit(id, cmd); err != nil {
			return ErrMsg{Err: err}
		}
		return nil
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("♠ ledgerjack"))
	b.WriteString("\n\n")

	if !m.haveEpisode {
		b.WriteString(WaitingStyle.Render("Waiting for episode announcement..."))
		b.WriteString("\n\n")
	} else {
		b.WriteString(renderHand("Dealer", m.state.DealerHand))
		b.WriteString("\n")
		b.WriteString(renderHand("You   ", m.state.PlayerHand))
		b.WriteString("\n\n")
		b.WriteString(renderStatus(m.state.Status))
		b.WriteString("\n\n")
	}

	if m.pending != "" {
		b.WriteString(WaitingStyle.Render(fmt.Sprintf("Submitted %q, waiting for the ledger...", m.pending)))
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString(ErrorStyle.Render(m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("commands: deal · hit · stand · quit"))
	b.WriteString("\n")
	return b.String()
}

func renderHand(label string, h blackjack.Hand) string {
	cards := make([]string, 0, len(h.Cards))
	for _, c := range h.Cards {
		cards = append(cards, renderCard(c))
	}
	line := strings.Join(cards, " ")
	if len(h.Cards) == 0 {
		line = HelpStyle.Render("—")
	}
	return fmt.Sprintf("%s %s  %s", LabelStyle.Render(label), line, HelpStyle.Render(fmt.Sprintf("(%d)", h.Value())))
}

func renderCard(c deck.Card) string {
	if c.IsRed() {
		return RedCardStyle.Render(c.String())
	}
	return BlackCardStyle.Render(c.String())
}

func renderStatus(s blackjack.Status) string {
	var style lipgloss.Style
	switch s.Kind {
	case blackjack.Winner:
		style = WinStyle
	case blackjack.Bust:
		style = LoseStyle
	default:
		style = StatusStyle
	}
	return style.Render(s.String())
}
