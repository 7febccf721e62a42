package tui

import (
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerjack/internal/blackjack"
	"ledgerjack/internal/deck"
	"ledgerjack/internal/episode"
)

func testModel(submit SubmitFunc) Model {
	if submit == nil {
		submit = func(id episode.ID, cmd blackjack.Command) error { return nil }
	}
	return New(log.New(io.Discard), submit)
}

func testState() blackjack.State {
	return blackjack.State{
		PlayerHand: blackjack.Hand{Cards: []deck.Card{
			deck.NewCard(deck.Spades, deck.King),
			deck.NewCard(deck.Hearts, deck.Queen),
		}},
		DealerHand: blackjack.Hand{Cards: []deck.Card{
			deck.NewCard(deck.Clubs, deck.Ten),
			deck.NewCard(deck.Diamonds, deck.Seven),
		}},
		Status: blackjack.Status{Kind: blackjack.PlayerTurn},
	}
}

func TestViewBeforeEpisode(t *testing.T) {
	m := testModel(nil)
	view := m.View()
	assert.Contains(t, view, "Waiting for episode announcement")
}

func TestViewRendersHandsAndStatus(t *testing.T) {
	m := testModel(nil)
	updated, _ := m.Update(StateMsg{ID: 1, State: testState()})
	view := updated.View()

	assert.Contains(t, view, "K♠")
	assert.Contains(t, view, "Q♥")
	assert.Contains(t, view, "T♣")
	assert.Contains(t, view, "(20)")
	assert.Contains(t, view, "(17)")
	assert.Contains(t, view, "Player's turn")
}

func TestEnterSubmitsCommand(t *testing.T) {
	var gotID episode.ID
	var gotCmd blackjack.Command
	m := testModel(func(id episode.ID, cmd blackjack.Command) error {
		gotID = id
		gotCmd = cmd
		return nil
	})

	model, _ := m.Update(StateMsg{ID: 9, State: testState()})
	m = model.(Model)
	m.input.SetValue("hit")
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(Model)

	require.NotNil(t, cmd, "a submission command must be scheduled")
	msg := cmd()
	assert.Nil(t, msg)
	assert.Equal(t, episode.ID(9), gotID)
	assert.Equal(t, blackjack.Hit, gotCmd)
	assert.True(t, strings.Contains(m.View(), "waiting for the ledger"))
}

func TestUnknownInputShowsError(t *testing.T) {
	m := testModel(nil)
	model, _ := m.Update(StateMsg{ID: 1, State: testState()})
	m = model.(Model)
	m.input.SetValue("split")
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(Model)

	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "unknown command")
}

func TestSubmitBeforeEpisodeRefused(t *testing.T) {
	called := false
	m := testModel(func(id episode.ID, cmd blackjack.Command) error {
		called = true
		return nil
	})
	m.input.SetValue("deal")
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(Model)

	assert.Nil(t, cmd)
	assert.False(t, called)
	assert.Contains(t, m.View(), "waiting for the episode")
}
