package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"ledgerjack/internal/blackjack"
	"ledgerjack/internal/episode"
	"ledgerjack/internal/pki"
)

// Bridge forwards engine events into the Bubble Tea program. Only
// episodes the local player participates in are surfaced; everything
// else on the ledger is somebody else's game.
type Bridge struct {
	program *tea.Program
	player  pki.PubKey
}

// NewBridge creates a bridge delivering to program for player.
func NewBridge(program *tea.Program, player pki.PubKey) *Bridge {
	return &Bridge{program: program, player: player}
}

func (b *Bridge) involves(ep *blackjack.Episode) bool {
	for _, p := range ep.Players() {
		if p == b.player {
			return true
		}
	}
	return false
}

// OnInitialize implements episode.EventHandler.
func (b *Bridge) OnInitialize(id episode.ID, ep *blackjack.Episode) {
	if b.involves(ep) {
		b.program.Send(StateMsg{ID: id, State: ep.Poll()})
	}
}

// OnCommand implements episode.EventHandler.
func (b *Bridge) OnCommand(id episode.ID, ep *blackjack.Episode, cmd blackjack.Command, authorization *pki.PubKey, meta episode.Metadata) {
	if b.involves(ep) {
		b.program.Send(StateMsg{ID: id, State: ep.Poll()})
	}
}

// OnRollback implements episode.EventHandler.
func (b *Bridge) OnRollback(id episode.ID, ep *blackjack.Episode) {
	if b.involves(ep) {
		b.program.Send(StateMsg{ID: id, State: ep.Poll()})
	}
}
