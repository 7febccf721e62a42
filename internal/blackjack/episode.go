// Package blackjack implements a heads-up blackjack episode: a
// deterministic, authorization-checked state machine advanced by
// ledger-replicated commands. Two participants are bound at
// initialization: players[0] acts, players[1] is the dealer side whose
// hand the automated dealer plays. Every observer replaying the same
// command sequence converges on identical state, including deck order:
// the shuffle is seeded from the transaction that carried the Deal.
package blackjack

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"ledgerjack/internal/deck"
	"ledgerjack/internal/episode"
	"ledgerjack/internal/pki"
	"ledgerjack/internal/randutil"
)

const dealerStandsAt = 17

// Shuffler produces the random source for a Deal's shuffle. The default
// derives it from the id of the transaction carrying the command, so
// independent replicas shuffle identically.
type Shuffler func(meta episode.Metadata) *rand.Rand

// Episode holds the authoritative game state for one blackjack hand
// sequence. It is single-threaded: the replication engine serializes
// all calls.
type Episode struct {
	players    []pki.PubKey
	deck       *deck.Deck
	playerHand Hand
	dealerHand Hand
	status     Status
	createdAt  uint64

	shuffler Shuffler
	logger   *log.Logger
}

// Option configures an Episode.
type Option func(*Episode)

// WithShuffler overrides the shuffle source, used by tests to force
// known deck orders.
func WithShuffler(s Shuffler) Option {
	return func(e *Episode) { e.shuffler = s }
}

// WithLogger sets the episode's logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Episode) { e.logger = logger.WithPrefix("blackjack") }
}

// New initializes an episode: participants recorded in order, fresh
// unshuffled deck, empty hands, status pending. It cannot fail.
func New(participants []pki.PubKey, meta episode.Metadata, opts ...Option) *Episode {
	e := &Episode{
		players:   participants,
		deck:      deck.New(),
		status:    Status{Kind: Pending},
		createdAt: meta.AcceptedAt,
		shuffler: func(meta episode.Metadata) *rand.Rand {
			return randutil.FromBytes(meta.TxID[:])
		},
		logger: log.Default().WithPrefix("blackjack"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger.Info("Initialized", "participants", len(participants))
	return e
}

// Players returns the participant identities in order: [0] player,
// [1] dealer side.
func (e *Episode) Players() []pki.PubKey {
	out := make([]pki.PubKey, len(e.players))
	copy(out, e.players)
	return out
}

// CreatedAt returns the episode's creation timestamp (unix).
func (e *Episode) CreatedAt() uint64 {
	return e.createdAt
}

// Execute validates and applies cmd. On success the returned token
// restores the exact pre-command state via Rollback. On rejection the
// state is untouched and the error is one of the closed taxonomy.
func (e *Episode) Execute(cmd Command, authorization *pki.PubKey, meta episode.Metadata) (Rollback, error) {
	if authorization == nil {
		return Rollback{}, ErrUnauthorized
	}
	// Announcements come off the public ledger, so an episode may have
	// been created without both seats filled. Such a table is
	// unplayable; rejecting every command keeps seat indexing safe.
	if len(e.players) < 2 {
		return Rollback{}, ErrInvalidCommand
	}
	rb := e.snapshot(cmd)

	switch cmd {
	case Deal:
		// Legal from pending or any finished hand; never mid-hand.
		if e.status.Kind == PlayerTurn || e.status.Kind == DealerTurn {
			return Rollback{}, ErrInvalidCommand
		}
		rng := e.shuffler(meta)
		e.deck = deck.New()
		e.deck.Shuffle(rng)
		e.playerHand = Hand{}
		e.dealerHand = Hand{}
		// Fixed deal order: player, dealer, player, dealer.
		e.playerHand.Add(e.mustDraw())
		e.dealerHand.Add(e.mustDraw())
		e.playerHand.Add(e.mustDraw())
		e.dealerHand.Add(e.mustDraw())
		e.status = Status{Kind: PlayerTurn}
		e.logger.Debug("Dealt", "player", e.playerHand.String(), "dealer", e.dealerHand.String())
		return rb, nil

	case Hit:
		if err := e.requirePlayerTurn(*authorization); err != nil {
			return Rollback{}, err
		}
		e.playerHand.Add(e.mustDraw())
		if e.playerHand.Value() > 21 {
			e.status = Status{Kind: Bust, Who: e.players[0]}
		}
		e.logger.Debug("Hit", "player", e.playerHand.String(), "value", e.playerHand.Value())
		return rb, nil

	case Stand:
		if err := e.requirePlayerTurn(*authorization); err != nil {
			return Rollback{}, err
		}
		e.status = Status{Kind: DealerTurn}
		e.playDealerTurn()
		return rb, nil

	default:
		return Rollback{}, ErrInvalidCommand
	}
}

// Rollback restores the pre-command state captured in rb and reports
// success. A zero or foreign token is refused.
func (e *Episode) Rollback(rb Rollback) bool {
	if !rb.Valid {
		return false
	}
	e.deck = deck.FromCards(rb.Deck)
	e.playerHand = rb.PlayerHand.Clone()
	e.dealerHand = rb.DealerHand.Clone()
	e.status = rb.Status
	e.logger.Debug("Rolled back", "cmd", rb.Cmd, "status", e.status)
	return true
}

// State is the read-only projection handed to observers.
type State struct {
	PlayerHand Hand   `cbor:"1,keyasint"`
	DealerHand Hand   `cbor:"2,keyasint"`
	Status     Status `cbor:"3,keyasint"`
}

// String renders the projection for terminal display.
func (s State) String() string {
	return fmt.Sprintf("player %s (%d) | dealer %s (%d) | %s",
		s.PlayerHand, s.PlayerHand.Value(), s.DealerHand, s.DealerHand.Value(), s.Status)
}

// Poll returns an immutable snapshot of the observable state. Hands are
// deep-copied; callers may retain the result freely.
func (e *Episode) Poll() State {
	return State{
		PlayerHand: e.playerHand.Clone(),
		DealerHand: e.dealerHand.Clone(),
		Status:     e.status,
	}
}

// requirePlayerTurn gates the turn-dependent commands: the hand must be
// live, in the player's turn, and the actor must be the player seat.
// A finished hand reports the dedicated game-over rejection.
func (e *Episode) requirePlayerTurn(actor pki.PubKey) error {
	if e.status.Terminal() {
		return ErrGameOver
	}
	if e.status.Kind != PlayerTurn || actor != e.players[0] {
		return ErrNotPlayersTurn
	}
	return nil
}

// playDealerTurn runs the fixed-threshold dealer: hit below 17, stand
// at 17 or above, then settle by score comparison. It never errors.
func (e *Episode) playDealerTurn() {
	for e.dealerHand.Value() < dealerStandsAt {
		card, ok := e.deck.Draw()
		if !ok {
			// Cannot happen in single-deck heads-up play; stop rather
			// than corrupt state if it ever does.
			e.logger.Error("Deck exhausted during dealer turn")
			break
		}
		e.dealerHand.Add(card)
	}

	playerScore := e.playerHand.Value()
	dealerScore := e.dealerHand.Value()
	e.logger.Debug("Dealer done", "dealer", e.dealerHand.String(), "dealerScore", dealerScore, "playerScore", playerScore)

	switch {
	case dealerScore > 21:
		e.status = Status{Kind: Winner, Who: e.players[0]}
	case dealerScore > playerScore:
		e.status = Status{Kind: Winner, Who: e.players[1]}
	case dealerScore < playerScore:
		e.status = Status{Kind: Winner, Who: e.players[0]}
	default:
		e.status = Status{Kind: Push}
	}
}

// snapshot captures the full pre-command state into a rollback token.
func (e *Episode) snapshot(cmd Command) Rollback {
	return Rollback{
		Cmd:        cmd,
		Deck:       e.deck.Cards(),
		PlayerHand: e.playerHand.Clone(),
		DealerHand: e.dealerHand.Clone(),
		Status:     e.status,
		Valid:      true,
	}
}

// mustDraw draws a card, treating exhaustion as a contract violation.
// Draws are bounded well under 52 for the defined command sequences, so
// this only fires on corrupted state.
func (e *Episode) mustDraw() deck.Card {
	card, ok := e.deck.Draw()
	if !ok {
		panic("blackjack: draw from empty deck")
	}
	return card
}
