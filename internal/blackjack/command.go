package blackjack

import (
	"errors"
	"fmt"

	"ledgerjack/internal/deck"
	"ledgerjack/internal/pki"
)

// Command is the closed set of player-issuable actions.
type Command uint8

const (
	// Deal starts a fresh hand from an idle (pending or finished) table.
	Deal Command = iota + 1
	// Hit draws one card into the player's hand.
	Hit
	// Stand ends the player's turn and runs the dealer out.
	Stand
)

// String returns the lowercase command name.
func (c Command) String() string {
	switch c {
	case Deal:
		return "deal"
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	default:
		return fmt.Sprintf("command(%d)", uint8(c))
	}
}

// ParseCommand maps user input to a command.
func ParseCommand(s string) (Command, error) {
	switch s {
	case "deal", "d":
		return Deal, nil
	case "hit", "h":
		return Hit, nil
	case "stand", "s":
		return Stand, nil
	default:
		return 0, fmt.Errorf("unknown command %q", s)
	}
}

// The closed rejection taxonomy. Every rejection leaves episode state
// completely untouched.
var (
	// ErrUnauthorized means no signer identity was attached to the command.
	ErrUnauthorized = errors.New("blackjack: unauthorized participant")
	// ErrNotPlayersTurn means the command needs the player's turn and the
	// player's identity, and one of those preconditions failed.
	ErrNotPlayersTurn = errors.New("blackjack: not this player's turn")
	// ErrInvalidCommand means the command is not legal for the current status.
	ErrInvalidCommand = errors.New("blackjack: invalid command for the current game state")
	// ErrGameOver means the command arrived after the hand already ended.
	ErrGameOver = errors.New("blackjack: the game is already over")
)

// StatusKind discriminates the game status variants.
type StatusKind uint8

const (
	// Pending: waiting for Deal.
	Pending StatusKind = iota + 1
	// PlayerTurn: the player may Hit or Stand.
	PlayerTurn
	// DealerTurn is transient: entered and exited inside a single Stand.
	DealerTurn
	// Bust: a terminal loss by exceeding 21; Who is the busted player.
	Bust
	// Winner: a terminal win; Who is the winning participant.
	Winner
	// Push: a terminal draw.
	Push
)

// Status is the game status with its associated participant, when the
// variant carries one (Bust and Winner).
type Status struct {
	Kind StatusKind `cbor:"1,keyasint"`
	Who  pki.PubKey `cbor:"2,keyasint"`
}

// Terminal reports whether the status ends the hand.
func (s Status) Terminal() bool {
	return s.Kind == Bust || s.Kind == Winner || s.Kind == Push
}

// String renders the status for display.
func (s Status) String() string {
	switch s.Kind {
	case Pending:
		return "Ready to deal"
	case PlayerTurn:
		return "Player's turn"
	case DealerTurn:
		return "Dealer's turn"
	case Bust:
		return fmt.Sprintf("Bust! %s loses", s.Who.Short())
	case Winner:
		return fmt.Sprintf("Winner! %s wins", s.Who.Short())
	case Push:
		return "Push (draw)"
	default:
		return "unknown"
	}
}

// Rollback is the undo token returned per applied command. It carries
// the command that was applied and a full pre-command snapshot of the
// mutable state, so the episode can restore itself exactly when the
// ledger discards the carrying transaction.
type Rollback struct {
	Cmd        Command     `cbor:"1,keyasint"`
	Deck       []deck.Card `cbor:"2,keyasint"`
	PlayerHand Hand        `cbor:"3,keyasint"`
	DealerHand Hand        `cbor:"4,keyasint"`
	Status     Status      `cbor:"5,keyasint"`
	Valid      bool        `cbor:"6,keyasint"`
}
