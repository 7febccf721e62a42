package blackjack

import (
	"strings"

	"ledgerjack/internal/deck"
)

// points returns the blackjack point value of a rank: face value for
// 2-10, ten for face cards, eleven for a soft ace.
func points(r deck.Rank) int {
	switch {
	case r >= deck.Two && r <= deck.Ten:
		return int(r)
	case r == deck.Ace:
		return 11
	default: // J, Q, K
		return 10
	}
}

// Hand is an ordered, append-only sequence of cards.
type Hand struct {
	Cards []deck.Card `cbor:"1,keyasint"`
}

// Add appends a card to the hand.
func (h *Hand) Add(c deck.Card) {
	h.Cards = append(h.Cards, c)
}

// Value computes the hand's blackjack value from scratch: sum the card
// points with every ace soft (11), then while the total is over 21 and
// a soft ace remains, harden one ace (count it as 1). The value is
// never cached; it is a pure function of the card sequence.
func (h Hand) Value() int {
	score := 0
	aces := 0
	for _, c := range h.Cards {
		score += points(c.Rank)
		if c.IsAce() {
			aces++
		}
	}
	for score > 21 && aces > 0 {
		score -= 10
		aces--
	}
	return score
}

// Clone returns a deep copy of the hand.
func (h Hand) Clone() Hand {
	if h.Cards == nil {
		return Hand{}
	}
	cards := make([]deck.Card, len(h.Cards))
	copy(cards, h.Cards)
	return Hand{Cards: cards}
}

// String renders the hand as space-separated cards, e.g. "A♠ T♥".
func (h Hand) String() string {
	parts := make([]string, len(h.Cards))
	for i, c := range h.Cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
