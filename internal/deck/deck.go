package deck

import rand "math/rand/v2"

// Size is the number of cards in a full deck.
const Size = 52

// Deck represents an ordered deck of playing cards. Cards are drawn from
// the top; the deck is treated as a stack. The deck holds no random
// source of its own: shuffling takes an explicit *rand.Rand so callers
// control determinism.
type Deck struct {
	cards []Card
}

// New creates a standard 52-card deck in canonical order: suits
// Spades..Clubs, ranks Two..Ace within each suit.
func New() *Deck {
	d := &Deck{cards: make([]Card, 0, Size)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	return d
}

// FromCards builds a deck with exactly the given cards, top of the deck
// last. Used by tests and by rollback restoration.
func FromCards(cards []Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

// Shuffle permutes the deck in place using Fisher-Yates driven by rng.
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card. The second return value is
// false when the deck is empty.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, true
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// IsEmpty returns true if the deck has no cards left.
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}

// Cards returns a copy of the deck's cards, bottom first.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
