package blackjack

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledgerjack/internal/deck"
)

func hand(cards ...deck.Card) Hand {
	h := Hand{}
	for _, c := range cards {
		h.Add(c)
	}
	return h
}

func card(suit deck.Suit, rank deck.Rank) deck.Card {
	return deck.NewCard(suit, rank)
}

func TestHandValue(t *testing.T) {
	tests := []struct {
		name string
		hand Hand
		want int
	}{
		{
			name: "empty hand",
			hand: Hand{},
			want: 0,
		},
		{
			name: "number cards",
			hand: hand(card(deck.Spades, deck.Two), card(deck.Hearts, deck.Nine)),
			want: 11,
		},
		{
			name: "face cards count ten",
			hand: hand(card(deck.Spades, deck.Jack), card(deck.Hearts, deck.Queen)),
			want: 20,
		},
		{
			name: "soft ace",
			hand: hand(card(deck.Spades, deck.Ace), card(deck.Hearts, deck.Six)),
			want: 17,
		},
		{
			name: "blackjack",
			hand: hand(card(deck.Spades, deck.Ace), card(deck.Hearts, deck.King)),
			want: 21,
		},
		{
			name: "ace hardens to avoid bust",
			hand: hand(card(deck.Spades, deck.Ace), card(deck.Hearts, deck.Nine), card(deck.Clubs, deck.Five)),
			want: 15,
		},
		{
			name: "two aces, one hardens",
			hand: hand(card(deck.Spades, deck.Ace), card(deck.Hearts, deck.Ace)),
			want: 12,
		},
		{
			name: "two aces with ten, both harden",
			hand: hand(card(deck.Spades, deck.Ace), card(deck.Hearts, deck.Ace), card(deck.Clubs, deck.Ten)),
			want: 12,
		},
		{
			name: "four aces",
			hand: hand(
				card(deck.Spades, deck.Ace), card(deck.Hearts, deck.Ace),
				card(deck.Diamonds, deck.Ace), card(deck.Clubs, deck.Ace),
			),
			want: 14,
		},
		{
			name: "bust when no ace can save it",
			hand: hand(card(deck.Spades, deck.King), card(deck.Hearts, deck.Queen), card(deck.Clubs, deck.Five)),
			want: 25,
		},
		{
			name: "hardened aces still bust past all reductions",
			hand: hand(
				card(deck.Spades, deck.Ace), card(deck.Hearts, deck.King),
				card(deck.Clubs, deck.Queen), card(deck.Diamonds, deck.Two),
			),
			want: 23,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.hand.Value())
		})
	}
}

func TestHandValueIsPure(t *testing.T) {
	h := hand(card(deck.Spades, deck.Ace), card(deck.Hearts, deck.Nine))
	assert.Equal(t, 20, h.Value())
	assert.Equal(t, 20, h.Value(), "repeated reads must not change the value")

	h.Add(card(deck.Clubs, deck.Five))
	assert.Equal(t, 15, h.Value(), "ace must soften after the draw")
}

func TestHandCloneIsDeep(t *testing.T) {
	h := hand(card(deck.Spades, deck.Two))
	clone := h.Clone()
	clone.Add(card(deck.Hearts, deck.Three))

	assert.Len(t, h.Cards, 1)
	assert.Len(t, clone.Cards, 2)
}

func TestHandString(t *testing.T) {
	h := hand(card(deck.Spades, deck.Ace), card(deck.Hearts, deck.Ten))
	assert.Equal(t, "A♠ T♥", h.String())
}
