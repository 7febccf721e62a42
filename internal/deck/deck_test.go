package deck

import (
	"testing"

	"ledgerjack/internal/randutil"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := New()
	if d.Remaining() != Size {
		t.Fatalf("expected %d cards, got %d", Size, d.Remaining())
	}

	seen := make(map[Card]bool)
	for _, c := range d.Cards() {
		if seen[c] {
			t.Errorf("duplicate card %s", c)
		}
		seen[c] = true
	}
	if len(seen) != Size {
		t.Errorf("expected %d distinct cards, got %d", Size, len(seen))
	}
}

func TestShuffleIsAPermutation(t *testing.T) {
	d := New()
	before := make(map[Card]int)
	for _, c := range d.Cards() {
		before[c]++
	}

	d.Shuffle(randutil.New(42))

	after := make(map[Card]int)
	for _, c := range d.Cards() {
		after[c]++
	}
	if len(after) != len(before) {
		t.Fatalf("shuffle changed card multiset: %d vs %d distinct", len(after), len(before))
	}
	for c, n := range before {
		if after[c] != n {
			t.Errorf("card %s count changed from %d to %d", c, n, after[c])
		}
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	a, b := New(), New()
	a.Shuffle(randutil.New(7))
	b.Shuffle(randutil.New(7))

	ca, cb := a.Cards(), b.Cards()
	for i := range ca {
		if ca[i] != cb[i] {
			t.Fatalf("same seed produced different orders at index %d: %s vs %s", i, ca[i], cb[i])
		}
	}

	c := New()
	c.Shuffle(randutil.New(8))
	same := true
	for i, card := range c.Cards() {
		if card != ca[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical orders")
	}
}

func TestDrawIsAStack(t *testing.T) {
	d := FromCards([]Card{
		NewCard(Spades, Two),
		NewCard(Hearts, King),
		NewCard(Clubs, Ace),
	})

	want := []Card{
		NewCard(Clubs, Ace),
		NewCard(Hearts, King),
		NewCard(Spades, Two),
	}
	for i, w := range want {
		got, ok := d.Draw()
		if !ok {
			t.Fatalf("draw %d: unexpected empty deck", i)
		}
		if got != w {
			t.Errorf("draw %d: got %s, want %s", i, got, w)
		}
	}

	if !d.IsEmpty() {
		t.Error("deck should be empty")
	}
	if _, ok := d.Draw(); ok {
		t.Error("draw from empty deck should report false")
	}
}

func TestCardString(t *testing.T) {
	tests := []struct {
		card Card
		want string
	}{
		{NewCard(Spades, Ace), "A♠"},
		{NewCard(Hearts, Ten), "T♥"},
		{NewCard(Diamonds, Two), "2♦"},
		{NewCard(Clubs, Queen), "Q♣"},
	}
	for _, tt := range tests {
		if got := tt.card.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
