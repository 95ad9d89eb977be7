package deck

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	rand "math/rand/v2"
)

// Deck is an ordered sequence of the 52 unique cards. Reset repopulates
// and shuffles; Deal pops from the front.
type Deck struct {
	cards   []Card
	stacked []Card
	rng     *rand.Rand
}

// New creates a full deck shuffled with a cryptographically seeded RNG.
func New() *Deck {
	var seed [16]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		panic("deck: failed to read entropy: " + err.Error())
	}
	rng := rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[0:8]),
		binary.LittleEndian.Uint64(seed[8:16]),
	))
	return NewWithRand(rng)
}

// NewWithRand creates a full shuffled deck using the provided RNG.
// Tests use this for reproducible deals.
func NewWithRand(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52), rng: rng}
	d.Reset()
	return d
}

// NewStacked creates a deck that deals the given cards in order without
// shuffling. Reset restores the same order. Test helper for deterministic
// scenarios.
func NewStacked(cards ...Card) *Deck {
	return &Deck{
		cards:   append([]Card(nil), cards...),
		stacked: append([]Card(nil), cards...),
	}
}

// Reset restores all 52 cards and shuffles. A stacked deck restores its
// scripted order instead.
func (d *Deck) Reset() {
	if d.stacked != nil {
		d.cards = append(d.cards[:0], d.stacked...)
		return
	}
	d.cards = d.cards[:0]
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
		}
	}
	d.shuffle()
}

func (d *Deck) shuffle() {
	if d.rng == nil {
		return
	}
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the top card.
func (d *Deck) Deal() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, fmt.Errorf("deck is empty")
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// DealN deals n cards from the top of the deck.
func (d *Deck) DealN(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, fmt.Errorf("cannot deal %d cards, %d remaining", n, len(d.cards))
	}
	cards := make([]Card, n)
	for i := range cards {
		c, err := d.Deal()
		if err != nil {
			return nil, err
		}
		cards[i] = c
	}
	return cards, nil
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
