package deck

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit. Suits are never ordered; only ranks
// participate in hand comparison.
type Suit string

const (
	Clubs    Suit = "c"
	Diamonds Suit = "d"
	Hearts   Suit = "h"
	Spades   Suit = "s"
)

// Suits lists all four suits in deck-building order.
var Suits = []Suit{Clubs, Diamonds, Hearts, Spades}

// Rank represents a card rank. Ace is high (14); the value 1 appears
// only transiently inside wheel-straight detection.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the single-character rank label ("2".."9", "T", "J", "Q", "K", "A").
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Nine:
		return fmt.Sprintf("%d", int(r))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// ParseRank converts a rank character to a Rank.
func ParseRank(c byte) (Rank, error) {
	switch c {
	case '2', '3', '4', '5', '6', '7', '8', '9':
		return Rank(c - '0'), nil
	case 'T', 't':
		return Ten, nil
	case 'J', 'j':
		return Jack, nil
	case 'Q', 'q':
		return Queen, nil
	case 'K', 'k':
		return King, nil
	case 'A', 'a':
		return Ace, nil
	default:
		return 0, fmt.Errorf("invalid rank character %q", c)
	}
}

// Card is a playing card. Cards compare by rank only.
type Card struct {
	Rank Rank
	Suit Suit
}

// String returns the compact representation, e.g. "As" or "Td".
func (c Card) String() string {
	return c.Rank.String() + string(c.Suit)
}

// ParseCard parses a compact card string like "As" or "Td".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	rank, err := ParseRank(s[0])
	if err != nil {
		return Card{}, fmt.Errorf("invalid card %q: %w", s, err)
	}
	switch Suit(s[1]) {
	case Clubs, Diamonds, Hearts, Spades:
		return Card{Rank: rank, Suit: Suit(s[1])}, nil
	default:
		return Card{}, fmt.Errorf("invalid card %q: unknown suit %q", s, s[1])
	}
}

// MustParse parses a card string and panics on error. Test helper.
func MustParse(s string) Card {
	c, err := ParseCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

// MustParseAll parses a list of card strings, panicking on error.
func MustParseAll(strs ...string) []Card {
	cards := make([]Card, len(strs))
	for i, s := range strs {
		cards[i] = MustParse(s)
	}
	return cards
}

type cardJSON struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// MarshalJSON encodes a card as {"rank":"A","suit":"s"}.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Rank: c.Rank.String(), Suit: string(c.Suit)})
}

// UnmarshalJSON decodes the wire representation produced by MarshalJSON.
func (c *Card) UnmarshalJSON(data []byte) error {
	var cj cardJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}
	if len(cj.Rank) != 1 {
		return fmt.Errorf("invalid rank %q", cj.Rank)
	}
	rank, err := ParseRank(cj.Rank[0])
	if err != nil {
		return err
	}
	c.Rank = rank
	c.Suit = Suit(cj.Suit)
	return nil
}
