// Package evaluator ranks five-card poker hands and selects the best
// five of seven at showdown. It is pure and deterministic: evaluation
// depends only on the cards, never on suits beyond flush detection.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/feltengine/felt/internal/deck"
)

// Category is the standard poker hand class, ordered weakest to strongest.
type Category int

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// HandValue is the comparable strength of a five-card hand. Hands compare
// by Category first, then lexicographically by Tiebreakers (most
// significant rank first).
type HandValue struct {
	Category    Category
	Tiebreakers []int
	Cards       []deck.Card
}

// Name returns the human-readable hand class.
func (v HandValue) Name() string {
	return v.Category.String()
}

// Compare returns -1, 0 or 1 as a is weaker than, equal to, or stronger
// than b. Equal means a true chop: same category and identical tiebreakers.
func Compare(a, b HandValue) int {
	if a.Category != b.Category {
		if a.Category < b.Category {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.Tiebreakers) && i < len(b.Tiebreakers); i++ {
		if a.Tiebreakers[i] != b.Tiebreakers[i] {
			if a.Tiebreakers[i] < b.Tiebreakers[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Evaluate5 classifies exactly five cards.
func Evaluate5(cards []deck.Card) (HandValue, error) {
	if len(cards) != 5 {
		return HandValue{}, fmt.Errorf("hand must contain exactly 5 cards, got %d", len(cards))
	}

	ranks := make([]int, 5)
	for i, c := range cards {
		ranks[i] = int(c.Rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	counts := make(map[int]int, 5)
	for _, r := range ranks {
		counts[r]++
	}

	isFlush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			isFlush = false
			break
		}
	}
	isStraight, straightHigh := checkStraight(ranks)

	held := append([]deck.Card(nil), cards...)

	switch {
	case isStraight && isFlush && straightHigh == int(deck.Ace):
		return HandValue{Category: RoyalFlush, Tiebreakers: []int{int(deck.Ace)}, Cards: held}, nil
	case isStraight && isFlush:
		return HandValue{Category: StraightFlush, Tiebreakers: []int{straightHigh}, Cards: held}, nil
	case hasCount(counts, 4):
		quad := ranksWithCount(counts, 4)
		kicker := ranksWithCount(counts, 1)
		return HandValue{Category: FourOfAKind, Tiebreakers: []int{quad[0], kicker[0]}, Cards: held}, nil
	case hasCount(counts, 3) && hasCount(counts, 2):
		trips := ranksWithCount(counts, 3)
		pair := ranksWithCount(counts, 2)
		return HandValue{Category: FullHouse, Tiebreakers: []int{trips[0], pair[0]}, Cards: held}, nil
	case isFlush:
		return HandValue{Category: Flush, Tiebreakers: ranks, Cards: held}, nil
	case isStraight:
		return HandValue{Category: Straight, Tiebreakers: []int{straightHigh}, Cards: held}, nil
	case hasCount(counts, 3):
		trips := ranksWithCount(counts, 3)
		kickers := ranksWithCount(counts, 1)
		return HandValue{Category: ThreeOfAKind, Tiebreakers: append(trips, kickers...), Cards: held}, nil
	case len(ranksWithCount(counts, 2)) == 2:
		pairs := ranksWithCount(counts, 2)
		kicker := ranksWithCount(counts, 1)
		return HandValue{Category: TwoPair, Tiebreakers: append(pairs, kicker...), Cards: held}, nil
	case hasCount(counts, 2):
		pair := ranksWithCount(counts, 2)
		kickers := ranksWithCount(counts, 1)
		return HandValue{Category: Pair, Tiebreakers: append(pair, kickers...), Cards: held}, nil
	default:
		return HandValue{Category: HighCard, Tiebreakers: ranks, Cards: held}, nil
	}
}

// checkStraight reports whether the descending ranks form a straight and
// the straight's high card. The wheel A-2-3-4-5 ranks as a 5-high straight.
func checkStraight(desc []int) (bool, int) {
	unique := make([]int, 0, 5)
	for i, r := range desc {
		if i == 0 || r != desc[i-1] {
			unique = append(unique, r)
		}
	}
	if len(unique) != 5 {
		return false, 0
	}
	if unique[0]-unique[4] == 4 {
		return true, unique[0]
	}
	if unique[0] == int(deck.Ace) && unique[1] == 5 && unique[4] == 2 && unique[1]-unique[4] == 3 {
		return true, 5
	}
	return false, 0
}

func hasCount(counts map[int]int, n int) bool {
	for _, c := range counts {
		if c == n {
			return true
		}
	}
	return false
}

// ranksWithCount returns ranks appearing exactly n times, descending.
func ranksWithCount(counts map[int]int, n int) []int {
	var out []int
	for r, c := range counts {
		if c == n {
			out = append(out, r)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// BestHand finds the strongest five-card hand among all 21 combinations
// of the seven cards formed by two hole cards and five community cards.
// It also works for the partial boards dealt before the river.
func BestHand(hole, community []deck.Card) (HandValue, error) {
	all := make([]deck.Card, 0, len(hole)+len(community))
	all = append(all, hole...)
	all = append(all, community...)
	if len(all) < 5 {
		return HandValue{}, fmt.Errorf("need at least 5 cards to evaluate, got %d", len(all))
	}

	var best HandValue
	combo := make([]deck.Card, 5)
	var walk func(start, depth int) error
	walk = func(start, depth int) error {
		if depth == 5 {
			v, err := Evaluate5(combo)
			if err != nil {
				return err
			}
			if best.Category == 0 || Compare(v, best) > 0 {
				best = v
			}
			return nil
		}
		for i := start; i <= len(all)-(5-depth); i++ {
			combo[depth] = all[i]
			if err := walk(i+1, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, 0); err != nil {
		return HandValue{}, err
	}
	return best, nil
}

// Contender is one player's holding entering a showdown.
type Contender struct {
	PlayerID string
	Hole     []deck.Card
}

// ShowdownResult is a contender's evaluated best hand.
type ShowdownResult struct {
	PlayerID string
	Value    HandValue
}

// DetermineWinners evaluates every contender against the community cards
// and returns the co-winners: all contenders whose best hand ties the
// strongest one.
func DetermineWinners(contenders []Contender, community []deck.Card) ([]ShowdownResult, error) {
	if len(contenders) == 0 {
		return nil, nil
	}

	results := make([]ShowdownResult, 0, len(contenders))
	for _, c := range contenders {
		v, err := BestHand(c.Hole, community)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", c.PlayerID, err)
		}
		results = append(results, ShowdownResult{PlayerID: c.PlayerID, Value: v})
	}

	best := results[0].Value
	for _, r := range results[1:] {
		if Compare(r.Value, best) > 0 {
			best = r.Value
		}
	}

	var winners []ShowdownResult
	for _, r := range results {
		if Compare(r.Value, best) == 0 {
			winners = append(winners, r)
		}
	}
	return winners, nil
}
