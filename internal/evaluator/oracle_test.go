package evaluator

import (
	"testing"

	chehsunliu "github.com/chehsunliu/poker"
	"github.com/stretchr/testify/require"

	"github.com/feltengine/felt/internal/deck"
	"github.com/feltengine/felt/internal/randutil"
)

func toOracle(cards []deck.Card) []chehsunliu.Card {
	out := make([]chehsunliu.Card, len(cards))
	for i, c := range cards {
		out[i] = chehsunliu.NewCard(c.String())
	}
	return out
}

// Cross-checks our evaluator against an independent implementation.
// chehsunliu/poker ranks are inverted: lower values are stronger hands.
func TestEvaluateAgainstOracle(t *testing.T) {
	t.Parallel()
	rng := randutil.New(99)

	for i := 0; i < 2000; i++ {
		d := deck.NewWithRand(rng)
		a, err := d.DealN(5)
		require.NoError(t, err)
		b, err := d.DealN(5)
		require.NoError(t, err)

		va, err := Evaluate5(a)
		require.NoError(t, err)
		vb, err := Evaluate5(b)
		require.NoError(t, err)

		oa := chehsunliu.Evaluate(toOracle(a))
		ob := chehsunliu.Evaluate(toOracle(b))

		got := Compare(va, vb)
		var want int
		switch {
		case oa < ob:
			want = 1
		case oa > ob:
			want = -1
		}
		require.Equal(t, want, got, "hands %v vs %v disagree with oracle", a, b)
	}
}

func TestBestHandAgainstOracle(t *testing.T) {
	t.Parallel()
	rng := randutil.New(1234)

	for i := 0; i < 500; i++ {
		d := deck.NewWithRand(rng)
		holeA, err := d.DealN(2)
		require.NoError(t, err)
		holeB, err := d.DealN(2)
		require.NoError(t, err)
		community, err := d.DealN(5)
		require.NoError(t, err)

		va, err := BestHand(holeA, community)
		require.NoError(t, err)
		vb, err := BestHand(holeB, community)
		require.NoError(t, err)

		oa := chehsunliu.Evaluate(toOracle(append(append([]deck.Card{}, holeA...), community...)))
		ob := chehsunliu.Evaluate(toOracle(append(append([]deck.Card{}, holeB...), community...)))

		got := Compare(va, vb)
		var want int
		switch {
		case oa < ob:
			want = 1
		case oa > ob:
			want = -1
		}
		require.Equal(t, want, got, "7-card holdings disagree with oracle")
	}
}
