package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltengine/felt/internal/deck"
)

func TestParseActionType(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"fold", "check", "call", "bet", "raise", "all_in"} {
		got, err := ParseActionType(valid)
		require.NoError(t, err)
		assert.Equal(t, ActionType(valid), got)
	}

	_, err := ParseActionType("shove")
	assert.Error(t, err)
	_, err = ParseActionType("")
	assert.Error(t, err)
}

func TestResetForHand(t *testing.T) {
	t.Parallel()

	p := &Player{
		ID:         "p1",
		Chips:      500,
		HoleCards:  []deck.Card{{Rank: 14, Suit: deck.Spades}},
		CurrentBet: 40,
		TotalBet:   120,
		Status:     StatusFolded,
		IsDealer:   true,
		HasActed:   true,
		LastAction: "fold",
	}
	p.ResetForHand()

	assert.Equal(t, StatusActive, p.Status)
	assert.Empty(t, p.HoleCards)
	assert.Zero(t, p.CurrentBet)
	assert.Zero(t, p.TotalBet)
	assert.False(t, p.HasActed)
	assert.False(t, p.IsDealer)
	assert.Empty(t, p.LastAction)
}

func TestResetForHandBustedPlayerIsEliminated(t *testing.T) {
	t.Parallel()

	p := &Player{ID: "p1", Chips: 0, Status: StatusAllIn}
	p.ResetForHand()
	assert.Equal(t, StatusEliminated, p.Status)

	// Elimination is permanent even if status flags get stale.
	p.Status = StatusEliminated
	p.ResetForHand()
	assert.Equal(t, StatusEliminated, p.Status)
}

func TestResetForHandKeepsDisconnectedStatus(t *testing.T) {
	t.Parallel()

	p := &Player{ID: "p1", Chips: 300, Status: StatusDisconnected}
	p.ResetForHand()
	assert.Equal(t, StatusDisconnected, p.Status)
}

func TestResetForBettingRound(t *testing.T) {
	t.Parallel()

	p := &Player{CurrentBet: 60, TotalBet: 100, HasActed: true, LastAction: "call"}
	p.ResetForBettingRound()

	assert.Zero(t, p.CurrentBet)
	assert.False(t, p.HasActed)
	// Hand-level state survives the street change.
	assert.Equal(t, 100, p.TotalBet)
	assert.Equal(t, "call", p.LastAction)
}

func TestActivePlayersAndPlayersToAct(t *testing.T) {
	t.Parallel()

	gs := &GameState{
		Players: map[string]*Player{
			"a": {ID: "a", Status: StatusActive},
			"b": {ID: "b", Status: StatusAllIn},
			"c": {ID: "c", Status: StatusFolded},
			"d": {ID: "d", Status: StatusEliminated},
		},
		PlayerOrder: []string{"a", "b", "c", "d"},
	}

	active := gs.ActivePlayers()
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
	assert.Equal(t, "b", active[1].ID)

	toAct := gs.PlayersToAct()
	require.Len(t, toAct, 1)
	assert.Equal(t, "a", toAct[0].ID)
}

func TestPublicViewHidesAllHoleCards(t *testing.T) {
	t.Parallel()

	gs := &GameState{
		GameID:  "g1",
		TableID: "table-1",
		Players: map[string]*Player{
			"a": {ID: "a", Username: "alice", Status: StatusActive,
				HoleCards: []deck.Card{{Rank: 14, Suit: deck.Spades}, {Rank: 13, Suit: deck.Spades}}},
			"b": {ID: "b", Username: "bob", Status: StatusActive,
				HoleCards: []deck.Card{{Rank: 2, Suit: deck.Clubs}, {Rank: 3, Suit: deck.Clubs}}},
		},
		PlayerOrder: []string{"a", "b"},
	}

	view := gs.PublicView()
	for _, pv := range view.Players {
		assert.Empty(t, pv.HoleCards)
	}
	assert.Empty(t, view.YourHoleCards)
}

func TestViewForRevealsOnlyOwnCards(t *testing.T) {
	t.Parallel()

	gs := &GameState{
		Players: map[string]*Player{
			"a": {ID: "a", Status: StatusActive,
				HoleCards: []deck.Card{{Rank: 14, Suit: deck.Spades}, {Rank: 13, Suit: deck.Spades}}},
			"b": {ID: "b", Status: StatusActive,
				HoleCards: []deck.Card{{Rank: 2, Suit: deck.Clubs}, {Rank: 3, Suit: deck.Clubs}}},
		},
		PlayerOrder: []string{"a", "b"},
	}

	view := gs.ViewFor("a")
	require.Len(t, view.YourHoleCards, 2)
	assert.Len(t, view.Players["a"].HoleCards, 2)
	assert.Empty(t, view.Players["b"].HoleCards)
}

func TestViewTruncatesActionHistory(t *testing.T) {
	t.Parallel()

	gs := &GameState{Players: map[string]*Player{}}
	for i := 0; i < 25; i++ {
		gs.ActionHistory = append(gs.ActionHistory, ActionRecord{
			PlayerID: fmt.Sprintf("p%d", i),
			Action:   "check",
		})
	}

	view := gs.PublicView()
	require.Len(t, view.ActionHistory, historyLimit)
	// Oldest entries drop first.
	assert.Equal(t, "p15", view.ActionHistory[0].PlayerID)
	assert.Equal(t, "p24", view.ActionHistory[len(view.ActionHistory)-1].PlayerID)
}

func TestTotalPot(t *testing.T) {
	t.Parallel()

	gs := &GameState{Pots: []Pot{{Amount: 300}, {Amount: 120}}}
	assert.Equal(t, 420, gs.TotalPot())
	assert.Zero(t, (&GameState{}).TotalPot())
}
