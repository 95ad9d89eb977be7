package game

import (
	"time"

	"github.com/feltengine/felt/internal/deck"
)

// Pot is a main or side pot with the players eligible to win it.
type Pot struct {
	Amount          int      `json:"amount"`
	EligiblePlayers []string `json:"eligible_players"`
}

// ActionRecord is one entry of the bounded action history.
type ActionRecord struct {
	PlayerID  string    `json:"player_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Amount    int       `json:"amount"`
	Round     Round     `json:"round"`
	Timestamp time.Time `json:"timestamp"`
}

// HandWinner summarises one winner of the last completed hand.
type HandWinner struct {
	PlayerID string   `json:"player_id"`
	Username string   `json:"username"`
	Amount   int      `json:"amount"`
	Hand     string   `json:"hand"`
	Cards    []string `json:"cards,omitempty"`
}

// historyLimit bounds the action history exposed in state views.
const historyLimit = 10

// GameState is the complete state of one table.
type GameState struct {
	GameID       string
	TableID      string
	HandNumber   int
	Phase        Phase
	BettingRound Round

	Players     map[string]*Player
	PlayerOrder []string // seat order

	CommunityCards []deck.Card
	Pots           []Pot

	CurrentPlayerID string
	DealerPosition  int // index into the hand's active player order

	SmallBlind   int
	BigBlind     int
	CurrentBet   int // bet to match this round
	MinRaise     int // minimum raise increment
	LastRaiserID string

	ActionHistory []ActionRecord
	HandWinners   []HandWinner
}

// Player returns the player with the given id, or nil.
func (gs *GameState) Player(id string) *Player {
	return gs.Players[id]
}

// ActivePlayers returns players still contesting the hand (ACTIVE or
// ALL_IN), in seat order.
func (gs *GameState) ActivePlayers() []*Player {
	var out []*Player
	for _, pid := range gs.PlayerOrder {
		p := gs.Players[pid]
		if p != nil && (p.Status == StatusActive || p.Status == StatusAllIn) {
			out = append(out, p)
		}
	}
	return out
}

// PlayersToAct returns players who can still make a decision this round
// (ACTIVE only), in seat order.
func (gs *GameState) PlayersToAct() []*Player {
	var out []*Player
	for _, pid := range gs.PlayerOrder {
		p := gs.Players[pid]
		if p != nil && p.Status == StatusActive {
			out = append(out, p)
		}
	}
	return out
}

// TotalPot returns the chips across all pots.
func (gs *GameState) TotalPot() int {
	total := 0
	for _, pot := range gs.Pots {
		total += pot.Amount
	}
	return total
}

// TableView is the state envelope broadcast to clients. The public view
// hides all hole cards; a player view reveals the caller's own.
type TableView struct {
	GameID          string                `json:"game_id"`
	TableID         string                `json:"table_id"`
	HandNumber      int                   `json:"hand_number"`
	Phase           Phase                 `json:"phase"`
	BettingRound    Round                 `json:"betting_round"`
	Players         map[string]PlayerView `json:"players"`
	PlayerOrder     []string              `json:"player_order"`
	CommunityCards  []deck.Card           `json:"community_cards"`
	Pots            []Pot                 `json:"pots"`
	CurrentPlayerID string                `json:"current_player_id,omitempty"`
	DealerPosition  int                   `json:"dealer_position"`
	SmallBlind      int                   `json:"small_blind"`
	BigBlind        int                   `json:"big_blind"`
	CurrentBet      int                   `json:"current_bet"`
	MinRaise        int                   `json:"min_raise"`
	TotalPot        int                   `json:"total_pot"`
	ActionHistory   []ActionRecord        `json:"action_history"`
	HandWinners     []HandWinner          `json:"hand_winners"`
	YourHoleCards   []deck.Card           `json:"your_hole_cards,omitempty"`
}

// PublicView renders the state with every hole card hidden.
func (gs *GameState) PublicView() TableView {
	players := make(map[string]PlayerView, len(gs.Players))
	for pid, p := range gs.Players {
		players[pid] = p.PublicView()
	}

	history := gs.ActionHistory
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	return TableView{
		GameID:          gs.GameID,
		TableID:         gs.TableID,
		HandNumber:      gs.HandNumber,
		Phase:           gs.Phase,
		BettingRound:    gs.BettingRound,
		Players:         players,
		PlayerOrder:     append([]string{}, gs.PlayerOrder...),
		CommunityCards:  append([]deck.Card{}, gs.CommunityCards...),
		Pots:            append([]Pot{}, gs.Pots...),
		CurrentPlayerID: gs.CurrentPlayerID,
		DealerPosition:  gs.DealerPosition,
		SmallBlind:      gs.SmallBlind,
		BigBlind:        gs.BigBlind,
		CurrentBet:      gs.CurrentBet,
		MinRaise:        gs.MinRaise,
		TotalPot:        gs.TotalPot(),
		ActionHistory:   append([]ActionRecord{}, history...),
		HandWinners:     append([]HandWinner{}, gs.HandWinners...),
	}
}

// ViewFor renders the state for one player, revealing only their own
// hole cards.
func (gs *GameState) ViewFor(playerID string) TableView {
	view := gs.PublicView()
	if p, ok := gs.Players[playerID]; ok {
		view.Players[playerID] = p.PrivateView()
		view.YourHoleCards = append([]deck.Card{}, p.HoleCards...)
	}
	return view
}
