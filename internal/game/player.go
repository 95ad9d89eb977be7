package game

import "github.com/feltengine/felt/internal/deck"

// Status is a player's standing within the table and tournament.
type Status string

const (
	StatusWaiting      Status = "waiting"
	StatusActive       Status = "active"
	StatusFolded       Status = "folded"
	StatusAllIn        Status = "all_in"
	StatusEliminated   Status = "eliminated"
	StatusDisconnected Status = "disconnected"
)

// Player is one seat's state. CurrentBet is the chips committed in the
// current betting round, TotalBet the chips committed in the whole hand.
type Player struct {
	ID           string
	Username     string
	Chips        int
	HoleCards    []deck.Card
	CurrentBet   int
	TotalBet     int
	Status       Status
	Seat         int
	IsDealer     bool
	IsSmallBlind bool
	IsBigBlind   bool
	HasActed     bool
	LastAction   string
}

// ResetForHand clears per-hand state. Players with chips become ACTIVE;
// busted players become ELIMINATED permanently.
func (p *Player) ResetForHand() {
	p.HoleCards = nil
	p.CurrentBet = 0
	p.TotalBet = 0
	p.HasActed = false
	p.LastAction = ""
	p.IsDealer = false
	p.IsSmallBlind = false
	p.IsBigBlind = false
	if p.Chips > 0 && p.Status != StatusDisconnected {
		p.Status = StatusActive
	} else if p.Chips <= 0 {
		p.Status = StatusEliminated
	}
}

// ResetForBettingRound clears per-round state between streets.
func (p *Player) ResetForBettingRound() {
	p.CurrentBet = 0
	p.HasActed = false
}

// PlayerView is the wire representation of a seat. Hole cards are empty
// in public views and populated only for the owning player.
type PlayerView struct {
	PlayerID     string      `json:"player_id"`
	Username     string      `json:"username"`
	Chips        int         `json:"chips"`
	CurrentBet   int         `json:"current_bet"`
	TotalBet     int         `json:"total_bet"`
	Status       Status      `json:"status"`
	SeatPosition int         `json:"seat_position"`
	IsDealer     bool        `json:"is_dealer"`
	IsSmallBlind bool        `json:"is_small_blind"`
	IsBigBlind   bool        `json:"is_big_blind"`
	LastAction   string      `json:"last_action,omitempty"`
	HoleCards    []deck.Card `json:"hole_cards"`
}

// PublicView returns the seat with hole cards hidden.
func (p *Player) PublicView() PlayerView {
	return PlayerView{
		PlayerID:     p.ID,
		Username:     p.Username,
		Chips:        p.Chips,
		CurrentBet:   p.CurrentBet,
		TotalBet:     p.TotalBet,
		Status:       p.Status,
		SeatPosition: p.Seat,
		IsDealer:     p.IsDealer,
		IsSmallBlind: p.IsSmallBlind,
		IsBigBlind:   p.IsBigBlind,
		LastAction:   p.LastAction,
		HoleCards:    []deck.Card{},
	}
}

// PrivateView returns the seat including hole cards.
func (p *Player) PrivateView() PlayerView {
	v := p.PublicView()
	v.HoleCards = append([]deck.Card{}, p.HoleCards...)
	return v
}
