// Package game holds the per-table state model: players, pots, betting
// rounds and the serializable views sent to bots, viewers and admins.
// State transitions live in internal/table; legality checks in
// internal/rules. Everything here is plain data.
package game

import "fmt"

// Phase is the table lifecycle phase.
type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseDealing      Phase = "dealing"
	PhaseBetting      Phase = "betting"
	PhaseShowdown     Phase = "showdown"
	PhaseHandComplete Phase = "hand_complete"
)

// Round is the betting round within a hand.
type Round string

const (
	RoundPreflop  Round = "preflop"
	RoundFlop     Round = "flop"
	RoundTurn     Round = "turn"
	RoundRiver    Round = "river"
	RoundShowdown Round = "showdown"
)

// ActionType is a player betting action.
type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionBet   ActionType = "bet"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "all_in"
)

// ParseActionType validates an action type received off the wire.
func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionFold, ActionCheck, ActionCall, ActionBet, ActionRaise, ActionAllIn:
		return ActionType(s), nil
	default:
		return "", fmt.Errorf("unknown action type %q", s)
	}
}

// Action is a proposed player action. For raises, Amount is the target
// total bet for the round, not the increment.
type Action struct {
	Type   ActionType `json:"action_type"`
	Amount int        `json:"amount,omitempty"`
}

// ValidatedAction is the engine's record of an applied (or rejected)
// action. Amount is the normalized chip movement.
type ValidatedAction struct {
	PlayerID string     `json:"player_id"`
	Type     ActionType `json:"type"`
	Amount   int        `json:"amount"`
}
