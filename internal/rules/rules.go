// Package rules validates player actions against a snapshot of table
// state. All functions are pure: they never mutate the state they read.
package rules

import (
	"errors"
	"fmt"

	"github.com/feltengine/felt/internal/game"
)

var (
	// ErrNotYourTurn is returned when a player acts out of turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrNotBettingPhase is returned when the table is not accepting actions.
	ErrNotBettingPhase = errors.New("cannot act outside the betting phase")
	// ErrCannotAct is returned for players who are folded, all-in or
	// otherwise unable to act.
	ErrCannotAct = errors.New("player cannot act")
)

// ValidateAction checks a proposed action against the game state and
// returns the normalized chip amount the action will move: the call
// amount for CALL (clamped to stack), the added chips for RAISE, the
// full stack for ALL_IN.
func ValidateAction(gs *game.GameState, playerID string, action game.Action) (int, error) {
	if gs.CurrentPlayerID != playerID {
		return 0, fmt.Errorf("%w: current player is %s", ErrNotYourTurn, gs.CurrentPlayerID)
	}
	if gs.Phase != game.PhaseBetting {
		return 0, fmt.Errorf("%w: phase is %s", ErrNotBettingPhase, gs.Phase)
	}
	player := gs.Player(playerID)
	if player == nil {
		return 0, fmt.Errorf("player %s not found", playerID)
	}
	if player.Status != game.StatusActive {
		return 0, fmt.Errorf("%w: status is %s", ErrCannotAct, player.Status)
	}

	switch action.Type {
	case game.ActionFold:
		return 0, nil
	case game.ActionCheck:
		return validateCheck(gs, player)
	case game.ActionCall:
		return validateCall(gs, player)
	case game.ActionBet:
		return validateBet(gs, player, action.Amount)
	case game.ActionRaise:
		return validateRaise(gs, player, action.Amount)
	case game.ActionAllIn:
		if player.Chips <= 0 {
			return 0, fmt.Errorf("%w: no chips to move all-in", ErrCannotAct)
		}
		return player.Chips, nil
	default:
		return 0, fmt.Errorf("unknown action type %q", action.Type)
	}
}

func validateCheck(gs *game.GameState, player *game.Player) (int, error) {
	if toCall := gs.CurrentBet - player.CurrentBet; toCall > 0 {
		return 0, fmt.Errorf("cannot check, must call %d or fold", toCall)
	}
	return 0, nil
}

func validateCall(gs *game.GameState, player *game.Player) (int, error) {
	toCall := gs.CurrentBet - player.CurrentBet
	if toCall <= 0 {
		return 0, errors.New("nothing to call, use check instead")
	}
	// A short stack calls for less and goes all-in.
	return min(toCall, player.Chips), nil
}

func validateBet(gs *game.GameState, player *game.Player, amount int) (int, error) {
	if gs.CurrentBet > 0 {
		return 0, errors.New("cannot bet into an existing bet, use raise instead")
	}
	if amount < gs.BigBlind {
		return 0, fmt.Errorf("minimum bet is %d", gs.BigBlind)
	}
	if amount > player.Chips {
		return 0, fmt.Errorf("cannot bet %d with only %d chips", amount, player.Chips)
	}
	return amount, nil
}

// validateRaise takes the target total bet for the round, not the
// increment. A raise below the minimum is legal only as an all-in.
func validateRaise(gs *game.GameState, player *game.Player, amount int) (int, error) {
	if gs.CurrentBet == 0 {
		return 0, errors.New("cannot raise without a bet, use bet instead")
	}

	increment := amount - gs.CurrentBet
	if increment < gs.MinRaise {
		if amount >= player.Chips {
			// All-in for less than a full raise.
			return player.Chips, nil
		}
		minTotal := gs.CurrentBet + gs.MinRaise
		return 0, fmt.Errorf("minimum raise to %d (raise by at least %d)", minTotal, gs.MinRaise)
	}

	needed := amount - player.CurrentBet
	if needed > player.Chips {
		return 0, fmt.Errorf("cannot raise to %d with only %d chips", amount, player.Chips)
	}
	return needed, nil
}

// ValidAction describes one legal action with its inclusive amount range.
type ValidAction struct {
	Type      game.ActionType `json:"action_type"`
	MinAmount int             `json:"min_amount"`
	MaxAmount int             `json:"max_amount"`
}

// ValidActions returns the complete legal action set for a player, with
// amount ranges, so clients never need to re-implement the rules. An
// empty slice means it is not the player's turn (or they cannot act).
func ValidActions(gs *game.GameState, playerID string) []ValidAction {
	player := gs.Player(playerID)
	if player == nil || player.Status != game.StatusActive {
		return []ValidAction{}
	}
	if gs.CurrentPlayerID != playerID || gs.Phase != game.PhaseBetting {
		return []ValidAction{}
	}

	actions := []ValidAction{{Type: game.ActionFold}}
	toCall := gs.CurrentBet - player.CurrentBet

	if toCall == 0 {
		actions = append(actions, ValidAction{Type: game.ActionCheck})
		if player.Chips > 0 {
			actions = append(actions, ValidAction{
				Type:      game.ActionBet,
				MinAmount: min(gs.BigBlind, player.Chips),
				MaxAmount: player.Chips,
			})
		}
	} else {
		callAmount := min(toCall, player.Chips)
		actions = append(actions, ValidAction{
			Type:      game.ActionCall,
			MinAmount: callAmount,
			MaxAmount: callAmount,
		})
		if player.Chips > toCall {
			minRaiseTo := gs.CurrentBet + gs.MinRaise
			maxRaiseTo := player.Chips + player.CurrentBet
			actions = append(actions, ValidAction{
				Type:      game.ActionRaise,
				MinAmount: min(minRaiseTo, maxRaiseTo),
				MaxAmount: maxRaiseTo,
			})
		}
	}

	if player.Chips > 0 {
		actions = append(actions, ValidAction{
			Type:      game.ActionAllIn,
			MinAmount: player.Chips,
			MaxAmount: player.Chips,
		})
	}
	return actions
}

// IsBettingRoundComplete reports whether no further decisions are owed
// this round: either at most one player can still act (and owes
// nothing), or every player able to act has acted and matched the bet.
// A short all-in raises the bet to match without clearing has-acted, so
// players behind it owe at most a call before the round closes.
func IsBettingRoundComplete(gs *game.GameState) bool {
	toAct := gs.PlayersToAct()
	if len(toAct) == 0 {
		return true
	}
	if len(toAct) == 1 {
		// The last player able to act may still owe a call against an
		// all-in wager.
		return toAct[0].CurrentBet >= gs.CurrentBet
	}
	for _, p := range toAct {
		if !p.HasActed || p.CurrentBet < gs.CurrentBet {
			return false
		}
	}
	return true
}
