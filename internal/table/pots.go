package table

import (
	"sort"

	"github.com/feltengine/felt/internal/evaluator"
	"github.com/feltengine/felt/internal/game"
)

// endHand settles the hand: a lone remaining player takes everything
// uncontested, otherwise the pot is layered into main and side pots from
// the per-hand contributions and each layer goes to showdown.
func (e *Engine) endHand() {
	gs := e.state
	gs.Phase = game.PhaseShowdown
	gs.BettingRound = game.RoundShowdown
	gs.CurrentPlayerID = ""

	contenders := gs.ActivePlayers()
	switch len(contenders) {
	case 0:
		e.logger.Error("hand ended with no contenders", "hand", gs.HandNumber)
	case 1:
		winner := contenders[0]
		total := gs.TotalPot()
		winner.Chips += total
		gs.HandWinners = []game.HandWinner{{
			PlayerID: winner.ID,
			Username: winner.Username,
			Amount:   total,
			Hand:     "uncontested",
		}}
	default:
		e.showdown(contenders)
	}

	gs.Pots = nil
	gs.Phase = game.PhaseHandComplete
	e.logger.Info("hand complete", "hand", gs.HandNumber, "winners", len(gs.HandWinners))
}

// showdown rebuilds the pot as contribution layers and awards each layer
// to the best hand among the players eligible for it.
func (e *Engine) showdown(contenders []*game.Player) {
	gs := e.state
	pots := buildPots(gs, contenders)
	gs.Pots = pots

	byID := make(map[string]*game.Player, len(contenders))
	for _, p := range contenders {
		byID[p.ID] = p
	}

	won := make(map[string]*game.HandWinner)
	var order []string

	for _, pot := range pots {
		eligible := make([]evaluator.Contender, 0, len(pot.EligiblePlayers))
		for _, pid := range pot.EligiblePlayers {
			eligible = append(eligible, evaluator.Contender{PlayerID: pid, Hole: byID[pid].HoleCards})
		}

		results, err := evaluator.DetermineWinners(eligible, gs.CommunityCards)
		if err != nil {
			e.logger.Error("showdown evaluation failed", "hand", gs.HandNumber, "err", err)
			continue
		}

		share := pot.Amount / len(results)
		remainder := pot.Amount % len(results)

		// Odd chips go to the earliest winners in seat order left of the
		// dealer, so splits are deterministic.
		sort.SliceStable(results, func(i, j int) bool {
			return e.seatRankFromDealer(results[i].PlayerID) < e.seatRankFromDealer(results[j].PlayerID)
		})

		for i, r := range results {
			amount := share
			if i < remainder {
				amount++
			}
			p := byID[r.PlayerID]
			p.Chips += amount

			w, ok := won[r.PlayerID]
			if !ok {
				cards := make([]string, 0, len(r.Value.Cards))
				for _, c := range r.Value.Cards {
					cards = append(cards, c.String())
				}
				w = &game.HandWinner{
					PlayerID: r.PlayerID,
					Username: p.Username,
					Hand:     r.Value.Name(),
					Cards:    cards,
				}
				won[r.PlayerID] = w
				order = append(order, r.PlayerID)
			}
			w.Amount += amount
		}
	}

	gs.HandWinners = make([]game.HandWinner, 0, len(order))
	for _, pid := range order {
		gs.HandWinners = append(gs.HandWinners, *won[pid])
	}
}

// buildPots layers the hand's contributions at every all-in amount. The
// lowest layer is the main pot; each layer's eligible players are the
// contenders who contributed at least up to that layer's cap. Chips a
// player bet beyond what anyone could match end up in a layer only they
// are eligible for, which returns them.
func buildPots(gs *game.GameState, contenders []*game.Player) []game.Pot {
	levels := make([]int, 0, len(contenders))
	seen := make(map[int]bool)
	maxContribution := 0
	for _, p := range contenders {
		if p.TotalBet > maxContribution {
			maxContribution = p.TotalBet
		}
		if p.Status == game.StatusAllIn && p.TotalBet > 0 && !seen[p.TotalBet] {
			seen[p.TotalBet] = true
			levels = append(levels, p.TotalBet)
		}
	}
	sort.Ints(levels)
	if len(levels) == 0 || levels[len(levels)-1] < maxContribution {
		levels = append(levels, maxContribution)
	}

	var pots []game.Pot
	prev := 0
	for _, level := range levels {
		amount := 0
		for _, pid := range gs.PlayerOrder {
			if c := gs.Players[pid].TotalBet; c > prev {
				amount += min(c, level) - prev
			}
		}
		if amount == 0 {
			prev = level
			continue
		}

		var eligible []string
		for _, p := range contenders {
			if p.TotalBet >= level {
				eligible = append(eligible, p.ID)
			}
		}
		pots = append(pots, game.Pot{Amount: amount, EligiblePlayers: eligible})
		prev = level
	}
	return pots
}

// seatRankFromDealer orders a player's seat relative to the dealer
// button, with the seat immediately left of the dealer first.
func (e *Engine) seatRankFromDealer(playerID string) int {
	gs := e.state
	n := len(gs.PlayerOrder)
	if n == 0 {
		return 0
	}
	idx := 0
	for i, pid := range gs.PlayerOrder {
		if pid == playerID {
			idx = i
			break
		}
	}
	dealer := gs.DealerPosition % n
	return (idx - dealer - 1 + n) % n
}
