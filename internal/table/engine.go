// Package table implements the per-table hand lifecycle: dealing,
// betting rounds, pot construction and showdown distribution. An Engine
// is not safe for concurrent use; the tournament coordinator serializes
// all calls into it.
package table

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/feltengine/felt/internal/deck"
	"github.com/feltengine/felt/internal/game"
	"github.com/feltengine/felt/internal/rules"
)

// Engine drives one table's GameState through hands.
type Engine struct {
	state  *game.GameState
	deck   *deck.Deck
	clock  quartz.Clock
	logger *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDeck replaces the shuffled deck, letting tests script the deal.
func WithDeck(d *deck.Deck) Option {
	return func(e *Engine) { e.deck = d }
}

// WithClock injects the clock used for action-history timestamps.
func WithClock(c quartz.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New creates a table engine with the given blinds.
func New(tableID string, smallBlind, bigBlind int, logger *log.Logger, opts ...Option) *Engine {
	e := &Engine{
		state: &game.GameState{
			GameID:       uuid.NewString(),
			TableID:      tableID,
			Phase:        game.PhaseWaiting,
			BettingRound: game.RoundPreflop,
			Players:      make(map[string]*game.Player),
			SmallBlind:   smallBlind,
			BigBlind:     bigBlind,
			MinRaise:     bigBlind,
		},
		deck:   deck.New(),
		clock:  quartz.NewReal(),
		logger: logger.WithPrefix("table").With("table", tableID),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State exposes the underlying game state. Callers must hold the
// coordinator's serialization when touching it.
func (e *Engine) State() *game.GameState {
	return e.state
}

// TableID returns the table identifier.
func (e *Engine) TableID() string {
	return e.state.TableID
}

// SetBlinds updates the nominal blinds used from the next hand onward.
func (e *Engine) SetBlinds(smallBlind, bigBlind int) {
	e.state.SmallBlind = smallBlind
	e.state.BigBlind = bigBlind
}

// AddPlayer seats a player. A negative seat appends after the highest
// occupied seat. Returns an error if the player is already seated.
func (e *Engine) AddPlayer(id, username string, chips, seat int) error {
	if _, ok := e.state.Players[id]; ok {
		return fmt.Errorf("player %s already seated", id)
	}
	if seat < 0 {
		for _, p := range e.state.Players {
			if p.Seat >= seat {
				seat = p.Seat + 1
			}
		}
		if seat < 0 {
			seat = 0
		}
	}

	e.state.Players[id] = &game.Player{
		ID:       id,
		Username: username,
		Chips:    chips,
		Status:   game.StatusWaiting,
		Seat:     seat,
	}
	e.state.PlayerOrder = append(e.state.PlayerOrder, id)
	sort.SliceStable(e.state.PlayerOrder, func(i, j int) bool {
		return e.state.Players[e.state.PlayerOrder[i]].Seat < e.state.Players[e.state.PlayerOrder[j]].Seat
	})
	return nil
}

// RemovePlayer unseats a player entirely.
func (e *Engine) RemovePlayer(id string) bool {
	if _, ok := e.state.Players[id]; !ok {
		return false
	}
	delete(e.state.Players, id)
	for i, pid := range e.state.PlayerOrder {
		if pid == id {
			e.state.PlayerOrder = append(e.state.PlayerOrder[:i], e.state.PlayerOrder[i+1:]...)
			break
		}
	}
	return true
}

// EligiblePlayerCount counts players able to play the next hand.
func (e *Engine) EligiblePlayerCount() int {
	n := 0
	for _, p := range e.state.Players {
		if p.Chips > 0 && p.Status != game.StatusDisconnected {
			n++
		}
	}
	return n
}

// StartHand begins a new hand. It returns false when fewer than two
// players are eligible.
func (e *Engine) StartHand() bool {
	if e.EligiblePlayerCount() < 2 {
		return false
	}

	gs := e.state
	gs.HandNumber++
	gs.GameID = uuid.NewString()
	gs.Phase = game.PhaseDealing
	gs.BettingRound = game.RoundPreflop
	gs.CommunityCards = nil
	gs.CurrentBet = 0
	gs.MinRaise = gs.BigBlind
	gs.LastRaiserID = ""
	gs.ActionHistory = nil
	gs.HandWinners = nil

	for _, p := range gs.Players {
		p.ResetForHand()
	}

	// Eliminated players leave the seat order permanently.
	order := gs.PlayerOrder[:0]
	for _, pid := range gs.PlayerOrder {
		if gs.Players[pid].Status != game.StatusEliminated {
			order = append(order, pid)
		}
	}
	gs.PlayerOrder = order

	active := e.activeOrder()
	gs.Pots = []game.Pot{{Amount: 0, EligiblePlayers: append([]string{}, active...)}}

	e.rotateDealer(active)
	e.deck.Reset()
	e.dealHoleCards(active)
	e.postBlinds()

	gs.Phase = game.PhaseBetting
	gs.CurrentPlayerID = ""
	e.setNextPlayer()

	e.logger.Info("hand started",
		"hand", gs.HandNumber,
		"players", len(active),
		"blinds", fmt.Sprintf("%d/%d", gs.SmallBlind, gs.BigBlind))
	return true
}

// activeOrder returns ids of ACTIVE players in seat order.
func (e *Engine) activeOrder() []string {
	var out []string
	for _, pid := range e.state.PlayerOrder {
		if e.state.Players[pid].Status == game.StatusActive {
			out = append(out, pid)
		}
	}
	return out
}

// rotateDealer advances the button and assigns blind roles. Heads-up the
// dealer posts the small blind.
func (e *Engine) rotateDealer(active []string) {
	gs := e.state
	if len(active) == 0 {
		return
	}

	n := len(active)
	gs.DealerPosition = (gs.DealerPosition + 1) % n
	gs.Players[active[gs.DealerPosition]].IsDealer = true

	var sbIdx, bbIdx int
	if n == 2 {
		sbIdx = gs.DealerPosition
		bbIdx = (gs.DealerPosition + 1) % n
	} else {
		sbIdx = (gs.DealerPosition + 1) % n
		bbIdx = (gs.DealerPosition + 2) % n
	}
	gs.Players[active[sbIdx]].IsSmallBlind = true
	gs.Players[active[bbIdx]].IsBigBlind = true
}

// dealHoleCards deals one card at a time, twice around the table.
func (e *Engine) dealHoleCards(active []string) {
	for pass := 0; pass < 2; pass++ {
		for _, pid := range active {
			e.state.Players[pid].HoleCards = append(e.state.Players[pid].HoleCards, e.mustDeal())
		}
	}
}

// postBlinds charges the blinds, allowing all-in for less. The table's
// current bet is the amount the big blind actually paid.
func (e *Engine) postBlinds() {
	gs := e.state
	for _, pid := range gs.PlayerOrder {
		p := gs.Players[pid]
		switch {
		case p.IsSmallBlind:
			paid := min(gs.SmallBlind, p.Chips)
			p.Chips -= paid
			p.CurrentBet = paid
			p.TotalBet = paid
			gs.Pots[0].Amount += paid
			if p.Chips == 0 {
				p.Status = game.StatusAllIn
			}
			e.recordAction(p, "small_blind", paid)
		case p.IsBigBlind:
			paid := min(gs.BigBlind, p.Chips)
			p.Chips -= paid
			p.CurrentBet = paid
			p.TotalBet = paid
			gs.Pots[0].Amount += paid
			gs.CurrentBet = paid
			if p.Chips == 0 {
				p.Status = game.StatusAllIn
			}
			e.recordAction(p, "big_blind", paid)
		}
	}
}

// setNextPlayer advances the turn to the next player in seat order who
// can still act, scanning left of the current player. At the start of
// the preflop round (no current player) action begins left of the big
// blind. A current player who just folded or shoved keeps their seat as
// the scan anchor.
func (e *Engine) setNextPlayer() {
	gs := e.state
	toAct := gs.PlayersToAct()
	if len(toAct) == 0 {
		gs.CurrentPlayerID = ""
		return
	}

	actable := make(map[string]bool, len(toAct))
	for _, p := range toAct {
		actable[p.ID] = true
	}

	anchor := -1
	for i, pid := range gs.PlayerOrder {
		if pid == gs.CurrentPlayerID {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		for i, pid := range gs.PlayerOrder {
			if gs.Players[pid].IsBigBlind {
				anchor = i
				break
			}
		}
	}

	n := len(gs.PlayerOrder)
	for i := 1; i <= n; i++ {
		pid := gs.PlayerOrder[(anchor+i+n)%n]
		if actable[pid] {
			gs.CurrentPlayerID = pid
			return
		}
	}
	gs.CurrentPlayerID = toAct[0].ID
}

// ValidActions returns the legal action set for a player right now.
func (e *Engine) ValidActions(playerID string) []rules.ValidAction {
	return rules.ValidActions(e.state, playerID)
}

// ProcessAction validates and applies a player action, then advances the
// turn, the betting round, or the hand as appropriate.
func (e *Engine) ProcessAction(playerID string, action game.Action) (game.ValidatedAction, error) {
	amount, err := rules.ValidateAction(e.state, playerID, action)
	if err != nil {
		return game.ValidatedAction{}, err
	}

	gs := e.state
	p := gs.Players[playerID]

	switch action.Type {
	case game.ActionFold:
		p.Status = game.StatusFolded
		p.LastAction = "fold"

	case game.ActionCheck:
		p.LastAction = "check"

	case game.ActionCall:
		p.Chips -= amount
		p.CurrentBet += amount
		p.TotalBet += amount
		gs.Pots[0].Amount += amount
		p.LastAction = fmt.Sprintf("call %d", amount)
		if p.Chips == 0 {
			p.Status = game.StatusAllIn
		}

	case game.ActionBet:
		p.Chips -= amount
		p.CurrentBet = amount
		p.TotalBet += amount
		gs.Pots[0].Amount += amount
		gs.CurrentBet = amount
		gs.MinRaise = amount
		gs.LastRaiserID = playerID
		p.LastAction = fmt.Sprintf("bet %d", amount)
		e.reopenAction(playerID)
		if p.Chips == 0 {
			p.Status = game.StatusAllIn
		}

	case game.ActionRaise:
		newTotal := p.CurrentBet + amount
		increment := newTotal - gs.CurrentBet
		p.Chips -= amount
		p.CurrentBet = newTotal
		p.TotalBet += amount
		gs.Pots[0].Amount += amount
		gs.MinRaise = max(gs.MinRaise, increment)
		gs.CurrentBet = newTotal
		gs.LastRaiserID = playerID
		p.LastAction = fmt.Sprintf("raise to %d", newTotal)
		e.reopenAction(playerID)
		if p.Chips == 0 {
			p.Status = game.StatusAllIn
		}

	case game.ActionAllIn:
		newTotal := p.CurrentBet + amount
		p.Chips = 0
		p.CurrentBet = newTotal
		p.TotalBet += amount
		gs.Pots[0].Amount += amount
		p.Status = game.StatusAllIn
		p.LastAction = fmt.Sprintf("all-in %d", amount)
		if newTotal > gs.CurrentBet {
			increment := newTotal - gs.CurrentBet
			if increment >= gs.MinRaise {
				// A full raise reopens the action.
				gs.MinRaise = increment
				gs.LastRaiserID = playerID
				e.reopenAction(playerID)
			}
			// A short all-in raises the amount to match but leaves
			// already-acted players closed.
			gs.CurrentBet = newTotal
		}
	}

	p.HasActed = true
	e.recordAction(p, string(action.Type), amount)
	e.afterAction()

	return game.ValidatedAction{PlayerID: playerID, Type: action.Type, Amount: amount}, nil
}

// ForceFold folds a player out of the hand regardless of whose turn it
// is. Timeouts and kicks use it. Folding the current player advances the
// turn normally; folding anyone else only re-checks whether the round
// can now close.
func (e *Engine) ForceFold(playerID string) {
	gs := e.state
	p := gs.Players[playerID]
	if p == nil || (p.Status != game.StatusActive && p.Status != game.StatusAllIn) {
		return
	}
	if gs.Phase == game.PhaseBetting && gs.CurrentPlayerID == playerID {
		if _, err := e.ProcessAction(playerID, game.Action{Type: game.ActionFold}); err == nil {
			return
		}
	}

	p.Status = game.StatusFolded
	p.LastAction = "fold"
	e.recordAction(p, "fold", 0)
	if gs.Phase != game.PhaseBetting {
		return
	}
	if len(gs.ActivePlayers()) <= 1 {
		e.endHand()
		return
	}
	if rules.IsBettingRoundComplete(gs) {
		e.advanceRound()
	}
}

// reopenAction clears has-acted for everyone else still able to act.
func (e *Engine) reopenAction(raiserID string) {
	for _, p := range e.state.PlayersToAct() {
		if p.ID != raiserID {
			p.HasActed = false
		}
	}
}

func (e *Engine) recordAction(p *game.Player, action string, amount int) {
	gs := e.state
	gs.ActionHistory = append(gs.ActionHistory, game.ActionRecord{
		PlayerID:  p.ID,
		Username:  p.Username,
		Action:    action,
		Amount:    amount,
		Round:     gs.BettingRound,
		Timestamp: e.clock.Now(),
	})
}

// afterAction decides what follows an applied action: the next player,
// the next street, or the end of the hand. A lone remaining contender
// wins outright, whatever the betting state.
func (e *Engine) afterAction() {
	if len(e.state.ActivePlayers()) <= 1 {
		e.endHand()
		return
	}
	if !rules.IsBettingRoundComplete(e.state) {
		e.setNextPlayer()
		return
	}
	e.advanceRound()
}

// advanceRound moves to the next street, dealing community cards. When
// at most one player can still act, streets run out back to back with
// no betting.
func (e *Engine) advanceRound() {
	gs := e.state
	for _, p := range gs.Players {
		p.ResetForBettingRound()
	}
	gs.CurrentBet = 0
	gs.MinRaise = gs.BigBlind
	gs.LastRaiserID = ""

	switch gs.BettingRound {
	case game.RoundPreflop:
		gs.BettingRound = game.RoundFlop
		gs.CommunityCards = append(gs.CommunityCards, e.mustDeal(), e.mustDeal(), e.mustDeal())
	case game.RoundFlop:
		gs.BettingRound = game.RoundTurn
		gs.CommunityCards = append(gs.CommunityCards, e.mustDeal())
	case game.RoundTurn:
		gs.BettingRound = game.RoundRiver
		gs.CommunityCards = append(gs.CommunityCards, e.mustDeal())
	case game.RoundRiver:
		e.endHand()
		return
	default:
		return
	}

	e.setFirstToAct()

	if len(gs.PlayersToAct()) <= 1 {
		e.advanceRound()
	}
}

// setFirstToAct gives the post-flop lead to the first ACTIVE seat
// clockwise from the dealer button, skipping folded and all-in seats.
func (e *Engine) setFirstToAct() {
	gs := e.state
	n := len(gs.PlayerOrder)
	anchor := -1
	for i, pid := range gs.PlayerOrder {
		if gs.Players[pid].IsDealer {
			anchor = i
			break
		}
	}
	if n == 0 || anchor == -1 {
		gs.CurrentPlayerID = ""
		return
	}
	for i := 1; i <= n; i++ {
		pid := gs.PlayerOrder[(anchor+i)%n]
		if gs.Players[pid].Status == game.StatusActive {
			gs.CurrentPlayerID = pid
			return
		}
	}
	gs.CurrentPlayerID = ""
}

func (e *Engine) mustDeal() deck.Card {
	c, err := e.deck.Deal()
	if err != nil {
		// 52 cards cover any legal table; running out means corrupted
		// deck state.
		panic(fmt.Sprintf("table %s: %v", e.state.TableID, err))
	}
	return c
}
