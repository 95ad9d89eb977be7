package tournament

import (
	"fmt"
	"math"
	"sort"

	"github.com/feltengine/felt/internal/broadcast"
	"github.com/feltengine/felt/internal/game"
	"github.com/feltengine/felt/internal/table"
)

// SubmitAction applies a player's action to their table. On success the
// action timer moves to the next decision; a rejected action leaves the
// current timer running.
func (c *Coordinator) SubmitAction(playerID string, action game.Action) (game.ValidatedAction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return game.ValidatedAction{}, fmt.Errorf("%w: tournament is %s", ErrBadState, c.state)
	}
	info, ok := c.players[playerID]
	if !ok {
		return game.ValidatedAction{}, ErrUnknownPlayer
	}
	eng, seated := c.tables[info.TableID]
	if !seated {
		return game.ValidatedAction{}, fmt.Errorf("player %s is not seated", info.Username)
	}

	va, err := eng.ProcessAction(playerID, action)
	if err != nil {
		return game.ValidatedAction{}, err
	}

	c.metrics.ActionsProcessed.WithLabelValues(string(action.Type)).Inc()
	c.disarmTimerLocked(info.TableID)
	c.sink.SendToPlayer(playerID, broadcast.NewEnvelope("action_result", map[string]any{
		"success": true,
		"action":  va.Type,
		"amount":  va.Amount,
	}))
	c.afterTableProgressLocked(eng, true)
	return va, nil
}

// afterTableProgressLocked runs the shared follow-up once a table's
// state has advanced: finish the hand, or re-arm the action timer, then
// broadcast the new state.
func (c *Coordinator) afterTableProgressLocked(eng *table.Engine, rearm bool) {
	switch eng.State().Phase {
	case game.PhaseHandComplete:
		c.disarmTimerLocked(eng.TableID())
		c.broadcastTableLocked(eng)
		c.handCompleteLocked(eng)
	case game.PhaseBetting:
		if rearm {
			c.armActionTimerLocked(eng)
		}
		c.broadcastTableLocked(eng)
	default:
		c.broadcastTableLocked(eng)
	}
}

// startHandLocked deals the next hand on a table and opens the first
// decision window.
func (c *Coordinator) startHandLocked(eng *table.Engine) {
	if c.state != StateInProgress {
		c.pendingStart[eng.TableID()] = true
		return
	}
	if !eng.StartHand() {
		c.logger.Warn("table cannot start a hand", "table", eng.TableID())
		return
	}
	c.broadcastTableLocked(eng)
	c.armActionTimerLocked(eng)
}

// handCompleteLocked runs the between-hands sequence: eliminations,
// winner check, blind escalation, table closure and the settling delay
// before the next deal.
func (c *Coordinator) handCompleteLocked(eng *table.Engine) {
	c.handsPlayed++
	c.metrics.HandsPlayed.Inc()

	gs := eng.State()
	for _, pid := range append([]string{}, gs.PlayerOrder...) {
		p := gs.Players[pid]
		if p == nil || p.Chips > 0 {
			continue
		}
		if info := c.players[pid]; info != nil {
			c.recordEliminationLocked(info)
		}
		eng.RemovePlayer(pid)
	}

	if c.remainingLocked() <= 1 {
		c.endTournamentLocked()
		return
	}

	c.escalateBlindsLocked()
	c.maybeCloseTableLocked(eng)

	if _, open := c.tables[eng.TableID()]; open {
		c.scheduleNextHandLocked(eng)
	}
}

// escalateBlindsLocked raises the blinds geometrically every configured
// number of hands, across all tables at once. A non-positive interval
// keeps the blinds fixed for the whole tournament.
func (c *Coordinator) escalateBlindsLocked() {
	if c.cfg.BlindIncreaseHands <= 0 {
		return
	}
	level := c.handsPlayed/c.cfg.BlindIncreaseHands + 1
	if level == c.blindLevel {
		return
	}
	c.blindLevel = level
	sb, bb := c.blindsForLevelLocked(level)
	for _, eng := range c.tables {
		eng.SetBlinds(sb, bb)
	}
	c.logger.Info("blinds increased", "level", level, "blinds", fmt.Sprintf("%d/%d", sb, bb))
}

// blindsForLevelLocked returns the blind amounts at a level, applying
// the multiplier to the base blinds level-1 times.
func (c *Coordinator) blindsForLevelLocked(level int) (sb, bb int) {
	mult := math.Pow(c.cfg.BlindMultiplier, float64(level-1))
	return int(float64(c.cfg.SmallBlind) * mult), int(float64(c.cfg.BigBlind) * mult)
}

// maybeCloseTableLocked breaks a table that can no longer seat a hand,
// moving its survivors to the least-populated open table.
func (c *Coordinator) maybeCloseTableLocked(eng *table.Engine) {
	if len(c.tables) <= 1 || eng.EligiblePlayerCount() >= 2 {
		return
	}

	gs := eng.State()
	dests := make(map[string]*table.Engine)
	for _, pid := range append([]string{}, gs.PlayerOrder...) {
		p := gs.Players[pid]
		if p == nil || p.Chips <= 0 {
			continue
		}
		dest := c.pickDestinationLocked(eng.TableID())
		if dest == nil {
			// No seat anywhere; leave the table open until one frees up.
			c.logger.Warn("no destination table with space", "table", eng.TableID())
			return
		}
		eng.RemovePlayer(pid)
		if err := dest.AddPlayer(pid, p.Username, p.Chips, -1); err != nil {
			c.logger.Error("failed to reseat player", "player", p.Username, "err", err)
			continue
		}
		c.players[pid].TableID = dest.TableID()
		dests[dest.TableID()] = dest
		c.sink.SendToPlayer(pid, broadcast.NewEnvelope("table_change", map[string]any{
			"table_id": dest.TableID(),
		}))
		c.logger.Info("player moved", "player", p.Username, "to", dest.TableID())
	}

	// A destination that was idle (no hand in flight, no deal pending)
	// needs a fresh deal now that it can seat a hand again.
	for id, dest := range dests {
		if dest.State().Phase != game.PhaseBetting && c.timers[id] == nil && !c.pendingStart[id] {
			c.scheduleNextHandLocked(dest)
		}
	}

	c.disarmTimerLocked(eng.TableID())
	delete(c.tables, eng.TableID())
	delete(c.pendingStart, eng.TableID())
	c.metrics.ActiveTables.Set(float64(len(c.tables)))
	c.logger.Info("table closed", "table", eng.TableID())
}

// pickDestinationLocked chooses the open table with the fewest players
// and a free seat, breaking ties on table id.
func (c *Coordinator) pickDestinationLocked(exclude string) *table.Engine {
	ids := make([]string, 0, len(c.tables))
	for id := range c.tables {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, nj := len(c.tables[ids[i]].State().Players), len(c.tables[ids[j]].State().Players)
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		eng := c.tables[id]
		if len(eng.State().Players) < c.cfg.MaxPlayersPerTable {
			return eng
		}
	}
	return nil
}

// scheduleNextHandLocked arms the settling delay before the next deal.
func (c *Coordinator) scheduleNextHandLocked(eng *table.Engine) {
	tableID := eng.TableID()
	gen := c.bumpTimerGenLocked(tableID)
	c.timers[tableID] = c.clock.AfterFunc(c.cfg.HandDelay(), func() {
		c.onHandTimer(tableID, gen)
	})
}

func (c *Coordinator) onHandTimer(tableID string, gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timerGen[tableID] != gen {
		return
	}
	eng, open := c.tables[tableID]
	if !open {
		return
	}
	if c.state != StateInProgress {
		c.pendingStart[tableID] = true
		return
	}
	c.startHandLocked(eng)
}

// armActionTimerLocked opens the decision window for the table's current
// player. Firing folds them. A non-positive timeout disables the window
// entirely, letting bots think as long as they like.
func (c *Coordinator) armActionTimerLocked(eng *table.Engine) {
	if c.cfg.ActionTimeout() <= 0 {
		return
	}
	tableID := eng.TableID()
	if eng.State().CurrentPlayerID == "" {
		return
	}
	gen := c.bumpTimerGenLocked(tableID)
	c.timers[tableID] = c.clock.AfterFunc(c.cfg.ActionTimeout(), func() {
		c.onActionTimeout(tableID, gen)
	})
}

func (c *Coordinator) onActionTimeout(tableID string, gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timerGen[tableID] != gen || c.state != StateInProgress {
		return
	}
	eng, open := c.tables[tableID]
	if !open {
		return
	}
	pid := eng.State().CurrentPlayerID
	if pid == "" || eng.State().Phase != game.PhaseBetting {
		return
	}

	c.metrics.TimeoutsFired.Inc()
	c.logger.Warn("action timeout, folding", "table", tableID, "player", pid)
	eng.ForceFold(pid)
	c.sink.SendToPlayer(pid, broadcast.NewEnvelope("action_result", map[string]any{
		"success": true,
		"action":  game.ActionFold,
		"amount":  0,
		"message": "timed out, folded automatically",
	}))
	c.afterTableProgressLocked(eng, true)
}

// bumpTimerGenLocked invalidates any outstanding timer for the table and
// returns the new generation.
func (c *Coordinator) bumpTimerGenLocked(tableID string) int {
	if t := c.timers[tableID]; t != nil {
		t.Stop()
		delete(c.timers, tableID)
	}
	c.timerGen[tableID]++
	return c.timerGen[tableID]
}

func (c *Coordinator) disarmTimerLocked(tableID string) {
	c.bumpTimerGenLocked(tableID)
}

// broadcastTableLocked pushes the table state to its players (with their
// own hole cards), and the public view to viewers and admins.
func (c *Coordinator) broadcastTableLocked(eng *table.Engine) {
	gs := eng.State()
	for pid := range gs.Players {
		c.sink.SendToPlayer(pid, broadcast.NewEnvelope("game_state", gs.ViewFor(pid)))
	}
	public := broadcast.NewEnvelope("game_state", gs.PublicView())
	c.sink.BroadcastToViewers(public)
	c.sink.BroadcastToAdmins(public)
}
