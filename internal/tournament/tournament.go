// Package tournament coordinates registration, table assignment, hand
// scheduling, blind escalation, eliminations and the overall tournament
// lifecycle across every table.
//
// A single mutex serializes all entry points (API calls and timer
// callbacks), so table engines never see concurrent access.
package tournament

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mathrand "math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/feltengine/felt/internal/broadcast"
	"github.com/feltengine/felt/internal/config"
	"github.com/feltengine/felt/internal/game"
	"github.com/feltengine/felt/internal/metrics"
	"github.com/feltengine/felt/internal/table"
)

// State is the tournament lifecycle phase.
type State string

const (
	StateRegistration State = "registration"
	StateInProgress   State = "in_progress"
	StatePaused       State = "paused"
	StateComplete     State = "complete"
)

var (
	// ErrNotRegistering is returned for registrations outside the
	// registration window.
	ErrNotRegistering = errors.New("registration is closed")
	// ErrUsernameTaken is returned for duplicate usernames.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrBadState is returned when an operation does not apply to the
	// current tournament state.
	ErrBadState = errors.New("invalid tournament state")
	// ErrUnknownPlayer is returned for ids that were never registered.
	ErrUnknownPlayer = errors.New("unknown player")
)

// PlayerInfo is the coordinator's record of one registrant.
type PlayerInfo struct {
	ID         string
	Username   string
	Team       string // optional team affiliation
	Credential string
	TableID    string // empty before seating and after elimination
	FinishPos  int    // 0 while still playing
	Kicked     bool
}

// Coordinator owns the tournament. All methods are safe for concurrent
// use.
type Coordinator struct {
	mu      sync.Mutex
	cfg     config.TournamentSettings
	logger  *log.Logger
	clock   quartz.Clock
	sink    broadcast.Sink
	metrics *metrics.Metrics
	rng     *mathrand.Rand

	state        State
	players      map[string]*PlayerInfo
	byCredential map[string]string
	byUsername   map[string]string // lowercased
	tables       map[string]*table.Engine
	tableSeq     int
	eliminations []string // player ids in bust order

	handsPlayed int
	blindLevel  int
	startedAt   time.Time

	// One pending timer per table, invalidated by bumping the
	// generation under mu. A stale callback observes the mismatch and
	// returns without acting.
	timerGen     map[string]int
	timers       map[string]*quartz.Timer
	pendingStart map[string]bool // tables owed a deal when paused
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock injects the timer clock. Tests use quartz.NewMock.
func WithClock(c quartz.Clock) Option {
	return func(t *Coordinator) { t.clock = c }
}

// WithSink sets the outbound notification sink.
func WithSink(s broadcast.Sink) Option {
	return func(t *Coordinator) { t.sink = s }
}

// WithMetrics sets the metrics instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Coordinator) { t.metrics = m }
}

// WithRand injects the RNG used for seat shuffling.
func WithRand(r *mathrand.Rand) Option {
	return func(t *Coordinator) { t.rng = r }
}

// New creates a coordinator in the registration state.
func New(cfg config.TournamentSettings, logger *log.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:          cfg,
		logger:       logger.WithPrefix("tournament"),
		clock:        quartz.NewReal(),
		sink:         broadcast.NopSink{},
		metrics:      metrics.New(),
		state:        StateRegistration,
		players:      make(map[string]*PlayerInfo),
		byCredential: make(map[string]string),
		byUsername:   make(map[string]string),
		tables:       make(map[string]*table.Engine),
		blindLevel:   1,
		timerGen:     make(map[string]int),
		timers:       make(map[string]*quartz.Timer),
		pendingStart: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSink attaches the notification sink after construction. The server
// builds its connection hub around the coordinator, so the sink arrives
// late.
func (c *Coordinator) SetSink(s broadcast.Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = s
}

// Register adds a player during the registration window and returns
// their credential. The team name is optional.
func (c *Coordinator) Register(username, team string) (*PlayerInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRegistration {
		return nil, ErrNotRegistering
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username must not be empty")
	}
	key := strings.ToLower(username)
	if _, taken := c.byUsername[key]; taken {
		return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
	}

	cred, err := newCredential()
	if err != nil {
		return nil, fmt.Errorf("generating credential: %w", err)
	}

	info := &PlayerInfo{
		ID:         uuid.NewString(),
		Username:   username,
		Team:       strings.TrimSpace(team),
		Credential: cred,
	}
	c.players[info.ID] = info
	c.byCredential[cred] = info.ID
	c.byUsername[key] = info.ID

	c.logger.Info("player registered", "username", username, "player", info.ID)
	return info, nil
}

// newCredential returns a 256-bit hex API key.
func newCredential() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

// Authenticate resolves a credential to a player id.
func (c *Coordinator) Authenticate(credential string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byCredential[credential]
	return id, ok
}

// PlayerByID returns a copy of the player's record.
func (c *Coordinator) PlayerByID(id string) (PlayerInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.players[id]
	if !ok {
		return PlayerInfo{}, false
	}
	return *info, true
}

// Start closes registration, seats everyone and deals the first hands.
// Players are shuffled and dealt round-robin across ⌈N/max⌉ tables.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRegistration {
		return fmt.Errorf("%w: cannot start from %s", ErrBadState, c.state)
	}
	if len(c.players) < c.cfg.MinPlayers {
		return fmt.Errorf("need at least %d players, have %d", c.cfg.MinPlayers, len(c.players))
	}

	ids := make([]string, 0, len(c.players))
	for id := range c.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	c.shuffle(ids)

	tableCount := (len(ids) + c.cfg.MaxPlayersPerTable - 1) / c.cfg.MaxPlayersPerTable
	engines := make([]*table.Engine, tableCount)
	for i := range engines {
		c.tableSeq++
		id := fmt.Sprintf("table-%d", c.tableSeq)
		engines[i] = table.New(id, c.cfg.SmallBlind, c.cfg.BigBlind, c.logger, table.WithClock(c.clock))
		c.tables[id] = engines[i]
	}

	for i, pid := range ids {
		eng := engines[i%tableCount]
		if err := eng.AddPlayer(pid, c.players[pid].Username, c.cfg.StartingChips, -1); err != nil {
			return fmt.Errorf("seating %s: %w", pid, err)
		}
		c.players[pid].TableID = eng.TableID()
	}

	c.state = StateInProgress
	c.startedAt = c.clock.Now()
	c.blindLevel = 1
	c.handsPlayed = 0
	c.eliminations = nil
	c.metrics.ActiveTables.Set(float64(tableCount))
	c.metrics.PlayersRemaining.Set(float64(len(ids)))

	c.logger.Info("tournament started", "players", len(ids), "tables", tableCount)

	for _, eng := range engines {
		c.startHandLocked(eng)
	}
	return nil
}

func (c *Coordinator) shuffle(ids []string) {
	swap := func(i, j int) { ids[i], ids[j] = ids[j], ids[i] }
	if c.rng != nil {
		c.rng.Shuffle(len(ids), swap)
		return
	}
	mathrand.Shuffle(len(ids), swap)
}

// Pause freezes play: pending timers are disarmed and no new hands are
// dealt until Resume.
func (c *Coordinator) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return fmt.Errorf("%w: cannot pause from %s", ErrBadState, c.state)
	}
	c.state = StatePaused
	for tableID := range c.tables {
		c.disarmTimerLocked(tableID)
	}
	c.logger.Info("tournament paused")
	return nil
}

// Resume continues a paused tournament, re-arming action timers for
// tables mid-hand and dealing any hands that came due while paused.
func (c *Coordinator) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return fmt.Errorf("%w: cannot resume from %s", ErrBadState, c.state)
	}
	c.state = StateInProgress
	c.logger.Info("tournament resumed")

	for tableID, eng := range c.tables {
		delete(c.pendingStart, tableID)
		if eng.State().Phase == game.PhaseBetting {
			c.armActionTimerLocked(eng)
		} else {
			c.startHandLocked(eng)
		}
	}
	return nil
}

// Reset abandons the current tournament and returns to the registration
// state. The registered roster is retained; only play state is dropped.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for tableID := range c.tables {
		c.disarmTimerLocked(tableID)
	}
	c.state = StateRegistration
	for _, info := range c.players {
		info.TableID = ""
		info.FinishPos = 0
		info.Kicked = false
	}
	c.tables = make(map[string]*table.Engine)
	c.eliminations = nil
	c.pendingStart = make(map[string]bool)
	c.handsPlayed = 0
	c.blindLevel = 1
	c.startedAt = time.Time{}
	c.metrics.ActiveTables.Set(0)
	c.metrics.PlayersRemaining.Set(0)
	c.logger.Info("tournament reset", "players_retained", len(c.players))
}

// Kick removes a player from the tournament. Their remaining chips leave
// play; a hand in progress sees them fold.
func (c *Coordinator) Kick(playerID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if info.Kicked || info.FinishPos != 0 {
		return fmt.Errorf("player %s is already out", info.Username)
	}
	info.Kicked = true

	if eng, seated := c.tables[info.TableID]; seated {
		if p := eng.State().Player(playerID); p != nil {
			if eng.State().Phase == game.PhaseBetting {
				gs := eng.State()
				prevCurrent := gs.CurrentPlayerID
				prevRound := gs.BettingRound
				wasCurrent := prevCurrent == playerID
				if wasCurrent {
					c.disarmTimerLocked(info.TableID)
				}
				eng.ForceFold(playerID)
				p.Chips = 0
				c.recordEliminationLocked(info)
				// A fresh decision window whenever the forced fold moved
				// the action, not only when the kicked player held it.
				rearm := wasCurrent || gs.CurrentPlayerID != prevCurrent || gs.BettingRound != prevRound
				c.afterTableProgressLocked(eng, rearm)
			} else {
				// Between hands: pull the player straight out.
				p.Chips = 0
				c.recordEliminationLocked(info)
				eng.RemovePlayer(playerID)
				if c.remainingLocked() <= 1 {
					c.endTournamentLocked()
				} else {
					c.maybeCloseTableLocked(eng)
				}
			}
		}
	} else if c.state == StateRegistration {
		delete(c.players, playerID)
		delete(c.byCredential, info.Credential)
		delete(c.byUsername, strings.ToLower(info.Username))
	}

	c.sink.SendToPlayer(playerID, broadcast.NewEnvelope("kicked", map[string]any{
		"reason": reason,
	}))
	c.logger.Info("player kicked", "player", info.Username, "reason", reason)
	return nil
}

// Broadcast pushes an admin announcement to every connected client.
func (c *Coordinator) Broadcast(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	env := broadcast.NewEnvelope("announcement", map[string]any{"message": message})
	for pid := range c.players {
		c.sink.SendToPlayer(pid, env)
	}
	c.sink.BroadcastToViewers(env)
	c.sink.BroadcastToAdmins(env)
}

// recordEliminationLocked assigns the next finish position, counting
// down from the field size, and announces the bust-out.
func (c *Coordinator) recordEliminationLocked(info *PlayerInfo) {
	if info.FinishPos != 0 {
		return
	}
	info.FinishPos = len(c.players) - len(c.eliminations)
	c.eliminations = append(c.eliminations, info.ID)
	info.TableID = ""
	c.metrics.PlayersRemaining.Set(float64(c.remainingLocked()))

	env := broadcast.NewEnvelope("elimination", map[string]any{
		"player_id":         info.ID,
		"username":          info.Username,
		"finish_position":   info.FinishPos,
		"remaining_players": c.remainingLocked(),
	})
	c.sink.BroadcastToViewers(env)
	c.sink.BroadcastToAdmins(env)
	c.logger.Info("player eliminated", "player", info.Username, "position", info.FinishPos)
}

// remainingLocked counts players still holding chips.
func (c *Coordinator) remainingLocked() int {
	n := 0
	for _, info := range c.players {
		if info.FinishPos == 0 && !info.Kicked {
			n++
		}
	}
	return n
}

// endTournamentLocked finishes the tournament and publishes standings.
func (c *Coordinator) endTournamentLocked() {
	for tableID := range c.tables {
		c.disarmTimerLocked(tableID)
	}
	c.state = StateComplete

	// The survivor takes first place.
	for _, info := range c.players {
		if info.FinishPos == 0 && !info.Kicked {
			info.FinishPos = 1
		}
	}

	standings := c.standingsLocked()
	env := broadcast.NewEnvelope("tournament_complete", map[string]any{
		"standings": standings,
	})
	for pid := range c.players {
		c.sink.SendToPlayer(pid, env)
	}
	c.sink.BroadcastToViewers(env)
	c.sink.BroadcastToAdmins(env)

	c.metrics.ActiveTables.Set(0)
	c.logger.Info("tournament complete", "hands", c.handsPlayed)
}
