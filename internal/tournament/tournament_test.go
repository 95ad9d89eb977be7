package tournament

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltengine/felt/internal/broadcast"
	"github.com/feltengine/felt/internal/config"
	"github.com/feltengine/felt/internal/game"
	"github.com/feltengine/felt/internal/randutil"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func testSettings() config.TournamentSettings {
	return config.Default().Tournament
}

// recordingSink captures every envelope for assertions.
type recordingSink struct {
	mu       sync.Mutex
	toPlayer map[string][]broadcast.Envelope
	viewers  []broadcast.Envelope
	admins   []broadcast.Envelope
}

func newRecordingSink() *recordingSink {
	return &recordingSink{toPlayer: make(map[string][]broadcast.Envelope)}
}

func (s *recordingSink) SendToPlayer(playerID string, env broadcast.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toPlayer[playerID] = append(s.toPlayer[playerID], env)
}

func (s *recordingSink) BroadcastToViewers(env broadcast.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewers = append(s.viewers, env)
}

func (s *recordingSink) BroadcastToAdmins(env broadcast.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins = append(s.admins, env)
}

func (s *recordingSink) playerSaw(playerID, typ string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, env := range s.toPlayer[playerID] {
		if env.Type == typ {
			return true
		}
	}
	return false
}

func (s *recordingSink) viewerSaw(typ string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, env := range s.viewers {
		if env.Type == typ {
			return true
		}
	}
	return false
}

func registerN(t *testing.T, c *Coordinator, names ...string) []*PlayerInfo {
	t.Helper()
	infos := make([]*PlayerInfo, len(names))
	for i, name := range names {
		info, err := c.Register(name, "")
		require.NoError(t, err)
		infos[i] = info
	}
	return infos
}

func TestRegistration(t *testing.T) {
	t.Parallel()

	c := New(testSettings(), testLogger())

	alice, err := c.Register("alice", "Deep Stack Labs")
	require.NoError(t, err)
	assert.NotEmpty(t, alice.ID)
	assert.Len(t, alice.Credential, 64)
	assert.Equal(t, "Deep Stack Labs", alice.Team)

	// Usernames are deduplicated case-insensitively.
	_, err = c.Register("ALICE", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = c.Register("   ", "")
	assert.Error(t, err)

	// The team name travels into the player list.
	assert.Equal(t, "Deep Stack Labs", playerRow(c, alice.ID).Team)

	id, ok := c.Authenticate(alice.Credential)
	require.True(t, ok)
	assert.Equal(t, alice.ID, id)

	_, ok = c.Authenticate("bogus")
	assert.False(t, ok)

	registerN(t, c, "bob")
	require.NoError(t, c.Start())

	// Registration closes once play begins.
	_, err = c.Register("carol", "")
	assert.ErrorIs(t, err, ErrNotRegistering)
}

func TestStartNeedsEnoughPlayers(t *testing.T) {
	t.Parallel()

	c := New(testSettings(), testLogger())
	registerN(t, c, "alice")
	assert.Error(t, c.Start())
}

func TestStartPartitionsIntoTables(t *testing.T) {
	t.Parallel()

	c := New(testSettings(), testLogger(),
		WithClock(quartz.NewMock(t)),
		WithRand(randutil.New(7)))
	names := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9", "p10", "p11", "p12", "p13"}
	registerN(t, c, names...)

	require.NoError(t, c.Start())

	status := c.Status()
	assert.Equal(t, StateInProgress, status.State)
	assert.Equal(t, 13, status.PlayersRemaining)
	assert.Equal(t, 3, status.ActiveTables)

	views := c.TableStates()
	require.Len(t, views, 3)
	seated := 0
	for _, v := range views {
		// Round-robin keeps tables within one player of each other.
		assert.GreaterOrEqual(t, len(v.Players), 4)
		assert.LessOrEqual(t, len(v.Players), 5)
		assert.Equal(t, 1, v.HandNumber)
		assert.Equal(t, game.PhaseBetting, v.Phase)
		assert.NotEmpty(t, v.CurrentPlayerID)
		seated += len(v.Players)
	}
	assert.Equal(t, 13, seated)

	// Every player knows their table, and no chips were minted.
	total := 0
	for _, row := range c.PlayerList() {
		assert.NotEmpty(t, row.TableID)
		total += row.Chips
	}
	for _, v := range views {
		total += v.TotalPot
	}
	assert.Equal(t, 13*1000, total)
}

func TestActionTimeoutFoldsAndNextHandDeals(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	sink := newRecordingSink()
	c := New(testSettings(), testLogger(),
		WithClock(mock),
		WithSink(sink),
		WithRand(randutil.New(1)))
	registerN(t, c, "alice", "bob")
	require.NoError(t, c.Start())

	views := c.TableStates()
	require.Len(t, views, 1)
	slowpoke := views[0].CurrentPlayerID
	require.NotEmpty(t, slowpoke)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Nobody acts for the full window: the current player is folded and
	// heads-up that ends the hand.
	mock.Advance(30 * time.Second).MustWait(ctx)

	status := c.Status()
	assert.Equal(t, 1, status.HandsPlayed)
	assert.True(t, sink.playerSaw(slowpoke, "action_result"))

	// The settling delay passes and the next hand is dealt.
	mock.Advance(3 * time.Second).MustWait(ctx)
	views = c.TableStates()
	require.Len(t, views, 1)
	assert.Equal(t, 2, views[0].HandNumber)
	assert.Equal(t, game.PhaseBetting, views[0].Phase)
}

func TestSubmitActionOutOfTurn(t *testing.T) {
	t.Parallel()

	c := New(testSettings(), testLogger(),
		WithClock(quartz.NewMock(t)),
		WithRand(randutil.New(1)))
	infos := registerN(t, c, "alice", "bob")
	require.NoError(t, c.Start())

	current := c.TableStates()[0].CurrentPlayerID
	other := infos[0].ID
	if other == current {
		other = infos[1].ID
	}

	_, err := c.SubmitAction(other, game.Action{Type: game.ActionFold})
	assert.Error(t, err)

	// The hand is untouched.
	assert.Equal(t, current, c.TableStates()[0].CurrentPlayerID)
}

func TestKickAssignsFinishPositionsAndEndsTournament(t *testing.T) {
	t.Parallel()

	sink := newRecordingSink()
	c := New(testSettings(), testLogger(),
		WithClock(quartz.NewMock(t)),
		WithSink(sink),
		WithRand(randutil.New(3)))
	infos := registerN(t, c, "a", "b", "c", "d")
	require.NoError(t, c.Start())

	// Kick three players; the field counts down 4, 3, 2.
	require.NoError(t, c.Kick(infos[0].ID, "misbehaving"))
	require.NoError(t, c.Kick(infos[1].ID, "misbehaving"))
	require.NoError(t, c.Kick(infos[2].ID, "misbehaving"))

	assert.Equal(t, StateComplete, c.State())

	byID := make(map[string]Standing)
	for _, s := range c.Standings() {
		byID[s.PlayerID] = s
	}
	assert.Equal(t, 4, byID[infos[0].ID].Position)
	assert.Equal(t, 3, byID[infos[1].ID].Position)
	assert.Equal(t, 2, byID[infos[2].ID].Position)
	assert.Equal(t, 1, byID[infos[3].ID].Position)

	assert.True(t, sink.playerSaw(infos[0].ID, "kicked"))
	assert.True(t, sink.viewerSaw("elimination"))
	assert.True(t, sink.playerSaw(infos[3].ID, "tournament_complete"))

	// Kicking twice is rejected.
	assert.Error(t, c.Kick(infos[0].ID, "again"))
}

func TestTableClosureRebalances(t *testing.T) {
	t.Parallel()

	sink := newRecordingSink()
	c := New(testSettings(), testLogger(),
		WithClock(quartz.NewMock(t)),
		WithSink(sink),
		WithRand(randutil.New(11)))
	registerN(t, c, "p1", "p2", "p3", "p4", "p5", "p6", "p7")
	require.NoError(t, c.Start())

	views := c.TableStates()
	require.Len(t, views, 2)

	// Find the smaller table and kick all but one of its players.
	small := views[0]
	if len(views[1].Players) < len(small.Players) {
		small = views[1]
	}
	require.Len(t, small.Players, 3)

	var survivor string
	i := 0
	for pid := range small.Players {
		if i < 2 {
			require.NoError(t, c.Kick(pid, "test"))
		} else {
			survivor = pid
		}
		i++
	}
	require.NotEmpty(t, survivor)

	// The short-handed table closed and its survivor moved, chips intact.
	views = c.TableStates()
	require.Len(t, views, 1)

	row := playerRow(c, survivor)
	assert.Equal(t, views[0].TableID, row.TableID)
	assert.GreaterOrEqual(t, row.Chips, 1000)
	assert.True(t, sink.playerSaw(survivor, "table_change"))

	status := c.Status()
	assert.Equal(t, 5, status.PlayersRemaining)
	assert.Equal(t, 1, status.ActiveTables)
}

func playerRow(c *Coordinator, playerID string) PlayerSummary {
	for _, row := range c.PlayerList() {
		if row.PlayerID == playerID {
			return row
		}
	}
	return PlayerSummary{}
}

func TestBlindEscalation(t *testing.T) {
	t.Parallel()

	cfg := testSettings()
	cfg.BlindIncreaseHands = 2
	cfg.BlindMultiplier = 2.0

	mock := quartz.NewMock(t)
	c := New(cfg, testLogger(), WithClock(mock), WithRand(randutil.New(5)))
	registerN(t, c, "alice", "bob")
	require.NoError(t, c.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Two hands time out back to back.
	mock.Advance(30 * time.Second).MustWait(ctx) // hand 1 folds out
	mock.Advance(3 * time.Second).MustWait(ctx)  // hand 2 deals
	mock.Advance(30 * time.Second).MustWait(ctx) // hand 2 folds out

	status := c.Status()
	assert.Equal(t, 2, status.HandsPlayed)
	assert.Equal(t, 2, status.BlindLevel)
	assert.Equal(t, 20, status.SmallBlind)
	assert.Equal(t, 40, status.BigBlind)

	// The next hand posts the doubled blinds.
	mock.Advance(3 * time.Second).MustWait(ctx)
	view := c.TableStates()[0]
	assert.Equal(t, 20, view.SmallBlind)
	assert.Equal(t, 40, view.BigBlind)
	assert.Equal(t, 40, view.CurrentBet)
}

func TestActionTimeoutDisabled(t *testing.T) {
	t.Parallel()

	cfg := testSettings()
	cfg.ActionTimeoutSecs = 0

	mock := quartz.NewMock(t)
	c := New(cfg, testLogger(), WithClock(mock), WithRand(randutil.New(8)))
	registerN(t, c, "alice", "bob")
	require.NoError(t, c.Start())

	current := c.TableStates()[0].CurrentPlayerID
	require.NotEmpty(t, current)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// With the timeout disabled, no amount of waiting folds anyone.
	mock.Advance(10 * time.Minute).MustWait(ctx)
	assert.Equal(t, 0, c.Status().HandsPlayed)
	assert.Equal(t, current, c.TableStates()[0].CurrentPlayerID)

	// The player can still act whenever they get around to it.
	_, err := c.SubmitAction(current, game.Action{Type: game.ActionFold})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Status().HandsPlayed)
}

func TestBlindEscalationDisabled(t *testing.T) {
	t.Parallel()

	cfg := testSettings()
	cfg.BlindIncreaseHands = 0

	mock := quartz.NewMock(t)
	c := New(cfg, testLogger(), WithClock(mock), WithRand(randutil.New(5)))
	registerN(t, c, "alice", "bob")
	require.NoError(t, c.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Two hands time out back to back; the blinds never move.
	mock.Advance(30 * time.Second).MustWait(ctx)
	mock.Advance(3 * time.Second).MustWait(ctx)
	mock.Advance(30 * time.Second).MustWait(ctx)

	status := c.Status()
	assert.Equal(t, 2, status.HandsPlayed)
	assert.Equal(t, 1, status.BlindLevel)
	assert.Equal(t, 10, status.SmallBlind)
	assert.Equal(t, 20, status.BigBlind)
}

func TestKickNonCurrentKeepsDecisionWindow(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	c := New(testSettings(), testLogger(), WithClock(mock), WithRand(randutil.New(6)))
	infos := registerN(t, c, "a", "b", "c")
	require.NoError(t, c.Start())

	current := c.TableStates()[0].CurrentPlayerID
	var bystander string
	for _, info := range infos {
		if info.ID != current {
			bystander = info.ID
			break
		}
	}
	require.NotEmpty(t, bystander)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Kicking someone who is not on the clock must neither cancel nor
	// restart the current player's decision window.
	mock.Advance(10 * time.Second).MustWait(ctx)
	require.NoError(t, c.Kick(bystander, "disconnected"))
	assert.Equal(t, current, c.TableStates()[0].CurrentPlayerID)

	mock.Advance(19 * time.Second).MustWait(ctx)
	assert.Equal(t, 0, c.Status().HandsPlayed)

	// The window expires exactly where it would have without the kick.
	mock.Advance(1 * time.Second).MustWait(ctx)
	assert.Equal(t, 1, c.Status().HandsPlayed)
}

func TestPauseAndResume(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	c := New(testSettings(), testLogger(), WithClock(mock), WithRand(randutil.New(9)))
	registerN(t, c, "alice", "bob")
	require.NoError(t, c.Start())

	require.NoError(t, c.Pause())
	assert.Equal(t, StatePaused, c.State())

	// A pause may not be stacked, and actions are refused.
	assert.Error(t, c.Pause())
	current := c.TableStates()[0].CurrentPlayerID
	_, err := c.SubmitAction(current, game.Action{Type: game.ActionFold})
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Time passing while paused folds nobody.
	mock.Advance(40 * time.Second).MustWait(ctx)
	assert.Equal(t, 0, c.Status().HandsPlayed)

	require.NoError(t, c.Resume())

	// The decision window restarts from the resume.
	mock.Advance(30 * time.Second).MustWait(ctx)
	assert.Equal(t, 1, c.Status().HandsPlayed)
}

func TestResetKeepsRoster(t *testing.T) {
	t.Parallel()

	c := New(testSettings(), testLogger(),
		WithClock(quartz.NewMock(t)),
		WithRand(randutil.New(2)))
	infos := registerN(t, c, "alice", "bob")
	require.NoError(t, c.Start())
	require.NotNil(t, c.Status().StartedAt)

	c.Reset()

	// Back to registration with every registrant still on the roster.
	status := c.Status()
	assert.Equal(t, StateRegistration, status.State)
	assert.Equal(t, 2, status.PlayersRegistered)
	assert.Nil(t, status.StartedAt)
	assert.Empty(t, c.TableStates())

	// Existing names stay reserved and credentials keep working.
	_, err := c.Register("alice", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	id, ok := c.Authenticate(infos[0].Credential)
	require.True(t, ok)
	assert.Equal(t, infos[0].ID, id)

	// Finish positions and seats from the abandoned run are gone.
	for _, row := range c.PlayerList() {
		assert.Zero(t, row.FinishPos)
		assert.Empty(t, row.TableID)
	}

	// Late entrants can still join, and the field restarts together.
	registerN(t, c, "carol")
	require.NoError(t, c.Start())
	assert.Equal(t, 3, c.Status().PlayersRemaining)
	assert.NotNil(t, c.Status().StartedAt)
}

func TestPlayerGameStateHidesOpponentCards(t *testing.T) {
	t.Parallel()

	c := New(testSettings(), testLogger(),
		WithClock(quartz.NewMock(t)),
		WithRand(randutil.New(4)))
	infos := registerN(t, c, "alice", "bob")
	require.NoError(t, c.Start())

	view, err := c.PlayerGameState(infos[0].ID)
	require.NoError(t, err)
	assert.Len(t, view.YourHoleCards, 2)
	assert.Empty(t, view.Players[infos[1].ID].HoleCards)

	_, err = c.PlayerGameState("nope")
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestPlayerValidActions(t *testing.T) {
	t.Parallel()

	c := New(testSettings(), testLogger(),
		WithClock(quartz.NewMock(t)),
		WithRand(randutil.New(4)))
	infos := registerN(t, c, "alice", "bob")
	require.NoError(t, c.Start())

	current := c.TableStates()[0].CurrentPlayerID
	actions, err := c.PlayerValidActions(current)
	require.NoError(t, err)
	assert.NotEmpty(t, actions)

	other := infos[0].ID
	if other == current {
		other = infos[1].ID
	}
	actions, err = c.PlayerValidActions(other)
	require.NoError(t, err)
	assert.Empty(t, actions)
}
