package tournament

import (
	"fmt"
	"sort"
	"time"

	"github.com/feltengine/felt/internal/game"
	"github.com/feltengine/felt/internal/rules"
)

// StatusReport is the admin/viewer snapshot of the tournament.
type StatusReport struct {
	State             State      `json:"state"`
	PlayersRegistered int        `json:"players_registered"`
	PlayersRemaining  int        `json:"players_remaining"`
	ActiveTables      int        `json:"active_tables"`
	HandsPlayed       int        `json:"hands_played"`
	BlindLevel        int        `json:"blind_level"`
	SmallBlind        int        `json:"small_blind"`
	BigBlind          int        `json:"big_blind"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
}

// Status returns the tournament snapshot.
func (c *Coordinator) Status() StatusReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	sb, bb := c.blindsForLevelLocked(c.blindLevel)
	report := StatusReport{
		State:             c.state,
		PlayersRegistered: len(c.players),
		PlayersRemaining:  c.remainingLocked(),
		ActiveTables:      len(c.tables),
		HandsPlayed:       c.handsPlayed,
		BlindLevel:        c.blindLevel,
		SmallBlind:        sb,
		BigBlind:          bb,
	}
	if !c.startedAt.IsZero() {
		started := c.startedAt
		report.StartedAt = &started
	}
	return report
}

// State returns the lifecycle phase.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PlayerSummary is one row of the admin player list.
type PlayerSummary struct {
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
	Team      string `json:"team_name,omitempty"`
	TableID   string `json:"table_id,omitempty"`
	Chips     int    `json:"chips"`
	FinishPos int    `json:"finish_position,omitempty"`
	Kicked    bool   `json:"kicked,omitempty"`
}

// PlayerList returns every registrant with their current chips, sorted
// by username.
func (c *Coordinator) PlayerList() []PlayerSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PlayerSummary, 0, len(c.players))
	for _, info := range c.players {
		out = append(out, PlayerSummary{
			PlayerID:  info.ID,
			Username:  info.Username,
			Team:      info.Team,
			TableID:   info.TableID,
			Chips:     c.chipsOfLocked(info),
			FinishPos: info.FinishPos,
			Kicked:    info.Kicked,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (c *Coordinator) chipsOfLocked(info *PlayerInfo) int {
	if info.TableID == "" {
		if c.state == StateRegistration {
			return c.cfg.StartingChips
		}
		return 0
	}
	eng, ok := c.tables[info.TableID]
	if !ok {
		return 0
	}
	if p := eng.State().Player(info.ID); p != nil {
		return p.Chips
	}
	return 0
}

// TableStates returns the public view of every open table, sorted by
// table id.
func (c *Coordinator) TableStates() []game.TableView {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.tables))
	for id := range c.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	views := make([]game.TableView, 0, len(ids))
	for _, id := range ids {
		views = append(views, c.tables[id].State().PublicView())
	}
	return views
}

// PlayerGameState returns a player's view of their own table.
func (c *Coordinator) PlayerGameState(playerID string) (game.TableView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.players[playerID]
	if !ok {
		return game.TableView{}, ErrUnknownPlayer
	}
	eng, seated := c.tables[info.TableID]
	if !seated {
		return game.TableView{}, fmt.Errorf("player %s is not seated at a table", info.Username)
	}
	return eng.State().ViewFor(playerID), nil
}

// PlayerValidActions returns the legal actions for a player right now.
// Empty when it is not their turn.
func (c *Coordinator) PlayerValidActions(playerID string) ([]rules.ValidAction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	eng, seated := c.tables[info.TableID]
	if !seated {
		return []rules.ValidAction{}, nil
	}
	return eng.ValidActions(playerID), nil
}

// Standing is one row of the final or live leaderboard.
type Standing struct {
	Position int    `json:"position"`
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	Chips    int    `json:"chips"`
}

// Standings returns the leaderboard. Players still in play rank first by
// chips; finished players follow in finish order.
func (c *Coordinator) Standings() []Standing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.standingsLocked()
}

func (c *Coordinator) standingsLocked() []Standing {
	out := make([]Standing, 0, len(c.players))
	for _, info := range c.players {
		out = append(out, Standing{
			Position: info.FinishPos,
			PlayerID: info.ID,
			Username: info.Username,
			Chips:    c.chipsOfLocked(info),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Position == 0 && b.Position == 0:
			if a.Chips != b.Chips {
				return a.Chips > b.Chips
			}
			return a.Username < b.Username
		case a.Position == 0:
			return true
		case b.Position == 0:
			return false
		default:
			return a.Position < b.Position
		}
	})
	return out
}
