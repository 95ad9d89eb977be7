package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/feltengine/felt/internal/broadcast"
	"github.com/feltengine/felt/internal/game"
	"github.com/feltengine/felt/internal/tournament"
)

func (s *Server) handleBotRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		TeamName string `json:"team_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	info, err := s.coordinator.Register(req.Username, req.TeamName)
	if err != nil {
		switch {
		case errors.Is(err, tournament.ErrNotRegistering):
			s.writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, tournament.ErrUsernameTaken):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"player_id": info.ID,
		"username":  info.Username,
		"team_name": info.Team,
		"api_key":   info.Credential,
	})
}

func (s *Server) handleBotAction(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.authenticateBot(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}

	var req struct {
		ActionType string `json:"action_type"`
		Amount     int    `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	actionType, err := game.ParseActionType(req.ActionType)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	va, err := s.coordinator.SubmitAction(playerID, game.Action{Type: actionType, Amount: req.Amount})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"action":  va.Type,
		"amount":  va.Amount,
	})
}

func (s *Server) handleBotState(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.authenticateBot(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}

	view, err := s.coordinator.PlayerGameState(playerID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleBotValidActions(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.authenticateBot(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}

	actions, err := s.coordinator.PlayerValidActions(playerID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"is_your_turn":  len(actions) > 0,
		"valid_actions": actions,
	})
}

func (s *Server) handleBotWS(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.authenticateBot(r)
	if !ok || playerID != r.PathValue("player_id") {
		s.writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	info, _ := s.coordinator.PlayerByID(playerID)
	client := newConnection(conn, RoleBot, playerID, s)
	s.hub.register(client)
	client.start()
	client.Send(broadcast.NewEnvelope("connected", map[string]string{
		"player_id": playerID,
		"username":  info.Username,
	}))

	// Push the current table state so a reconnecting bot can resume.
	if view, err := s.coordinator.PlayerGameState(playerID); err == nil {
		client.Send(broadcast.NewEnvelope("game_state", view))
	}
}
