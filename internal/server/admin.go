package server

import (
	"encoding/json"
	"net/http"

	"github.com/feltengine/felt/internal/broadcast"
	"github.com/feltengine/felt/internal/tournament"
)

func (s *Server) handleAdminStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.coordinator.Status())
}

func (s *Server) handleAdminPlayers(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"players": s.coordinator.PlayerList(),
	})
}

func (s *Server) handleAdminTables(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tables": s.coordinator.TableStates(),
	})
}

func (s *Server) handleAdminStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.coordinator.Start(); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminPause(w http.ResponseWriter, _ *http.Request) {
	if err := s.coordinator.Pause(); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminResume(w http.ResponseWriter, _ *http.Request) {
	if err := s.coordinator.Resume(); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminReset(w http.ResponseWriter, _ *http.Request) {
	s.coordinator.Reset()
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminKick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	// A missing body means no reason given.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "removed by admin"
	}

	if err := s.coordinator.Kick(r.PathValue("player_id"), req.Reason); err != nil {
		if err == tournament.ErrUnknownPlayer {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminBroadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message required")
		return
	}
	s.coordinator.Broadcast(req.Message)
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := newConnection(conn, RoleAdmin, "", s)
	s.hub.register(client)
	client.start()
	client.Send(broadcast.NewEnvelope("connected", s.coordinator.Status()))
}
