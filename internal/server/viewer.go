package server

import (
	"net/http"

	"github.com/feltengine/felt/internal/broadcast"
)

func (s *Server) handleViewerState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tournament": s.coordinator.Status(),
		"tables":     s.coordinator.TableStates(),
	})
}

func (s *Server) handleViewerLeaderboard(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"standings": s.coordinator.Standings(),
	})
}

func (s *Server) handleViewerWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := newConnection(conn, RoleViewer, "", s)
	s.hub.register(client)
	client.start()
	client.Send(broadcast.NewEnvelope("connected", s.coordinator.Status()))
}
