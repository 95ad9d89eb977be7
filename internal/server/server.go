// Package server exposes the tournament over HTTP and WebSocket: a REST
// and WS surface for bots, read-only viewer endpoints, and a password
// protected admin surface. It owns the connection hub that fans
// coordinator notifications out to clients.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/feltengine/felt/internal/config"
	"github.com/feltengine/felt/internal/metrics"
	"github.com/feltengine/felt/internal/tournament"
)

// Server is the HTTP/WebSocket front end.
type Server struct {
	cfg         *config.Config
	logger      *log.Logger
	coordinator *tournament.Coordinator
	hub         *Hub
	metrics     *metrics.Metrics
	upgrader    websocket.Upgrader
	mux         *http.ServeMux
}

// New wires the server to a coordinator and attaches the connection hub
// as the coordinator's notification sink.
func New(cfg *config.Config, logger *log.Logger, coord *tournament.Coordinator, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:         cfg,
		logger:      logger.WithPrefix("server"),
		coordinator: coord,
		hub:         newHub(),
		metrics:     m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Bots connect from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	coord.SetSink(s.hub)
	s.mux = s.routes()
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /bot/register", s.handleBotRegister)
	mux.HandleFunc("POST /bot/action", s.handleBotAction)
	mux.HandleFunc("GET /bot/state", s.handleBotState)
	mux.HandleFunc("GET /bot/valid-actions", s.handleBotValidActions)
	mux.HandleFunc("GET /bot/ws/{player_id}", s.handleBotWS)

	mux.HandleFunc("GET /viewer/state", s.handleViewerState)
	mux.HandleFunc("GET /viewer/leaderboard", s.handleViewerLeaderboard)
	mux.HandleFunc("GET /viewer/ws", s.handleViewerWS)

	mux.HandleFunc("GET /admin/status", s.adminOnly(s.handleAdminStatus))
	mux.HandleFunc("GET /admin/players", s.adminOnly(s.handleAdminPlayers))
	mux.HandleFunc("GET /admin/tables", s.adminOnly(s.handleAdminTables))
	mux.HandleFunc("POST /admin/start", s.adminOnly(s.handleAdminStart))
	mux.HandleFunc("POST /admin/pause", s.adminOnly(s.handleAdminPause))
	mux.HandleFunc("POST /admin/resume", s.adminOnly(s.handleAdminResume))
	mux.HandleFunc("POST /admin/reset", s.adminOnly(s.handleAdminReset))
	mux.HandleFunc("POST /admin/kick/{player_id}", s.adminOnly(s.handleAdminKick))
	mux.HandleFunc("POST /admin/broadcast", s.adminOnly(s.handleAdminBroadcast))
	mux.HandleFunc("GET /admin/ws", s.adminOnly(s.handleAdminWS))

	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.cfg.ListenAddress(),
		Handler: s.mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// adminOnly guards admin endpoints with HTTP basic auth against the
// configured password.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, password, ok := r.BasicAuth()
		if !ok || password != s.cfg.Server.AdminPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			s.writeError(w, http.StatusUnauthorized, "admin credentials required")
			return
		}
		next(w, r)
	}
}

// authenticateBot resolves the X-API-Key header (or api_key query
// parameter, for WebSocket clients) to a player id.
func (s *Server) authenticateBot(r *http.Request) (string, bool) {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		key = r.URL.Query().Get("api_key")
	}
	if key == "" {
		return "", false
	}
	return s.coordinator.Authenticate(key)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}
