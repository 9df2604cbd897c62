package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/DonaldSwap/internal/config"
	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
	"github.com/bryanchriswhite/DonaldSwap/internal/state"
	"github.com/bryanchriswhite/DonaldSwap/internal/window"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const version = "0.2.0"

// Swapper triggers an immediate swap.
type Swapper interface {
	ForceSwap(ctx context.Context) (state.SwapState, error)
}

// WindowLister lists live windows for the game picker.
type WindowLister interface {
	Enumerate() ([]window.Handle, error)
}

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	configMgr *config.Manager
	store     *state.Store
	swapper   Swapper
	windows   WindowLister
	upgrader  websocket.Upgrader

	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates a new API server
func NewServer(configMgr *config.Manager, store *state.Store, swapper Swapper, windows WindowLister) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		configMgr: configMgr,
		store:     store,
		swapper:   swapper,
		windows:   windows,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboard and OBS browser source are served from other origins
			},
		},
		closing: make(chan struct{}),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handleUpdateConfig).Methods("PUT")

	// Windows
	api.HandleFunc("/windows", s.handleGetWindows).Methods("GET")

	// Rotation
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/swap", s.handleForceSwap).Methods("POST")
	api.HandleFunc("/pause", s.handlePause).Methods("POST")
	api.HandleFunc("/resume", s.handleResume).Methods("POST")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/ws", s.handleStateStream)
	s.router.HandleFunc("/obs", s.handleOverlay).Methods("GET")
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Handler returns the router wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Run serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	log := logger.WithComponent("api")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("url", fmt.Sprintf("http://localhost:%d", port)).Msg("Dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("Dashboard stopped")
	return nil
}

// Close disconnects all websocket streams.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
	})
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// HTTP Handlers

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

// updateConfigRequest is a partial update: nil fields are left alone.
type updateConfigRequest struct {
	Games           *[]config.GameEntry `json:"games"`
	MinSwapMinutes  *int                `json:"min_swap_minutes"`
	MaxSwapMinutes  *int                `json:"max_swap_minutes"`
	AutoSwapEnabled *bool               `json:"auto_swap_enabled"`
	HideNextSwap    *bool               `json:"hide_next_swap"`
	OBS             *struct {
		Host           *string `json:"host"`
		Port           *int    `json:"port"`
		Password       *string `json:"password"`
		TimeoutSeconds *int    `json:"timeout_seconds"`
	} `json:"obs"`
}

func (req *updateConfigRequest) apply(c *config.Config) {
	if req.Games != nil {
		c.Games = *req.Games
	}
	if req.MinSwapMinutes != nil {
		c.MinSwapMinutes = *req.MinSwapMinutes
	}
	if req.MaxSwapMinutes != nil {
		c.MaxSwapMinutes = *req.MaxSwapMinutes
	}
	if req.AutoSwapEnabled != nil {
		c.AutoSwapEnabled = *req.AutoSwapEnabled
	}
	if req.HideNextSwap != nil {
		c.HideNextSwap = *req.HideNextSwap
	}
	if o := req.OBS; o != nil {
		if o.Host != nil {
			c.OBS.Host = *o.Host
		}
		if o.Port != nil {
			c.OBS.Port = *o.Port
		}
		if o.Password != nil {
			c.OBS.Password = *o.Password
		}
		if o.TimeoutSeconds != nil {
			c.OBS.TimeoutSeconds = *o.TimeoutSeconds
		}
	}
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := s.configMgr.Update(func(c *config.Config) error {
		req.apply(c)
		return nil
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrInvalidConfig) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	logger.WithComponent("api").Info().Msg("Config updated")
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGetWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := s.windows.Enumerate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if windows == nil {
		windows = []window.Handle{}
	}
	writeJSON(w, http.StatusOK, windows)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Read())
}

func (s *Server) handleForceSwap(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	// A client disconnect must not abandon a swap halfway through the focus dance.
	st, err := s.swapper.ForceSwap(context.WithoutCancel(r.Context()))
	if err != nil {
		log.Warn().Err(err).Msg("Force swap failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	logger.WithComponent("api").Info().Msg("Rotation paused")
	writeJSON(w, http.StatusOK, s.store.Pause())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	logger.WithComponent("api").Info().Msg("Rotation resumed")
	writeJSON(w, http.StatusOK, s.store.Resume())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

// handleStateStream sends the current state, then every published state, until the
// client goes away or the server closes.
func (s *Server) handleStateStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("websocket")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	updates := s.store.Subscribe()
	defer s.store.Unsubscribe(updates)

	if err := conn.WriteJSON(s.store.Read()); err != nil {
		log.Debug().Err(err).Msg("WebSocket write error")
		return
	}

	// Reads only serve to notice the client disconnecting.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket connected")
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		case <-gone:
			log.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket disconnected")
			return
		case <-s.closing:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(overlayHTML))
}
