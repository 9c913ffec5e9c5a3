// Package server hosts the dice game engine behind an HTTP API with a
// websocket broadcast channel per game. Humans act through the REST
// endpoints; bot seats are played by the scheduler.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"perudo/internal/game"
	"perudo/internal/gameid"
)

// Server is the HTTP front of the engine.
type Server struct {
	logger  *log.Logger
	config  *ServerConfig
	service *GameService
	hub     *Hub
	http    *http.Server
}

// NewServer wires the router around a service and hub.
func NewServer(logger *log.Logger, config *ServerConfig, service *GameService, hub *Hub) *Server {
	s := &Server{
		logger:  logger.WithPrefix("http"),
		config:  config,
		service: service,
		hub:     hub,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/games", func(r chi.Router) {
		r.Get("/", s.handleListGames)
		r.Post("/", s.handleCreateGame)
		r.Post("/lobby", s.handleCreateLobby)

		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/", s.handleGetGame)
			r.Delete("/", s.handleDeleteGame)
			r.Post("/join", s.handleJoin)
			r.Post("/start", s.handleStart)
			r.Delete("/players/{playerID}", s.handleRemovePlayer)
			r.Post("/bid", s.handleBid)
			r.Post("/doubt", s.handleDoubt)
			r.Post("/spot-on", s.handleSpotOn)
			r.Post("/continue", s.handleContinue)
			r.Post("/new-round", s.handleNewRound)
		})
	})

	r.Get("/ws/{gameID}", s.handleWS)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Server.Address, config.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createGameRequest struct {
	Players []struct {
		Name string `json:"name"`
		Bot  string `json:"bot"`
	} `json:"players"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	specs := make([]PlayerSpec, len(req.Players))
	for i, p := range req.Players {
		specs[i] = PlayerSpec{Name: p.Name, Bot: game.ParseBotLevel(p.Bot)}
	}
	view, err := s.service.CreateGame(specs)
	if err != nil {
		s.respondGameError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, view)
}

type createLobbyRequest struct {
	MaxPlayers int `json:"maxPlayers"`
}

func (s *Server) handleCreateLobby(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := s.service.CreateLobby(req.MaxPlayers)
	if err != nil {
		s.respondGameError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.service.ListGames())
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	view, err := s.service.GameFor(id, r.URL.Query().Get("playerId"))
	if err != nil {
		s.respondGameError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteGame(id); err != nil {
		s.respondGameError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type joinRequest struct {
	Name string `json:"name"`
	Bot  string `json:"bot"`
}

type joinResponse struct {
	PlayerID string   `json:"playerId"`
	Game     GameView `json:"game"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	view, playerID, err := s.service.Join(id, req.Name, game.ParseBotLevel(req.Bot))
	if err != nil {
		s.respondGameError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, joinResponse{PlayerID: playerID, Game: view})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	view, err := s.service.StartGame(id)
	if err != nil {
		s.respondGameError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	playerID := chi.URLParam(r, "playerID")
	view, err := s.service.RemovePlayer(id, playerID)
	if err != nil {
		s.respondGameError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

type bidRequest struct {
	PlayerID  string `json:"playerId"`
	Quantity  int    `json:"quantity"`
	FaceValue int    `json:"faceValue"`
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := s.service.PlaceBid(id, req.PlayerID, req.Quantity, req.FaceValue)
	if err != nil {
		s.respondGameError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

type actionRequest struct {
	PlayerID string `json:"playerId"`
}

func (s *Server) handleDoubt(w http.ResponseWriter, r *http.Request) {
	s.handleResolution(w, r, s.service.Doubt)
}

func (s *Server) handleSpotOn(w http.ResponseWriter, r *http.Request) {
	s.handleResolution(w, r, s.service.SpotOn)
}

func (s *Server) handleResolution(w http.ResponseWriter, r *http.Request, op func(string, string) (GameView, error)) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := op(id, req.PlayerID)
	if err != nil {
		s.respondGameError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	view, err := s.service.Continue(id)
	if err != nil {
		s.respondGameError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleNewRound(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	view, err := s.service.StartNewRound(id)
	if err != nil {
		s.respondGameError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	if _, err := s.service.Game(id); err != nil {
		s.respondGameError(w, err)
		return
	}
	s.hub.Subscribe(w, r, id)
}

// gameID extracts and validates the game id path segment.
func (s *Server) gameID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "gameID")
	if err := gameid.Validate(id); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondGameError maps engine errors onto HTTP status codes.
func (s *Server) respondGameError(w http.ResponseWriter, err error) {
	var actionErr *game.InvalidActionError
	var stateErr *game.InvalidStateError
	switch {
	case errors.Is(err, ErrGameNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &actionErr):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stateErr):
		s.respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("Unhandled error", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}
