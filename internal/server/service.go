package server

import (
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"perudo/internal/game"
	"perudo/internal/gameid"
	"perudo/internal/randutil"
)

// Timing groups the delays the engine schedules around reveals and the
// scheduler's bot pacing.
type Timing struct {
	// ContinueEnableDelay is how long after a reveal the continue button
	// unlocks.
	ContinueEnableDelay time.Duration
	// AutoContinueDelay is how long after a reveal the hand continues on its
	// own if nobody pressed continue.
	AutoContinueDelay time.Duration
	// AutoNewRoundDelay is how long after a round ends the next round starts.
	AutoNewRoundDelay time.Duration
	// SchedulerTick is the bot scheduler's scan interval.
	SchedulerTick time.Duration
	// ActionCooldown is the minimum gap between two bot actions by the same
	// player in the same hand, so a scan cannot double-fire.
	ActionCooldown time.Duration
	// PostRevealDelay holds bots back after a reveal so observers can read
	// the dice before play resumes.
	PostRevealDelay time.Duration
}

// DefaultTiming returns the standard pacing.
func DefaultTiming() Timing {
	return Timing{
		ContinueEnableDelay: 5 * time.Second,
		AutoContinueDelay:   6 * time.Second,
		AutoNewRoundDelay:   6 * time.Second,
		SchedulerTick:       500 * time.Millisecond,
		ActionCooldown:      time.Second,
		PostRevealDelay:     6 * time.Second,
	}
}

// PlayerSpec describes one seat when creating a pre-populated game.
type PlayerSpec struct {
	Name string
	Bot  game.BotLevel
}

// GameService owns every game mutation. All access to a game goes through
// the store's per-game lock; the service itself only guards its shared rng.
type GameService struct {
	logger *log.Logger
	store  *Store
	pub    Publisher
	clock  quartz.Clock
	timing Timing

	mu    sync.Mutex
	rng   *rand.Rand
	idgen *gameid.Generator
}

// NewGameService wires a service. The seed drives game id generation and
// every per-game dice stream, so a fixed seed reproduces whole games.
func NewGameService(logger *log.Logger, store *Store, pub Publisher, clock quartz.Clock, seed int64, timing Timing) *GameService {
	rng := randutil.New(seed)
	return &GameService{
		logger: logger.WithPrefix("service"),
		store:  store,
		pub:    pub,
		clock:  clock,
		timing: timing,
		rng:    rng,
		idgen:  gameid.NewGenerator(rng),
	}
}

// newGameID reserves a fresh id not already in the store.
func (s *GameService) newGameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		id := s.idgen.Generate()
		if err := s.store.With(id, func(*game.Game) error { return nil }); err == ErrGameNotFound {
			return id
		}
	}
}

// newGameRNG derives an independent dice stream for one game.
func (s *GameService) newGameRNG() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return randutil.New(s.rng.Int64())
}

// CreateGame creates a game with a fixed roster, deals dice and starts round
// one immediately.
func (s *GameService) CreateGame(specs []PlayerSpec) (GameView, error) {
	if len(specs) > game.DefaultMaxPlayers {
		return GameView{}, invalidActionf("too many players, maximum is %d", game.DefaultMaxPlayers)
	}
	players := make([]*game.Player, 0, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return GameView{}, invalidActionf("player %d has no name", i+1)
		}
		for _, p := range players {
			if p.Name == spec.Name {
				return GameView{}, invalidActionf("duplicate player name %q", spec.Name)
			}
		}
		players = append(players, game.NewPlayer(spec.Name, game.Colors[i%len(game.Colors)], spec.Bot))
	}

	g, err := game.New(s.newGameID(), players, s.newGameRNG())
	if err != nil {
		return GameView{}, err
	}
	s.store.Put(g)
	view := Snapshot(g)
	s.logger.Info("Game created", "game", g.ID, "players", len(players))
	s.publish(g.ID, EventGameCreated, view)
	return view, nil
}

// CreateLobby creates an empty joinable multiplayer game.
func (s *GameService) CreateLobby(maxPlayers int) (GameView, error) {
	if maxPlayers > game.DefaultMaxPlayers {
		return GameView{}, invalidActionf("too many players, maximum is %d", game.DefaultMaxPlayers)
	}
	g := game.NewLobby(s.newGameID(), maxPlayers, s.newGameRNG())
	s.store.Put(g)
	view := Snapshot(g)
	s.logger.Info("Lobby created", "game", g.ID, "maxPlayers", g.MaxPlayers)
	s.publish(g.ID, EventGameCreated, view)
	return view, nil
}

// Join seats a player in a lobby.
func (s *GameService) Join(gameID, name string, bot game.BotLevel) (GameView, string, error) {
	var view GameView
	var playerID string
	err := s.store.With(gameID, func(g *game.Game) error {
		player, err := g.Join(name, bot)
		if err != nil {
			return err
		}
		playerID = player.ID
		view = Snapshot(g)
		return nil
	})
	if err != nil {
		return GameView{}, "", err
	}
	s.logger.Info("Player joined", "game", gameID, "player", name)
	s.publish(gameID, EventGameUpdated, view)
	return view, playerID, nil
}

// RemovePlayer unseats a player from a lobby that has not started.
func (s *GameService) RemovePlayer(gameID, playerID string) (GameView, error) {
	var view GameView
	err := s.store.With(gameID, func(g *game.Game) error {
		if err := g.RemovePlayer(playerID); err != nil {
			return err
		}
		view = Snapshot(g)
		return nil
	})
	if err != nil {
		return GameView{}, err
	}
	s.publish(gameID, EventGameUpdated, view)
	return view, nil
}

// StartGame starts a lobby once enough players are seated.
func (s *GameService) StartGame(gameID string) (GameView, error) {
	var view GameView
	err := s.store.With(gameID, func(g *game.Game) error {
		if err := g.Start(); err != nil {
			return err
		}
		view = Snapshot(g)
		return nil
	})
	if err != nil {
		return GameView{}, err
	}
	s.logger.Info("Game started", "game", gameID)
	s.publish(gameID, EventGameStarted, view)
	return view, nil
}

// PlaceBid applies a raise by the current player.
func (s *GameService) PlaceBid(gameID, playerID string, quantity, faceValue int) (GameView, error) {
	var view GameView
	err := s.store.With(gameID, func(g *game.Game) error {
		if err := g.PlaceBid(playerID, quantity, faceValue); err != nil {
			return err
		}
		view = Snapshot(g)
		return nil
	})
	if err != nil {
		return GameView{}, err
	}
	s.publish(gameID, EventGameUpdated, view)
	return view, nil
}

// Doubt challenges the current bid and resolves the hand.
func (s *GameService) Doubt(gameID, playerID string) (GameView, error) {
	return s.resolve(gameID, playerID, func(g *game.Game) (*game.HandResult, error) {
		return g.ResolveDoubt(playerID)
	})
}

// SpotOn claims the current bid is exact and resolves the hand.
func (s *GameService) SpotOn(gameID, playerID string) (GameView, error) {
	return s.resolve(gameID, playerID, func(g *game.Game) (*game.HandResult, error) {
		return g.ResolveSpotOn(playerID)
	})
}

func (s *GameService) resolve(gameID, playerID string, fn func(*game.Game) (*game.HandResult, error)) (GameView, error) {
	var view GameView
	var result *game.HandResult
	err := s.store.With(gameID, func(g *game.Game) error {
		if g.State != game.InProgress {
			return invalidStatef("game is not in progress, current state: %s", g.State)
		}
		current := g.CurrentPlayer()
		if current == nil || current.ID != playerID {
			return invalidActionf("not this player's turn")
		}
		var err error
		result, err = fn(g)
		if err != nil {
			return err
		}
		view = Snapshot(g)
		return nil
	})
	if err != nil {
		return GameView{}, err
	}

	s.logger.Info("Hand resolved", "game", gameID,
		"actual", result.ActualCount, "bid", result.BidQuantity,
		"eliminated", result.EliminatedID, "roundEnded", result.RoundEnded)

	if result.GameEnded {
		s.publish(gameID, EventGameEnded, view)
	} else {
		s.publish(gameID, EventGameUpdated, view)
	}
	s.scheduleRevealTimers(gameID, result)
	return view, nil
}

// scheduleRevealTimers arms the post-resolution timers: continue unlock and
// auto-continue while the round goes on, or the next round when it ended.
// Every callback re-validates state under the game lock, so a manual action
// or a deleted game in the meantime makes it a no-op.
func (s *GameService) scheduleRevealTimers(gameID string, result *game.HandResult) {
	if result.GameEnded {
		return
	}
	if result.RoundEnded {
		s.clock.AfterFunc(s.timing.AutoNewRoundDelay, func() {
			s.autoNewRound(gameID)
		})
		return
	}
	s.clock.AfterFunc(s.timing.ContinueEnableDelay, func() {
		s.enableContinue(gameID)
	})
	s.clock.AfterFunc(s.timing.AutoContinueDelay, func() {
		s.autoContinue(gameID)
	})
}

func (s *GameService) enableContinue(gameID string) {
	var view GameView
	changed := false
	err := s.store.With(gameID, func(g *game.Game) error {
		if !g.ShowAllDice || g.CanContinue || g.State != game.InProgress {
			return nil
		}
		g.CanContinue = true
		view = Snapshot(g)
		changed = true
		return nil
	})
	if err != nil || !changed {
		return
	}
	s.publish(gameID, EventGameUpdated, view)
}

func (s *GameService) autoContinue(gameID string) {
	var view GameView
	changed := false
	err := s.store.With(gameID, func(g *game.Game) error {
		if !g.ShowAllDice || g.State != game.InProgress {
			return nil
		}
		g.CanContinue = true
		if !g.ContinueHand() {
			return nil
		}
		view = Snapshot(g)
		changed = true
		return nil
	})
	if err != nil || !changed {
		return
	}
	s.logger.Debug("Hand auto-continued", "game", gameID)
	s.publish(gameID, EventGameUpdated, view)
}

func (s *GameService) autoNewRound(gameID string) {
	var view GameView
	changed := false
	err := s.store.With(gameID, func(g *game.Game) error {
		if g.State != game.InProgress || g.RoundWinnerID == "" {
			return nil
		}
		g.StartNewRound()
		view = Snapshot(g)
		changed = true
		return nil
	})
	if err != nil || !changed {
		return
	}
	s.logger.Info("New round started", "game", gameID)
	s.publish(gameID, EventGameStarted, view)
}

// Continue ends the reveal at the player's request. Only valid once the
// continue window has opened.
func (s *GameService) Continue(gameID string) (GameView, error) {
	var view GameView
	err := s.store.With(gameID, func(g *game.Game) error {
		if !g.ContinueHand() {
			return invalidStatef("hand cannot continue right now")
		}
		view = Snapshot(g)
		return nil
	})
	if err != nil {
		return GameView{}, err
	}
	s.publish(gameID, EventGameUpdated, view)
	return view, nil
}

// StartNewRound begins the next round at a player's request, ahead of the
// automatic timer.
func (s *GameService) StartNewRound(gameID string) (GameView, error) {
	var view GameView
	err := s.store.With(gameID, func(g *game.Game) error {
		if g.State != game.InProgress {
			return invalidStatef("game is not in progress, current state: %s", g.State)
		}
		if g.RoundWinnerID == "" {
			return invalidStatef("round is still being played")
		}
		g.StartNewRound()
		view = Snapshot(g)
		return nil
	})
	if err != nil {
		return GameView{}, err
	}
	s.publish(gameID, EventGameStarted, view)
	return view, nil
}

// Game returns the observer view of one game.
func (s *GameService) Game(gameID string) (GameView, error) {
	return s.GameFor(gameID, "")
}

// GameFor returns the view for one player, with their own dice visible.
func (s *GameService) GameFor(gameID, playerID string) (GameView, error) {
	var view GameView
	err := s.store.With(gameID, func(g *game.Game) error {
		view = SnapshotFor(g, playerID)
		return nil
	})
	if err != nil {
		return GameView{}, err
	}
	return view, nil
}

// ListGames returns summaries of every game.
func (s *GameService) ListGames() []GameSummary {
	summaries := make([]GameSummary, 0)
	s.store.ForEach(func(g *game.Game) {
		summaries = append(summaries, Summarize(g))
	})
	return summaries
}

// DeleteGame removes a game entirely.
func (s *GameService) DeleteGame(gameID string) error {
	err := s.store.With(gameID, func(*game.Game) error { return nil })
	if err != nil {
		return err
	}
	s.store.Remove(gameID)
	s.logger.Info("Game deleted", "game", gameID)
	return nil
}

func (s *GameService) publish(gameID, event string, payload any) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(gameID, event, payload)
}

func invalidActionf(format string, args ...any) error {
	return &game.InvalidActionError{Reason: fmt.Sprintf(format, args...)}
}

func invalidStatef(format string, args ...any) error {
	return &game.InvalidStateError{Reason: fmt.Sprintf(format, args...)}
}
