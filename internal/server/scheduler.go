package server

import (
	"context"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"perudo/internal/bot"
	"perudo/internal/game"
)

// Scheduler scans all games on a fixed tick and plays the bot seats. A game
// gets at most one bot turn in flight at a time, and bots pause for a beat
// after every reveal so observers can read the dice.
type Scheduler struct {
	logger  *log.Logger
	service *GameService
	store   *Store
	clock   quartz.Clock
	timing  Timing

	mu          sync.Mutex
	rng         *rand.Rand
	processing  map[string]bool
	lastAction  map[string]actionRecord
	revealSince map[string]time.Time
}

// actionRecord remembers a bot's most recent action so one turn cannot be
// scheduled twice across ticks.
type actionRecord struct {
	gameID string
	round  int
	at     time.Time
}

// NewScheduler creates a scheduler over the given store. The rng drives
// thinking delays and policy randomness.
func NewScheduler(logger *log.Logger, service *GameService, store *Store, clock quartz.Clock, rng *rand.Rand, timing Timing) *Scheduler {
	return &Scheduler{
		logger:      logger.WithPrefix("scheduler"),
		service:     service,
		store:       store,
		clock:       clock,
		timing:      timing,
		rng:         rng,
		processing:  make(map[string]bool),
		lastAction:  make(map[string]actionRecord),
		revealSince: make(map[string]time.Time),
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler running", "tick", s.timing.SchedulerTick)
	ticker := s.clock.TickerFunc(ctx, s.timing.SchedulerTick, func() error {
		s.tick()
		return nil
	}, "scheduler")
	err := ticker.Wait()
	if err == context.Canceled || err == context.DeadlineExceeded {
		return nil
	}
	return err
}

// tick scans every game once; for each game whose current player is a bot
// and whose guards all pass, it launches one bot turn.
func (s *Scheduler) tick() {
	s.store.ForEach(func(g *game.Game) {
		if g.ShowAllDice {
			s.markRevealed(g.ID)
			return
		}
		if g.State != game.InProgress {
			return
		}
		current := g.CurrentPlayer()
		if current == nil || !current.IsBot() || current.Eliminated {
			return
		}
		if !s.claim(g, current) {
			return
		}

		opening := g.CurrentBid == nil
		s.mu.Lock()
		delay := bot.ThinkingDelay(current.Bot, opening, s.rng)
		s.mu.Unlock()
		go s.runBotTurn(g.ID, current.ID, current.Bot, delay)
	})
}

// markRevealed stamps the game while its dice are up; the stamp keeps bots
// quiet for PostRevealDelay after the reveal ends.
func (s *Scheduler) markRevealed(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revealSince[gameID] = s.clock.Now()
}

// claim checks every pacing guard and, when they all pass, marks the game as
// having a bot turn in flight.
func (s *Scheduler) claim(g *game.Game, current *game.Player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing[g.ID] {
		return false
	}
	now := s.clock.Now()
	if since, ok := s.revealSince[g.ID]; ok {
		if now.Sub(since) < s.timing.PostRevealDelay {
			return false
		}
		delete(s.revealSince, g.ID)
	}
	if rec, ok := s.lastAction[current.ID]; ok &&
		rec.gameID == g.ID && rec.round == g.RoundNumber &&
		now.Sub(rec.at) < s.timing.ActionCooldown {
		return false
	}

	s.processing[g.ID] = true
	s.lastAction[current.ID] = actionRecord{gameID: g.ID, round: g.RoundNumber, at: now}
	return true
}

// runBotTurn waits out the thinking delay, re-validates that it is still the
// same player's turn, then decides and executes one action.
func (s *Scheduler) runBotTurn(gameID, playerID string, level game.BotLevel, delay time.Duration) {
	defer func() {
		s.mu.Lock()
		delete(s.processing, gameID)
		s.mu.Unlock()
	}()

	done := make(chan struct{})
	timer := s.clock.AfterFunc(delay, func() { close(done) })
	defer timer.Stop()
	<-done

	var action bot.Action
	acted := false
	err := s.store.With(gameID, func(g *game.Game) error {
		if g.State != game.InProgress || g.ShowAllDice {
			return nil
		}
		current := g.CurrentPlayer()
		if current == nil || current.ID != playerID {
			return nil
		}
		s.mu.Lock()
		policy := bot.ForLevel(level, s.rng)
		s.mu.Unlock()
		if policy == nil {
			return nil
		}
		s.mu.Lock()
		action = policy.Decide(bot.ViewFor(g, current))
		s.mu.Unlock()
		acted = true
		return nil
	})
	if err != nil || !acted {
		return
	}

	switch action.Kind {
	case game.Raise:
		_, err = s.service.PlaceBid(gameID, playerID, action.Quantity, action.FaceValue)
	case game.Doubt:
		_, err = s.service.Doubt(gameID, playerID)
	case game.SpotOn:
		_, err = s.service.SpotOn(gameID, playerID)
	}
	if err != nil {
		s.logger.Warn("Bot action failed", "game", gameID, "player", playerID,
			"action", action.Kind, "error", err)
	}
}
