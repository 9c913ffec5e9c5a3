package server

import (
	"errors"
	"sync"

	"perudo/internal/game"
)

// ErrGameNotFound is returned when a referenced game does not exist.
var ErrGameNotFound = errors.New("game not found")

// Store is the process-wide keyed collection of game aggregates. A Game is
// not internally synchronized, so the store owns a mutex per game and every
// read or write goes through it: all operations against one game are
// strictly serialized, while different games proceed concurrently.
type Store struct {
	mu    sync.RWMutex
	games map[string]*storeEntry
}

type storeEntry struct {
	mu   sync.Mutex
	game *game.Game
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{games: make(map[string]*storeEntry)}
}

// Put registers a game. An existing game with the same id is replaced.
func (s *Store) Put(g *game.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = &storeEntry{game: g}
}

// Remove deletes a game by id.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// Len returns the number of games.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// With runs fn against the game with the given id while holding that game's
// lock. Returns ErrGameNotFound if the id is unknown; otherwise fn's error.
func (s *Store) With(id string, fn func(*game.Game) error) error {
	s.mu.RLock()
	entry, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return ErrGameNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.game)
}

// ForEach runs fn for every game, each under its own lock. The snapshot of
// ids is taken up front, so games added or removed mid-iteration may be
// skipped; callers tolerate that (the scheduler scans again next tick).
func (s *Store) ForEach(fn func(*game.Game)) {
	s.mu.RLock()
	entries := make([]*storeEntry, 0, len(s.games))
	for _, entry := range s.games {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	for _, entry := range entries {
		entry.mu.Lock()
		fn(entry.game)
		entry.mu.Unlock()
	}
}
