package game

// The original logic walked raw indexes with guarded linear scans in several
// places; this file is the one rotation abstraction everything goes through.

// NextActiveFrom returns the index of the first non-eliminated player at or
// after start, scanning forward cyclically. The scan is bounded by the player
// count; if every player is eliminated it returns start unchanged.
func (g *Game) NextActiveFrom(start int) int {
	n := len(g.Players)
	if n == 0 {
		return start
	}
	idx := ((start % n) + n) % n
	for attempts := 0; attempts < n; attempts++ {
		if !g.isEliminated(g.Players[idx].ID) {
			return idx
		}
		idx = (idx + 1) % n
	}
	return start
}

// NextActiveAfter returns the index of the first non-eliminated player
// strictly after start.
func (g *Game) NextActiveAfter(start int) int {
	n := len(g.Players)
	if n == 0 {
		return start
	}
	return g.NextActiveFrom(start + 1)
}

// lockTwoPlayerStart fixes who opens bidding once exactly two players remain
// in the round. Called after an elimination; a no-op unless the active count
// is exactly two and no lock is set yet. If the eliminated player held the
// dealer button, the next active player after them opens; otherwise the
// already-computed current player keeps the opening.
func (g *Game) lockTwoPlayerStart(eliminatedID string) {
	if g.TwoPlayerStartIndex != nil || len(g.ActivePlayers()) != 2 {
		return
	}
	start := g.CurrentPlayerIndex
	if idx := g.playerIndex(eliminatedID); idx == g.DealerIndex && idx != -1 {
		start = g.NextActiveAfter(idx)
	}
	g.TwoPlayerStartIndex = &start
}

// handOpenerIndex returns who opens the next hand of the current round: the
// locked two-player opener when set, otherwise the first active player at or
// after the dealer.
func (g *Game) handOpenerIndex() int {
	if g.TwoPlayerStartIndex != nil {
		return g.NextActiveFrom(*g.TwoPlayerStartIndex)
	}
	return g.NextActiveFrom(g.DealerIndex)
}

func (g *Game) playerIndex(playerID string) int {
	for i, p := range g.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}
