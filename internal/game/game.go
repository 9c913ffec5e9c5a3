// Package game implements the state machine and resolution engine for a
// round-elimination dice bidding game (a Perudo variant). Players bid on how
// many dice of a face value are hidden across all hands; a wrong bid or a
// wrong challenge knocks the player out of the round, and round wins
// accumulate tokens toward the overall game win.
package game

import (
	rand "math/rand/v2"
)

// State represents the lifecycle state of a game.
type State int

const (
	WaitingForPlayers State = iota
	InProgress
	GameEnded
)

// String returns the string representation of a game state.
func (s State) String() string {
	switch s {
	case WaitingForPlayers:
		return "WAITING_FOR_PLAYERS"
	case InProgress:
		return "IN_PROGRESS"
	case GameEnded:
		return "GAME_ENDED"
	default:
		return "UNKNOWN"
	}
}

const (
	// WinTokenTarget is the token count that ends the game.
	WinTokenTarget = 7

	// DefaultMaxPlayers bounds multiplayer lobbies.
	DefaultMaxPlayers = 6

	// MinOfflinePlayers is the minimum for a pre-populated game.
	MinOfflinePlayers = 3

	// MinLobbyPlayers is the minimum to start a multiplayer lobby.
	MinLobbyPlayers = 2
)

// LastResolution is the metadata snapshot of the most recent doubt or
// spot-on, kept purely so clients can replay the reveal.
type LastResolution struct {
	ActualCount  int
	BidQuantity  int
	BidFaceValue int
	EliminatedID string
	ActorID      string
	Action       BidKind
}

// HandResult reports what a doubt or spot-on did.
type HandResult struct {
	EliminatedID  string
	ActualCount   int
	BidQuantity   int
	BidFaceValue  int
	RoundWinnerID string
	RoundEnded    bool
	GameEnded     bool
}

// Game is the aggregate for one table. It is not internally synchronized;
// the store serializes all operations against a single game.
type Game struct {
	ID      string
	Players []*Player
	State   State

	CurrentPlayerIndex int
	DealerIndex        int

	CurrentBid  *Bid
	PreviousBid *Bid

	EliminatedIDs []string
	RoundNumber   int
	RoundWinnerID string
	GameWinnerID  string

	Multiplayer       bool
	MaxPlayers        int
	WaitingForPlayers bool

	ShowAllDice bool
	CanContinue bool

	// RevealedPlayers freezes every hand the moment dice are revealed, so
	// clients can show them after the engine rerolls.
	RevealedPlayers []*Player
	LastResult      *LastResolution

	// TwoPlayerStartIndex locks in who opens bidding once exactly two
	// players remain in the round.
	TwoPlayerStartIndex *int

	HandHistory []Bid

	rng *rand.Rand
}

// New creates a game already populated with players: dice are dealt, the
// dealer is chosen at random and opens the bidding.
func New(id string, players []*Player, rng *rand.Rand) (*Game, error) {
	if len(players) < MinOfflinePlayers {
		return nil, invalidActionf("game requires at least %d players", MinOfflinePlayers)
	}
	g := newGame(id, rng)
	g.Players = players
	g.State = InProgress
	g.WaitingForPlayers = false
	for _, p := range g.Players {
		p.RollDice(g.rng)
	}
	g.DealerIndex = g.rng.IntN(len(players))
	g.CurrentPlayerIndex = g.DealerIndex
	return g, nil
}

// NewLobby creates an empty joinable multiplayer game.
func NewLobby(id string, maxPlayers int, rng *rand.Rand) *Game {
	g := newGame(id, rng)
	g.Multiplayer = true
	if maxPlayers > 0 {
		g.MaxPlayers = maxPlayers
	}
	return g
}

func newGame(id string, rng *rand.Rand) *Game {
	return &Game{
		ID:          id,
		State:       WaitingForPlayers,
		RoundNumber: 1,
		MaxPlayers:  DefaultMaxPlayers,

		WaitingForPlayers: true,
		rng:               rng,
	}
}

// NextColor returns the palette color for the next seat.
func (g *Game) NextColor() string {
	return Colors[len(g.Players)%len(Colors)]
}

// CanJoin reports whether the lobby accepts another player.
func (g *Game) CanJoin() bool {
	return g.Multiplayer && g.WaitingForPlayers && len(g.Players) < g.MaxPlayers
}

// Join appends a new player to a joinable lobby. Names must be unique within
// the game. Does not start the game.
func (g *Game) Join(name string, bot BotLevel) (*Player, error) {
	if !g.CanJoin() {
		return nil, invalidActionf("cannot join game %s", g.ID)
	}
	for _, p := range g.Players {
		if p.Name == name {
			return nil, invalidActionf("player with name %q already exists in this game", name)
		}
	}
	player := NewPlayer(name, g.NextColor(), bot)
	g.Players = append(g.Players, player)
	return player, nil
}

// RemovePlayer removes a player from a lobby that has not started yet.
func (g *Game) RemovePlayer(playerID string) error {
	if g.State != WaitingForPlayers {
		return invalidStatef("cannot remove player after game has started")
	}
	idx := g.playerIndex(playerID)
	if idx == -1 {
		return invalidActionf("player not found: %s", playerID)
	}
	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	return nil
}

// Start begins a multiplayer game: rolls every hand, randomizes the dealer
// and opens round one with the dealer to act.
func (g *Game) Start() error {
	if len(g.Players) < MinLobbyPlayers {
		return invalidStatef("not enough players to start game, minimum %d required", MinLobbyPlayers)
	}
	for _, p := range g.Players {
		p.Reset()
		p.RollDice(g.rng)
	}
	g.DealerIndex = g.rng.IntN(len(g.Players))
	g.CurrentPlayerIndex = g.DealerIndex
	g.State = InProgress
	g.WaitingForPlayers = false
	g.CurrentBid = nil
	g.PreviousBid = nil
	g.EliminatedIDs = nil
	g.RoundNumber = 1
	return nil
}

// CurrentPlayer returns the player whose turn it is, or nil.
func (g *Game) CurrentPlayer() *Player {
	if len(g.Players) == 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentPlayerIndex]
}

// Dealer returns the player holding the dealer button, or nil.
func (g *Game) Dealer() *Player {
	if len(g.Players) == 0 || g.DealerIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.DealerIndex]
}

// ActivePlayers returns the players not yet eliminated this round, in seat
// order.
func (g *Game) ActivePlayers() []*Player {
	active := make([]*Player, 0, len(g.Players))
	for _, p := range g.Players {
		if !g.isEliminated(p.ID) {
			active = append(active, p)
		}
	}
	return active
}

// PlayerByID returns the player with the given id, or nil.
func (g *Game) PlayerByID(playerID string) *Player {
	if idx := g.playerIndex(playerID); idx != -1 {
		return g.Players[idx]
	}
	return nil
}

// HasGameWinner reports whether any player has reached the token target.
func (g *Game) HasGameWinner() bool {
	for _, p := range g.Players {
		if p.WinTokens >= WinTokenTarget {
			return true
		}
	}
	return false
}

func (g *Game) isEliminated(playerID string) bool {
	for _, id := range g.EliminatedIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

func (g *Game) eliminate(playerID string) {
	if g.isEliminated(playerID) {
		return
	}
	g.EliminatedIDs = append(g.EliminatedIDs, playerID)
	if p := g.PlayerByID(playerID); p != nil {
		p.Eliminated = true
	}
}

// PlaceBid applies a raise by the current player and advances the turn to
// the next active player.
func (g *Game) PlaceBid(playerID string, quantity, faceValue int) error {
	if g.State != InProgress {
		return invalidStatef("game is not in progress, current state: %s", g.State)
	}
	current := g.CurrentPlayer()
	if current == nil {
		return invalidStatef("no current player found")
	}
	if current.ID != playerID {
		return invalidActionf("not this player's turn, current player: %s", current.ID)
	}
	if g.isEliminated(playerID) {
		return invalidActionf("player is eliminated")
	}

	newBid := Bid{PlayerID: playerID, Quantity: quantity, FaceValue: faceValue, Kind: Raise}
	if !IsBidValid(newBid, g.CurrentBid) {
		return invalidActionf("invalid bid %s over %s: must increase quantity or face value", newBid, g.CurrentBid)
	}

	g.PreviousBid = g.CurrentBid
	g.CurrentBid = &newBid
	g.HandHistory = append(g.HandHistory, newBid)
	g.CurrentPlayerIndex = g.NextActiveAfter(g.CurrentPlayerIndex)
	return nil
}

// ResolveDoubt resolves a challenge that the current bid's quantity is not
// met. If the actual count meets the bid the doubter is eliminated,
// otherwise the bidder is. Dice are revealed and the turn resumes from the
// dealer.
func (g *Game) ResolveDoubt(playerID string) (*HandResult, error) {
	bid := g.CurrentBid
	if bid == nil {
		return nil, invalidStatef("no current bid to doubt")
	}

	actual := CountFace(g.ActivePlayers(), bid.FaceValue)
	eliminatedID := playerID
	if actual < bid.Quantity {
		eliminatedID = bid.PlayerID
	}

	g.beginReveal(playerID, Doubt, actual, bid, eliminatedID)
	return g.resolveElimination(eliminatedID, actual, bid), nil
}

// ResolveSpotOn resolves a claim that the current bid's quantity is met
// exactly. A correct caller wins a token with no elimination; a wrong caller
// is eliminated like a failed doubter.
func (g *Game) ResolveSpotOn(playerID string) (*HandResult, error) {
	bid := g.CurrentBid
	if bid == nil {
		return nil, invalidStatef("no current bid to call spot on")
	}

	actual := CountFace(g.ActivePlayers(), bid.FaceValue)

	if actual == bid.Quantity {
		g.beginReveal(playerID, SpotOn, actual, bid, "")
		g.CurrentBid = nil
		g.CurrentPlayerIndex = g.handOpenerIndex()

		result := &HandResult{
			ActualCount:  actual,
			BidQuantity:  bid.Quantity,
			BidFaceValue: bid.FaceValue,
		}
		if p := g.PlayerByID(playerID); p != nil {
			p.WinTokens++
			if p.WinTokens >= WinTokenTarget {
				g.GameWinnerID = p.ID
				g.State = GameEnded
				result.GameEnded = true
			}
		}
		return result, nil
	}

	g.beginReveal(playerID, SpotOn, actual, bid, playerID)
	return g.resolveElimination(playerID, actual, bid), nil
}

// beginReveal freezes hands and records resolution metadata, then flips the
// reveal flag. Shared prologue for doubt and both spot-on outcomes.
func (g *Game) beginReveal(actorID string, kind BidKind, actual int, bid *Bid, eliminatedID string) {
	revealed := make([]*Player, len(g.Players))
	for i, p := range g.Players {
		revealed[i] = p.Clone()
	}
	g.RevealedPlayers = revealed

	g.LastResult = &LastResolution{
		ActualCount:  actual,
		BidQuantity:  bid.Quantity,
		BidFaceValue: bid.FaceValue,
		EliminatedID: eliminatedID,
		ActorID:      actorID,
		Action:       kind,
	}
	g.HandHistory = append(g.HandHistory, Bid{PlayerID: actorID, Kind: kind})
	g.ShowAllDice = true
	g.CanContinue = false
}

// resolveElimination applies the shared epilogue of a lost doubt or spot-on:
// eliminate the loser, resume the turn from the dealer, lock the two-player
// opening if the round just shrank to two, and detect a round win.
func (g *Game) resolveElimination(eliminatedID string, actual int, bid *Bid) *HandResult {
	g.eliminate(eliminatedID)
	g.CurrentBid = nil
	g.CurrentPlayerIndex = g.NextActiveFrom(g.DealerIndex)
	g.lockTwoPlayerStart(eliminatedID)

	result := &HandResult{
		EliminatedID: eliminatedID,
		ActualCount:  actual,
		BidQuantity:  bid.Quantity,
		BidFaceValue: bid.FaceValue,
	}

	active := g.ActivePlayers()
	if len(active) <= 1 {
		result.RoundEnded = true
		if len(active) == 1 {
			winner := active[0]
			g.RoundWinnerID = winner.ID
			result.RoundWinnerID = winner.ID
			result.GameEnded = g.awardRoundWin(winner.ID)
		}
	}
	return result
}

// awardRoundWin gives the round winner a token and the dealer button, and
// reports whether that ended the game.
func (g *Game) awardRoundWin(winnerID string) bool {
	winner := g.PlayerByID(winnerID)
	if winner == nil {
		return false
	}
	winner.WinTokens++
	if idx := g.playerIndex(winnerID); idx != -1 {
		g.DealerIndex = idx
	}
	if winner.WinTokens >= WinTokenTarget {
		g.GameWinnerID = winnerID
		g.State = GameEnded
		return true
	}
	return false
}

// StartNewRound resets round state keeping win tokens: everyone back in,
// fresh dice, bidding opens with the dealer. A no-op once the game has a
// winner.
func (g *Game) StartNewRound() {
	if g.HasGameWinner() {
		return
	}
	for _, p := range g.Players {
		p.Reset()
		p.RollDice(g.rng)
	}
	g.EliminatedIDs = nil
	if g.DealerIndex < len(g.Players) {
		g.CurrentPlayerIndex = g.DealerIndex
	}
	g.CurrentBid = nil
	g.PreviousBid = nil
	g.RoundWinnerID = ""
	g.State = InProgress
	g.RoundNumber++
	g.TwoPlayerStartIndex = nil
	g.HandHistory = nil
	g.ShowAllDice = false
	g.CanContinue = false
}

// ContinueHand ends the reveal: rerolls every still-active hand, hides dice
// and starts a fresh hand history. Only effective while dice are revealed
// and the continue window is open; returns whether anything happened.
func (g *Game) ContinueHand() bool {
	if !g.ShowAllDice || !g.CanContinue {
		return false
	}
	g.HandHistory = nil
	for _, p := range g.ActivePlayers() {
		p.RollDice(g.rng)
	}
	g.ShowAllDice = false
	g.CanContinue = false
	return true
}
