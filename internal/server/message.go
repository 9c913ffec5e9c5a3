package server

import (
	"time"

	"perudo/internal/game"
)

// Event kinds pushed through the broadcast gateway.
const (
	EventGameCreated = "GAME_CREATED"
	EventGameUpdated = "GAME_UPDATED"
	EventGameStarted = "GAME_STARTED"
	EventGameEnded   = "GAME_ENDED"
)

// Message is the envelope every broadcast uses.
type Message struct {
	Type      string    `json:"type"`
	GameID    string    `json:"gameId"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PlayerView is a player as observers see them: dice stay concealed unless
// the game is in its reveal phase (or the view was built from the frozen
// reveal copy).
type PlayerView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Dice       []int  `json:"dice,omitempty"`
	DiceCount  int    `json:"diceCount"`
	Eliminated bool   `json:"eliminated"`
	WinTokens  int    `json:"winTokens"`
	Bot        string `json:"bot,omitempty"`
}

// BidView mirrors a hand-history entry.
type BidView struct {
	PlayerID  string `json:"playerId"`
	Quantity  int    `json:"quantity"`
	FaceValue int    `json:"faceValue"`
	Kind      string `json:"kind"`
}

// ResolutionView is the last doubt/spot-on metadata for UI replay.
type ResolutionView struct {
	ActualCount  int    `json:"actualCount"`
	BidQuantity  int    `json:"bidQuantity"`
	BidFaceValue int    `json:"bidFaceValue"`
	EliminatedID string `json:"eliminatedPlayerId,omitempty"`
	ActorID      string `json:"actorPlayerId"`
	Action       string `json:"action"`
}

// GameView is the snapshot returned from every operation and pushed to
// observers after every mutation.
type GameView struct {
	ID                  string          `json:"id"`
	State               string          `json:"state"`
	Players             []PlayerView    `json:"players"`
	CurrentPlayerID     string          `json:"currentPlayerId,omitempty"`
	DealerID            string          `json:"dealerId,omitempty"`
	CurrentBid          *BidView        `json:"currentBid,omitempty"`
	PreviousBid         *BidView        `json:"previousBid,omitempty"`
	EliminatedPlayerIDs []string        `json:"eliminatedPlayerIds"`
	RoundNumber         int             `json:"roundNumber"`
	RoundWinnerID       string          `json:"roundWinnerId,omitempty"`
	GameWinnerID        string          `json:"gameWinnerId,omitempty"`
	Multiplayer         bool            `json:"multiplayer"`
	MaxPlayers          int             `json:"maxPlayers"`
	WaitingForPlayers   bool            `json:"waitingForPlayers"`
	ShowAllDice         bool            `json:"showAllDice"`
	CanContinue         bool            `json:"canContinue"`
	RevealedPlayers     []PlayerView    `json:"revealedPlayers,omitempty"`
	LastResolution      *ResolutionView `json:"lastResolution,omitempty"`
	HandHistory         []BidView       `json:"handHistory"`
}

// GameSummary holds lightweight metadata for listings.
type GameSummary struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	Players     int    `json:"players"`
	MaxPlayers  int    `json:"maxPlayers"`
	Multiplayer bool   `json:"multiplayer"`
	RoundNumber int    `json:"roundNumber"`
}

// Snapshot builds the observer view of a game. Concealed dice are redacted
// unless the reveal flag is up; the frozen pre-reveal hands ride along so
// clients can replay a resolution after the engine rerolls.
func Snapshot(g *game.Game) GameView {
	view := GameView{
		ID:                  g.ID,
		State:               g.State.String(),
		Players:             playerViews(g.Players, g.ShowAllDice),
		EliminatedPlayerIDs: append([]string(nil), g.EliminatedIDs...),
		RoundNumber:         g.RoundNumber,
		RoundWinnerID:       g.RoundWinnerID,
		GameWinnerID:        g.GameWinnerID,
		Multiplayer:         g.Multiplayer,
		MaxPlayers:          g.MaxPlayers,
		WaitingForPlayers:   g.WaitingForPlayers,
		ShowAllDice:         g.ShowAllDice,
		CanContinue:         g.CanContinue,
		HandHistory:         bidViews(g.HandHistory),
	}
	if view.EliminatedPlayerIDs == nil {
		view.EliminatedPlayerIDs = []string{}
	}
	if current := g.CurrentPlayer(); current != nil {
		view.CurrentPlayerID = current.ID
	}
	if dealer := g.Dealer(); dealer != nil {
		view.DealerID = dealer.ID
	}
	if g.CurrentBid != nil {
		bid := bidView(*g.CurrentBid)
		view.CurrentBid = &bid
	}
	if g.PreviousBid != nil {
		bid := bidView(*g.PreviousBid)
		view.PreviousBid = &bid
	}
	if g.ShowAllDice && g.RevealedPlayers != nil {
		view.RevealedPlayers = playerViews(g.RevealedPlayers, true)
	}
	if g.LastResult != nil {
		view.LastResolution = &ResolutionView{
			ActualCount:  g.LastResult.ActualCount,
			BidQuantity:  g.LastResult.BidQuantity,
			BidFaceValue: g.LastResult.BidFaceValue,
			EliminatedID: g.LastResult.EliminatedID,
			ActorID:      g.LastResult.ActorID,
			Action:       g.LastResult.Action.String(),
		}
	}
	return view
}

// SnapshotFor builds the view for one player: the observer view plus that
// player's own concealed dice. During a reveal it is identical to Snapshot.
func SnapshotFor(g *game.Game, playerID string) GameView {
	view := Snapshot(g)
	if g.ShowAllDice || playerID == "" {
		return view
	}
	for i, p := range g.Players {
		if p.ID == playerID {
			view.Players[i].Dice = append([]int(nil), p.Dice...)
		}
	}
	return view
}

// Summarize builds the listing entry for a game.
func Summarize(g *game.Game) GameSummary {
	return GameSummary{
		ID:          g.ID,
		State:       g.State.String(),
		Players:     len(g.Players),
		MaxPlayers:  g.MaxPlayers,
		Multiplayer: g.Multiplayer,
		RoundNumber: g.RoundNumber,
	}
}

func playerViews(players []*game.Player, showDice bool) []PlayerView {
	views := make([]PlayerView, len(players))
	for i, p := range players {
		views[i] = PlayerView{
			ID:         p.ID,
			Name:       p.Name,
			Color:      p.Color,
			DiceCount:  len(p.Dice),
			Eliminated: p.Eliminated,
			WinTokens:  p.WinTokens,
		}
		if p.IsBot() {
			views[i].Bot = p.Bot.String()
		}
		if showDice {
			views[i].Dice = append([]int(nil), p.Dice...)
		}
	}
	return views
}

func bidViews(bids []game.Bid) []BidView {
	views := make([]BidView, len(bids))
	for i, b := range bids {
		views[i] = bidView(b)
	}
	return views
}

func bidView(b game.Bid) BidView {
	return BidView{
		PlayerID:  b.PlayerID,
		Quantity:  b.Quantity,
		FaceValue: b.FaceValue,
		Kind:      b.Kind.String(),
	}
}
