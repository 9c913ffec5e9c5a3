package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perudo/internal/randutil"
)

// newTestGame builds a 3-player game with fixed dice so that face 4 appears
// exactly 5 times across all hands.
func newTestGame(t *testing.T) *Game {
	t.Helper()
	players := []*Player{
		NewPlayer("alice", "blue", BotNone),
		NewPlayer("bob", "red", BotNone),
		NewPlayer("carol", "green", BotNone),
	}
	g, err := New("abc", players, randutil.New(1))
	require.NoError(t, err)

	g.Players[0].Dice = []int{4, 4, 1, 2, 3}
	g.Players[1].Dice = []int{4, 5, 5, 6, 2}
	g.Players[2].Dice = []int{4, 4, 3, 3, 6}

	// Pin the rotation so tests do not depend on the random dealer.
	g.DealerIndex = 0
	g.CurrentPlayerIndex = 0
	return g
}

func TestNewRequiresThreePlayers(t *testing.T) {
	players := []*Player{
		NewPlayer("alice", "blue", BotNone),
		NewPlayer("bob", "red", BotNone),
	}
	_, err := New("abc", players, randutil.New(1))
	var actionErr *InvalidActionError
	require.ErrorAs(t, err, &actionErr)
}

func TestNewDealsDiceAndDealerOpens(t *testing.T) {
	players := []*Player{
		NewPlayer("alice", "blue", BotNone),
		NewPlayer("bob", "red", BotNone),
		NewPlayer("carol", "green", BotNone),
	}
	g, err := New("abc", players, randutil.New(7))
	require.NoError(t, err)

	assert.Equal(t, InProgress, g.State)
	assert.Equal(t, g.DealerIndex, g.CurrentPlayerIndex)
	for _, p := range g.Players {
		require.Len(t, p.Dice, DicePerPlayer)
		for _, d := range p.Dice {
			assert.GreaterOrEqual(t, d, 1)
			assert.LessOrEqual(t, d, 6)
		}
	}
}

func TestPlaceBidAdvancesTurn(t *testing.T) {
	g := newTestGame(t)

	err := g.PlaceBid(g.Players[0].ID, 2, 4)
	require.NoError(t, err)

	assert.Equal(t, 1, g.CurrentPlayerIndex)
	require.NotNil(t, g.CurrentBid)
	assert.Equal(t, 2, g.CurrentBid.Quantity)
	assert.Equal(t, 4, g.CurrentBid.FaceValue)
	assert.Nil(t, g.PreviousBid)
	assert.Len(t, g.HandHistory, 1)
}

func TestPlaceBidRejectsOutOfTurn(t *testing.T) {
	g := newTestGame(t)

	err := g.PlaceBid(g.Players[1].ID, 2, 4)
	var actionErr *InvalidActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Nil(t, g.CurrentBid, "failed bid must not mutate state")
}

func TestPlaceBidRejectsInvalidRaise(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 3, 2))

	err := g.PlaceBid(g.Players[1].ID, 2, 6)
	var actionErr *InvalidActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, 3, g.CurrentBid.Quantity, "current bid unchanged after invalid raise")
}

func TestPlaceBidTracksPreviousBid(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 2, 4))
	require.NoError(t, g.PlaceBid(g.Players[1].ID, 3, 4))

	require.NotNil(t, g.PreviousBid)
	assert.Equal(t, 2, g.PreviousBid.Quantity)
	assert.Equal(t, 3, g.CurrentBid.Quantity)
}

func TestPlaceBidSkipsEliminated(t *testing.T) {
	g := newTestGame(t)
	g.eliminate(g.Players[1].ID)

	require.NoError(t, g.PlaceBid(g.Players[0].ID, 2, 4))
	assert.Equal(t, 2, g.CurrentPlayerIndex, "eliminated player skipped")
}

func TestDoubtWithNoBid(t *testing.T) {
	g := newTestGame(t)
	_, err := g.ResolveDoubt(g.Players[1].ID)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

// Scenario A: bid (5 fours) with exactly 5 fours in play; the doubter loses.
func TestDoubtEliminatesDoubterWhenBidHolds(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 5, 4))

	result, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	assert.Equal(t, g.Players[1].ID, result.EliminatedID)
	assert.Equal(t, 5, result.ActualCount)
	assert.True(t, g.Players[1].Eliminated)
	assert.Nil(t, g.CurrentBid)
	assert.True(t, g.ShowAllDice)
	assert.False(t, g.CanContinue)
}

// Scenario B: bid (6 fours) with only 5 fours in play; the bidder loses.
func TestDoubtEliminatesBidderWhenBidOverstated(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 6, 4))

	result, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	assert.Equal(t, g.Players[0].ID, result.EliminatedID)
	assert.Equal(t, 5, result.ActualCount)
	assert.True(t, g.Players[0].Eliminated)
}

// Scenario C: spot-on with the count exactly met; caller gains a token,
// nobody is eliminated, the bid clears.
func TestSpotOnCorrect(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 5, 4))

	result, err := g.ResolveSpotOn(g.Players[1].ID)
	require.NoError(t, err)

	assert.Empty(t, result.EliminatedID)
	assert.Equal(t, 5, result.ActualCount)
	assert.Equal(t, 1, g.Players[1].WinTokens)
	assert.Empty(t, g.EliminatedIDs)
	assert.Nil(t, g.CurrentBid)
	assert.True(t, g.ShowAllDice)
	assert.Equal(t, g.DealerIndex, g.CurrentPlayerIndex)
}

func TestSpotOnWrongEliminatesCaller(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 4, 4))

	result, err := g.ResolveSpotOn(g.Players[1].ID)
	require.NoError(t, err)

	assert.Equal(t, g.Players[1].ID, result.EliminatedID)
	assert.True(t, g.Players[1].Eliminated)
	assert.Zero(t, g.Players[1].WinTokens)
}

func TestEliminationPartitionsPlayers(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 5, 4))
	_, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	assert.Equal(t, len(g.Players), len(g.EliminatedIDs)+len(g.ActivePlayers()))
}

func TestResolutionFreezesRevealedDice(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 5, 4))
	_, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	require.Len(t, g.RevealedPlayers, 3)
	assert.Equal(t, []int{4, 4, 1, 2, 3}, g.RevealedPlayers[0].Dice)

	// The frozen copy must survive rerolls.
	g.CanContinue = true
	require.True(t, g.ContinueHand())
	assert.Equal(t, []int{4, 4, 1, 2, 3}, g.RevealedPlayers[0].Dice)
}

func TestTurnResumesFromDealerSkippingEliminated(t *testing.T) {
	g := newTestGame(t)
	// Dealer (index 0) loses the hand; turn should resume at index 1.
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 6, 4))
	_, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	assert.Equal(t, 1, g.CurrentPlayerIndex)
	assert.False(t, g.CurrentPlayer().Eliminated)
}

func TestTwoPlayerStartLockedOnElimination(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 5, 4))
	_, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	require.NotNil(t, g.TwoPlayerStartIndex)
	assert.Equal(t, g.CurrentPlayerIndex, *g.TwoPlayerStartIndex)
}

func TestTwoPlayerStartAfterEliminatedDealer(t *testing.T) {
	g := newTestGame(t)
	// Dealer overbids and is eliminated; the lock favors the next active
	// player after the dealer.
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 6, 4))
	_, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	require.NotNil(t, g.TwoPlayerStartIndex)
	assert.Equal(t, 1, *g.TwoPlayerStartIndex)
}

func TestRoundWinnerGetsTokenAndButton(t *testing.T) {
	g := newTestGame(t)
	g.eliminate(g.Players[2].ID)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 5, 4))

	// Only alice and bob remain; carol's dice still count? No: eliminated
	// players' dice are out of play, fours drop to 3 and the bid fails.
	result, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	assert.Equal(t, g.Players[0].ID, result.EliminatedID)
	assert.True(t, result.RoundEnded)
	assert.Equal(t, g.Players[1].ID, result.RoundWinnerID)
	assert.Equal(t, 1, g.Players[1].WinTokens)
	assert.Equal(t, 1, g.DealerIndex, "button passes to the round winner")
	assert.False(t, result.GameEnded)
}

func TestGameEndsAtTokenTarget(t *testing.T) {
	g := newTestGame(t)
	g.Players[1].WinTokens = WinTokenTarget - 1
	g.eliminate(g.Players[2].ID)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 6, 4))

	result, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	assert.True(t, result.GameEnded)
	assert.Equal(t, GameEnded, g.State)
	assert.Equal(t, g.Players[1].ID, g.GameWinnerID)
	assert.Equal(t, WinTokenTarget, g.Players[1].WinTokens)
}

func TestTokensNeverDecrease(t *testing.T) {
	g := newTestGame(t)
	before := make(map[string]int)
	for _, p := range g.Players {
		before[p.ID] = p.WinTokens
	}

	require.NoError(t, g.PlaceBid(g.Players[0].ID, 5, 4))
	_, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)
	g.StartNewRound()

	for _, p := range g.Players {
		assert.GreaterOrEqual(t, p.WinTokens, before[p.ID])
	}
}

func TestStartNewRoundResets(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.PlaceBid(g.Players[0].ID, 5, 4))
	_, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	round := g.RoundNumber
	g.StartNewRound()

	assert.Equal(t, round+1, g.RoundNumber)
	assert.Empty(t, g.EliminatedIDs)
	assert.Nil(t, g.CurrentBid)
	assert.Nil(t, g.PreviousBid)
	assert.Nil(t, g.TwoPlayerStartIndex)
	assert.Empty(t, g.HandHistory)
	assert.False(t, g.ShowAllDice)
	assert.False(t, g.CanContinue)
	assert.Equal(t, g.DealerIndex, g.CurrentPlayerIndex)
	for _, p := range g.Players {
		assert.False(t, p.Eliminated)
		assert.Len(t, p.Dice, DicePerPlayer)
	}
}

func TestStartNewRoundNoOpAfterGameEnd(t *testing.T) {
	g := newTestGame(t)
	g.Players[0].WinTokens = WinTokenTarget
	g.State = GameEnded

	round := g.RoundNumber
	g.StartNewRound()
	assert.Equal(t, round, g.RoundNumber)
	assert.Equal(t, GameEnded, g.State)
}

func TestContinueHandGuards(t *testing.T) {
	g := newTestGame(t)
	assert.False(t, g.ContinueHand(), "no-op before any reveal")

	require.NoError(t, g.PlaceBid(g.Players[0].ID, 5, 4))
	_, err := g.ResolveDoubt(g.Players[1].ID)
	require.NoError(t, err)

	assert.False(t, g.ContinueHand(), "no-op before the continue window opens")

	g.CanContinue = true
	require.True(t, g.ContinueHand())
	assert.False(t, g.ShowAllDice)
	assert.False(t, g.CanContinue)
	assert.Empty(t, g.HandHistory)
	assert.False(t, g.ContinueHand(), "repeat continue is a no-op")
}

func TestLobbyJoinAndStart(t *testing.T) {
	g := NewLobby("xyz", 0, randutil.New(3))
	require.Equal(t, WaitingForPlayers, g.State)
	assert.True(t, g.CanJoin())

	_, err := g.Join("alice", BotNone)
	require.NoError(t, err)
	_, err = g.Join("bot-bob", BotStatistical)
	require.NoError(t, err)

	_, err = g.Join("alice", BotNone)
	var actionErr *InvalidActionError
	require.ErrorAs(t, err, &actionErr, "duplicate name rejected")

	require.NoError(t, g.Start())
	assert.Equal(t, InProgress, g.State)
	assert.Equal(t, 1, g.RoundNumber)
	assert.Equal(t, g.DealerIndex, g.CurrentPlayerIndex)
	assert.False(t, g.CanJoin(), "started game is not joinable")
}

func TestLobbyFull(t *testing.T) {
	g := NewLobby("xyz", 2, randutil.New(3))
	_, err := g.Join("a", BotNone)
	require.NoError(t, err)
	_, err = g.Join("b", BotNone)
	require.NoError(t, err)

	_, err = g.Join("c", BotNone)
	var actionErr *InvalidActionError
	require.ErrorAs(t, err, &actionErr)
}

func TestLobbyStartNeedsTwoPlayers(t *testing.T) {
	g := NewLobby("xyz", 0, randutil.New(3))
	_, err := g.Join("a", BotNone)
	require.NoError(t, err)

	err = g.Start()
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestRemovePlayerOnlyBeforeStart(t *testing.T) {
	g := NewLobby("xyz", 0, randutil.New(3))
	p, err := g.Join("a", BotNone)
	require.NoError(t, err)
	_, err = g.Join("b", BotNone)
	require.NoError(t, err)

	require.NoError(t, g.RemovePlayer(p.ID))
	assert.Len(t, g.Players, 1)

	_, err = g.Join("c", BotNone)
	require.NoError(t, err)
	require.NoError(t, g.Start())

	err = g.RemovePlayer(g.Players[0].ID)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestColorsAssignedRoundRobin(t *testing.T) {
	g := NewLobby("xyz", 0, randutil.New(3))
	for i := 0; i < 6; i++ {
		p, err := g.Join(string(rune('a'+i)), BotNone)
		require.NoError(t, err)
		assert.Equal(t, Colors[i%len(Colors)], p.Color)
	}
}
