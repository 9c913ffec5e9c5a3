// Package bot implements the decision policies that play for computer
// seats. Policies see only public game state plus their own hand; other
// players' concealed dice are never visible to them.
package bot

import (
	rand "math/rand/v2"
	"time"

	"perudo/internal/game"
)

// Action is a policy's chosen move. Quantity and FaceValue are set only for
// raises.
type Action struct {
	Kind      game.BidKind
	Quantity  int
	FaceValue int
}

// View is the redacted game state a policy decides from.
type View struct {
	CurrentBid    *game.Bid
	ActivePlayers int
	TotalPlayers  int
	RoundNumber   int
	Hand          []int
}

// ViewFor builds the policy view for one player: public state plus that
// player's own dice, nothing else.
func ViewFor(g *game.Game, p *game.Player) View {
	return View{
		CurrentBid:    g.CurrentBid,
		ActivePlayers: len(g.ActivePlayers()),
		TotalPlayers:  len(g.Players),
		RoundNumber:   g.RoundNumber,
		Hand:          append([]int(nil), p.Dice...),
	}
}

// Policy produces the next action for a bot seat.
type Policy interface {
	Name() string
	Decide(view View) Action
}

// ForLevel returns the policy playing for the given bot level, or nil for a
// human seat.
func ForLevel(level game.BotLevel, rng *rand.Rand) Policy {
	switch level {
	case game.BotNaive:
		return NewNaive(rng)
	case game.BotStatistical:
		return NewStatistical(rng)
	default:
		return nil
	}
}

// ThinkingDelay returns how long a bot pretends to think before acting.
// Opening a round takes noticeably longer than responding mid-hand, which
// keeps the pacing believable for human observers.
func ThinkingDelay(level game.BotLevel, opening bool, rng *rand.Rand) time.Duration {
	if level == game.BotStatistical {
		return 1500*time.Millisecond + time.Duration(rng.Int64N(2500))*time.Millisecond
	}
	if opening {
		return 5500*time.Millisecond + time.Duration(rng.Int64N(1000))*time.Millisecond
	}
	return 500*time.Millisecond + time.Duration(rng.Int64N(1000))*time.Millisecond
}

// handCounts tallies a hand per face; index 0 is unused.
func handCounts(hand []int) [7]int {
	var counts [7]int
	for _, d := range hand {
		if d >= 1 && d <= 6 {
			counts[d]++
		}
	}
	return counts
}

// bestFace returns the face the hand holds most of, and its count.
func bestFace(counts [7]int) (int, int) {
	face, count := 1, counts[1]
	for f := 2; f <= 6; f++ {
		if counts[f] > count {
			face, count = f, counts[f]
		}
	}
	return face, count
}
