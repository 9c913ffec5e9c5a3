package bot

import (
	"math"
	rand "math/rand/v2"

	"perudo/internal/game"
)

// Naive bids almost at random. It opens small, doubts with a probability
// that grows with the bid quantity, and otherwise bumps either the face
// value or the quantity by one.
type Naive struct {
	rng *rand.Rand
}

// NewNaive creates a naive policy using the provided rng.
func NewNaive(rng *rand.Rand) *Naive {
	return &Naive{rng: rng}
}

func (n *Naive) Name() string { return "naive" }

// Decide implements Policy.
func (n *Naive) Decide(view View) Action {
	bid := view.CurrentBid
	if bid == nil {
		return n.openingBid()
	}

	players := view.ActivePlayers
	if players < 1 {
		players = 1
	}
	doubtProbability := (1.0 / float64(players)) * 0.3 * math.Pow(float64(bid.Quantity), 1.5)
	const spotOnProbability = 0.01

	r := n.rng.Float64()
	switch {
	case r < doubtProbability:
		return Action{Kind: game.Doubt}
	case r < doubtProbability+spotOnProbability:
		return Action{Kind: game.SpotOn}
	default:
		return n.raise(bid)
	}
}

func (n *Naive) openingBid() Action {
	quantity := 1
	if n.rng.Float64() < 0.5 {
		quantity = 2
	}
	return Action{
		Kind:      game.Raise,
		Quantity:  quantity,
		FaceValue: n.rng.IntN(6) + 1,
	}
}

func (n *Naive) raise(bid *game.Bid) Action {
	if n.rng.Float64() < 0.5 && bid.FaceValue < 6 {
		return Action{Kind: game.Raise, Quantity: bid.Quantity, FaceValue: bid.FaceValue + 1}
	}
	// Face value maxed out or the coin said quantity: bump the quantity.
	return Action{Kind: game.Raise, Quantity: bid.Quantity + 1, FaceValue: bid.FaceValue}
}
