package bot

import (
	"math"
	rand "math/rand/v2"

	"perudo/internal/game"
)

// Statistical reasons about the hidden dice with a binomial approximation:
// its own hand is known, every other die shows the bid's face with
// probability 1/6. It doubts unlikely bids, very rarely calls spot-on on
// near-certain ones, and otherwise makes the smallest raise its hand
// supports.
type Statistical struct {
	rng *rand.Rand
}

// NewStatistical creates a statistical policy using the provided rng.
func NewStatistical(rng *rand.Rand) *Statistical {
	return &Statistical{rng: rng}
}

func (s *Statistical) Name() string { return "statistical" }

// bidAnalysis is the probability picture of the current bid from this bot's
// seat.
type bidAnalysis struct {
	inHand          int
	expectedCount   float64
	probabilityTrue float64
	confidence      float64
}

// Decide implements Policy.
func (s *Statistical) Decide(view View) Action {
	bid := view.CurrentBid
	if bid == nil {
		return s.openingBid(view)
	}

	analysis := s.analyze(bid, view)

	switch {
	case analysis.confidence < 0.20:
		return Action{Kind: game.Doubt}
	case analysis.confidence > 0.90 && s.rng.Float64() < 0.03:
		return Action{Kind: game.SpotOn}
	case analysis.confidence < 0.45:
		doubtChance := (0.45 - analysis.confidence) * 2.0
		if s.rng.Float64() < doubtChance {
			return Action{Kind: game.Doubt}
		}
	}

	if alt, ok := s.considerAlternative(bid, view, analysis); ok {
		return alt
	}
	return s.raise(bid, view, analysis)
}

// openingBid bids exactly what the hand holds of its best face, one more
// when the hand is very strong and the table is big enough to hide it.
func (s *Statistical) openingBid(view View) Action {
	counts := handCounts(view.Hand)
	face, count := bestFace(counts)

	quantity := count
	if count >= 4 && view.ActivePlayers >= 3 {
		quantity = count + 1
	}
	if quantity < 1 {
		quantity = 1
	}
	return Action{Kind: game.Raise, Quantity: quantity, FaceValue: face}
}

// analyze computes the expected count and a confidence score for the bid.
func (s *Statistical) analyze(bid *game.Bid, view View) bidAnalysis {
	counts := handCounts(view.Hand)
	a := bidAnalysis{inHand: counts[bid.FaceValue]}

	totalDice := view.ActivePlayers * game.DicePerPlayer
	otherDice := totalDice - len(view.Hand)
	needed := bid.Quantity - a.inHand

	if needed <= 0 {
		a.confidence = 0.95
		a.probabilityTrue = 0.95
		a.expectedCount = float64(a.inHand)
		return a
	}

	const p = 1.0 / 6.0
	expectedFromOthers := float64(otherDice) * p
	a.expectedCount = float64(a.inHand) + expectedFromOthers

	// Normal approximation of P(X >= needed), X ~ Binomial(otherDice, 1/6).
	stdDev := math.Sqrt(float64(otherDice) * p * (1 - p))
	if stdDev > 0 {
		z := (float64(needed) - expectedFromOthers) / stdDev
		a.probabilityTrue = clamp(0.5-z*0.15, 0.05, 0.95)
	} else {
		a.probabilityTrue = 0.05
	}

	deviation := math.Abs(float64(bid.Quantity) - a.expectedCount)
	confidence := 1.0 - deviation/(a.expectedCount+1)
	if bid.FaceValue >= 5 && a.inHand == 0 {
		confidence *= 0.8
	}
	if float64(bid.Quantity) > a.expectedCount*1.5 {
		confidence *= 0.7
	}
	a.confidence = clamp(confidence, 0.05, 0.95)
	return a
}

// considerAlternative looks for a face the hand actually supports instead
// of following a high-face bid it holds nothing of.
func (s *Statistical) considerAlternative(bid *game.Bid, view View, analysis bidAnalysis) (Action, bool) {
	counts := handCounts(view.Hand)
	face, count := bestFace(counts)

	totalDice := view.ActivePlayers * game.DicePerPlayer

	// High-value bid we hold none of, while sitting on three or more of
	// another face: switch if the numbers back it up.
	if bid.FaceValue >= 5 && analysis.inHand == 0 && count >= 3 {
		quantity := bid.Quantity + 1
		expected := float64(count) + float64(totalDice-len(view.Hand))/6.0
		if expected >= float64(quantity)-0.5 {
			return Action{Kind: game.Raise, Quantity: quantity, FaceValue: face}, true
		}
	}

	// Sixes are a dead end for raising the face; drop to a face we hold.
	if bid.FaceValue == 6 && face < 6 && count >= 2 {
		bump := 2
		if count >= 3 {
			bump = 1
		}
		return Action{Kind: game.Raise, Quantity: bid.Quantity + bump, FaceValue: face}, true
	}

	return Action{}, false
}

// raise picks the smallest legal raise the hand supports, or doubts when
// even that would be unreasonable.
func (s *Statistical) raise(bid *game.Bid, view View, analysis bidAnalysis) Action {
	counts := handCounts(view.Hand)
	myCount := counts[bid.FaceValue]
	altFace, altCount := bestFace(counts)

	// maxReasonable bounds any quantity we are willing to put our name on:
	// what we hold plus one and a half times what the table should supply.
	otherDice := view.ActivePlayers*game.DicePerPlayer - len(view.Hand)
	maxReasonable := float64(myCount) + 1.5*float64(otherDice)/6.0

	// Plenty of a higher face: same quantity, better face.
	if altFace > bid.FaceValue && altCount >= 3 {
		return Action{Kind: game.Raise, Quantity: bid.Quantity, FaceValue: altFace}
	}

	// Loaded on a lower face: raise the quantity by our surplus. The
	// surplus must be positive or the bid would not beat the current one.
	if altCount >= 4 && altFace < bid.FaceValue && altCount > myCount {
		quantity := bid.Quantity + (altCount - myCount)
		if float64(quantity) > float64(altCount)+1.5*float64(otherDice)/6.0 {
			return Action{Kind: game.Doubt}
		}
		return Action{Kind: game.Raise, Quantity: quantity, FaceValue: altFace}
	}

	// Minimal face raise if we hold enough of the next face.
	if bid.FaceValue < 6 {
		nextCount := counts[bid.FaceValue+1]
		if nextCount >= 2 || (nextCount >= 1 && analysis.confidence > 0.7) {
			return Action{Kind: game.Raise, Quantity: bid.Quantity, FaceValue: bid.FaceValue + 1}
		}
	}

	// Minimal quantity raise, unless even that is past reason: then doubt.
	if float64(bid.Quantity+1) > maxReasonable {
		return Action{Kind: game.Doubt}
	}
	return Action{Kind: game.Raise, Quantity: bid.Quantity + 1, FaceValue: bid.FaceValue}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
