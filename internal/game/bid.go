package game

import "fmt"

// BidKind tags an entry in the hand history.
type BidKind int

const (
	Raise BidKind = iota
	Doubt
	SpotOn
)

// String returns the string representation of a bid kind.
func (k BidKind) String() string {
	switch k {
	case Raise:
		return "raise"
	case Doubt:
		return "doubt"
	case SpotOn:
		return "spot_on"
	default:
		return "unknown"
	}
}

// Bid is one action in a hand: a raise carries a quantity and face value,
// doubt and spot-on entries carry zeros. Immutable once created.
type Bid struct {
	PlayerID  string
	Quantity  int
	FaceValue int
	Kind      BidKind
}

var faceNames = [...]string{"", "ones", "twos", "threes", "fours", "fives", "sixes"}

// String renders a bid the way players say it, e.g. "3 fours".
func (b Bid) String() string {
	if b.FaceValue >= 1 && b.FaceValue <= 6 {
		return fmt.Sprintf("%d %s", b.Quantity, faceNames[b.FaceValue])
	}
	return fmt.Sprintf("%d of %d", b.Quantity, b.FaceValue)
}
