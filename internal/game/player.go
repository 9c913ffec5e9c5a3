package game

import (
	rand "math/rand/v2"

	"github.com/google/uuid"
)

// DicePerPlayer is the number of concealed dice each player holds.
const DicePerPlayer = 5

// BotLevel identifies which policy plays for a player, if any.
type BotLevel int

const (
	BotNone BotLevel = iota
	BotNaive
	BotStatistical
)

// String returns the string representation of a bot level.
func (b BotLevel) String() string {
	switch b {
	case BotNone:
		return "none"
	case BotNaive:
		return "naive"
	case BotStatistical:
		return "statistical"
	default:
		return "unknown"
	}
}

// ParseBotLevel maps a tag to a BotLevel. Unknown tags mean a human player.
func ParseBotLevel(tag string) BotLevel {
	switch tag {
	case "naive":
		return BotNaive
	case "statistical":
		return BotStatistical
	default:
		return BotNone
	}
}

// Colors is the fixed palette assigned to players round-robin in seat order.
var Colors = []string{"blue", "red", "green", "yellow", "brown", "cyan"}

// Player is a seat at the table. Identity is immutable after creation; dice,
// elimination and win tokens are mutated only by the engine.
type Player struct {
	ID         string
	Name       string
	Color      string
	Dice       []int
	Eliminated bool
	WinTokens  int
	Bot        BotLevel
}

// NewPlayer creates a player with a fresh identity and no dice dealt.
func NewPlayer(name, color string, bot BotLevel) *Player {
	return &Player{
		ID:    uuid.NewString(),
		Name:  name,
		Color: color,
		Bot:   bot,
	}
}

// RollDice deals a fresh hand of concealed dice.
func (p *Player) RollDice(rng *rand.Rand) {
	dice := make([]int, DicePerPlayer)
	for i := range dice {
		dice[i] = rng.IntN(6) + 1
	}
	p.Dice = dice
}

// Reset clears round state (elimination, dice) but keeps win tokens.
func (p *Player) Reset() {
	p.Eliminated = false
	p.Dice = nil
}

// IsBot reports whether a policy plays this seat.
func (p *Player) IsBot() bool {
	return p.Bot != BotNone
}

// CountFace returns how many dice in the player's hand show the given face.
func (p *Player) CountFace(face int) int {
	n := 0
	for _, d := range p.Dice {
		if d == face {
			n++
		}
	}
	return n
}

// Clone returns a deep copy, used to freeze hands at reveal time.
func (p *Player) Clone() *Player {
	cp := *p
	cp.Dice = append([]int(nil), p.Dice...)
	return &cp
}
