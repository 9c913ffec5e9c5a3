// Package gameid generates the short lowercase identifiers players type in
// to join a game. Three letters keeps them easy to read out loud; collisions
// are the store's problem, not ours.
package gameid

import (
	"crypto/rand"
	"fmt"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Length is the number of letters in a game ID.
const Length = 3

// RandSource interface for dependency injection of randomness.
type RandSource interface {
	IntN(n int) int
}

// Generator handles game ID generation with configurable randomness.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator with an optional RandSource. A nil
// source falls back to crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new game ID using crypto/rand.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new game ID using the generator's RandSource.
func (g *Generator) Generate() string {
	buf := make([]byte, Length)
	if g.randSource != nil {
		for i := range buf {
			buf[i] = alphabet[g.randSource.IntN(len(alphabet))]
		}
		return string(buf)
	}
	if _, err := rand.Read(buf); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

// Validate checks that an ID is the right length and lowercase a-z.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("game ID must be exactly %d characters, got %d", Length, len(id))
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 'a' || id[i] > 'z' {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}
