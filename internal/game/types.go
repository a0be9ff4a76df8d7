// internal/game/types.go
//
// Core type definitions shared by the game engines.
// Defines:
//   - Tier / Feedback: per-position result of a compound guess.
//   - Mode: the chain game variants.
//   - Random: injectable randomness (seeded for daily puzzles and tests).
//   - CommonKana: the kana pool used for random start/end draws.

package game

import (
	"math/rand/v2"

	"github.com/webutan/lain/internal/radical"
)

// Tier is the evaluation result for one position of a compound guess.
// Possible values:
//   - "green":  same kanji, same position.
//   - "yellow": kanji appears in the answer at the other position.
//   - "orange": kanji shares at least one radical with some answer kanji.
//   - "gray":   no relation.
type Tier string

const (
	TierGreen  Tier = "green"
	TierYellow Tier = "yellow"
	TierOrange Tier = "orange"
	TierGray   Tier = "gray"
)

// Feedback is the result for a single guessed kanji.
type Feedback struct {
	Tier Tier `json:"tier"`
	// Shared maps an answer position to the radicals this kanji shares with it.
	// Only populated for TierOrange.
	Shared map[int]radical.Set `json:"shared,omitempty"`
}

// Mode selects the chain game variant.
type Mode string

const (
	ModeVsComputer  Mode = "vs_computer"
	ModeMultiplayer Mode = "multiplayer"
	ModeWordBasket  Mode = "word_basket"
)

// Scored reports whether players earn points in this mode.
func (m Mode) Scored() bool { return m == ModeMultiplayer || m == ModeWordBasket }

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeVsComputer, ModeMultiplayer, ModeWordBasket:
		return true
	}
	return false
}

// Random is the source of every random choice an engine makes.
type Random interface {
	IntN(n int) int
}

// NewRandom returns a deterministic PCG source. Equal seeds give equal sequences.
// The result is not safe for concurrent use.
func NewRandom(seed uint64) Random {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// CommonKana is the pool of start/end kana that plenty of nouns begin and end with.
var CommonKana = []rune("あいうえおかきくけこさしすせそたちつてとなにぬねのはひふへほまみむめもやゆよらりるれろわ")

// DefaultCandidateLimit bounds how many upstream candidates a random choice considers.
const DefaultCandidateLimit = 10

// rand64 seeds games that were not given a Random.
func rand64() uint64 { return rand.Uint64() }
