// internal/game/engine.go
//
// Compound guessing engine: a two-kanji Wordle with a radical-sharing tier.
// Responsibilities:
//   - Create puzzles for a two-kanji answer, caching each position's radicals.
//   - Score guesses into Green / Yellow / Orange / Gray tiers (CheckGuess).
//   - Append guesses, track solved / exhausted and accumulate the radicals
//     revealed by Orange tiers (AddGuess).
//   - Validate raw input (two kanji, dictionary noun) before scoring (Guess).
//
// State transitions:
//   - All tiles Green → solved (won).
//   - Else when the guess budget is spent → lost.
//   - A terminal puzzle rejects further guesses without appending.

package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/webutan/lain/internal/kana"
	"github.com/webutan/lain/internal/lookup"
	"github.com/webutan/lain/internal/radical"
)

// MaxGuesses is the default guess budget for compound puzzles.
const MaxGuesses = 5

// State is a coarse puzzle state.
type State string

const (
	StatePlaying State = "playing"
	StateWon     State = "won"
	StateLost    State = "lost"
)

// RadicalSource resolves a kanji to its radical components.
type RadicalSource interface {
	RadicalsOf(k rune) radical.Set
}

// GuessRow is one scored guess.
type GuessRow struct {
	Word     string     `json:"word"`
	Feedback []Feedback `json:"feedback"`
}

// Tiers returns just the tier sequence of the row.
func (r GuessRow) Tiers() []Tier {
	out := make([]Tier, len(r.Feedback))
	for i, f := range r.Feedback {
		out[i] = f.Tier
	}
	return out
}

// GuessResult is returned by a successful Guess.
type GuessResult struct {
	Row       GuessRow
	State     State
	Remaining int
}

// PuzzleState is a copy of a compound puzzle for rendering.
type PuzzleState struct {
	Rows       []GuessRow
	State      State
	Remaining  int
	MaxGuesses int
	Discovered [2][]string // sorted radicals per answer position
}

// ---- shared puzzle bookkeeping ----

// puzzleCore holds what compound and kanji puzzles have in common.
type puzzleCore struct {
	ID     string
	answer [2]rune
	entry  lookup.Entry
	max    int

	mu      sync.Mutex
	n       int
	solved  bool
	closed  bool
	guessed map[string]struct{}
}

func (c *puzzleCore) init(answer lookup.Entry, maxGuesses int) error {
	rs := []rune(answer.Word)
	if len(rs) != 2 || !kana.IsKanjiOnly(answer.Word) {
		return fmt.Errorf("game: answer %q is not a two-kanji compound", answer.Word)
	}
	if maxGuesses <= 0 {
		maxGuesses = MaxGuesses
	}
	c.ID = randomID()
	c.answer = [2]rune{rs[0], rs[1]}
	c.entry = answer
	c.max = maxGuesses
	c.guessed = make(map[string]struct{})
	return nil
}

// Answer returns the answer with its reading and gloss.
func (c *puzzleCore) Answer() lookup.Entry { return c.entry }

// MaxGuesses returns the guess budget.
func (c *puzzleCore) MaxGuesses() int { return c.max }

// Close makes the puzzle terminal; pending guesses are rejected.
func (c *puzzleCore) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *puzzleCore) terminalLocked() bool {
	return c.solved || c.closed || c.n >= c.max
}

func (c *puzzleCore) stateLocked() State {
	switch {
	case c.solved:
		return StateWon
	case c.terminalLocked():
		return StateLost
	default:
		return StatePlaying
	}
}

// record appends guess bookkeeping. The caller holds mu and has checked terminal.
func (c *puzzleCore) recordLocked(guess string) {
	c.n++
	c.guessed[guess] = struct{}{}
	if guess == string(c.answer[:]) {
		c.solved = true
	}
}

// validateGuess checks shape only: two kanji.
func validateGuess(word string) (string, error) {
	word = strings.TrimSpace(word)
	if n := len([]rune(word)); n != 2 {
		return "", reject(ReasonBadLength, fmt.Sprintf("guess must be 2 characters, got %d", n), nil)
	}
	if !kana.IsKanjiOnly(word) {
		return "", reject(ReasonNotKanji, "guess must be two kanji", nil)
	}
	return word, nil
}

// precheck validates word and looks it up with the lock released.
func (c *puzzleCore) precheck(ctx context.Context, svc lookup.Service, word string) (string, error) {
	word, err := validateGuess(word)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	err = c.acceptingLocked(word)
	c.mu.Unlock()
	if err != nil {
		return "", err
	}
	if _, err := svc.Lookup(ctx, word, 0); err != nil {
		return "", reject(ReasonNotFound, "not found in dictionary", err)
	}
	return word, nil
}

func (c *puzzleCore) acceptingLocked(word string) error {
	if c.terminalLocked() {
		return reject(ReasonGameOver, "puzzle is over", nil)
	}
	if _, dup := c.guessed[word]; dup {
		return reject(ReasonAlreadyGuessed, "already guessed", nil)
	}
	return nil
}

// ---- CompoundPuzzle ----

// CompoundPuzzle is the tiered two-kanji puzzle.
type CompoundPuzzle struct {
	puzzleCore
	radicals       RadicalSource
	answerRadicals [2]radical.Set

	rows       []GuessRow
	discovered [2]radical.Set
}

// NewCompoundPuzzle builds a puzzle for answer. rs may be nil, in which case
// no guess can score Orange.
func NewCompoundPuzzle(answer lookup.Entry, rs RadicalSource, maxGuesses int) (*CompoundPuzzle, error) {
	if rs == nil {
		rs = (*radical.Index)(nil)
	}
	p := &CompoundPuzzle{
		radicals:   rs,
		discovered: [2]radical.Set{{}, {}},
	}
	if err := p.init(answer, maxGuesses); err != nil {
		return nil, err
	}
	for i, k := range p.answer {
		p.answerRadicals[i] = rs.RadicalsOf(k)
	}
	return p, nil
}

// CheckGuess scores a two-character guess against the answer. It reads only
// immutable puzzle data and never changes state.
func (p *CompoundPuzzle) CheckGuess(guess string) ([]Feedback, error) {
	g := []rune(guess)
	if len(g) != 2 {
		return nil, reject(ReasonBadLength, fmt.Sprintf("guess must be 2 characters, got %d", len(g)), nil)
	}
	out := make([]Feedback, 2)
	for i, k := range g {
		switch {
		case k == p.answer[i]:
			out[i] = Feedback{Tier: TierGreen}
		case k == p.answer[1-i]:
			out[i] = Feedback{Tier: TierYellow}
		default:
			out[i] = p.radicalFeedback(k)
		}
	}
	return out, nil
}

// radicalFeedback checks k's radicals against every answer position.
func (p *CompoundPuzzle) radicalFeedback(k rune) Feedback {
	mine := p.radicals.RadicalsOf(k)
	shared := make(map[int]radical.Set)
	for pos, ans := range p.answerRadicals {
		if common := mine.Intersect(ans); len(common) > 0 {
			shared[pos] = common
		}
	}
	if len(shared) == 0 {
		return Feedback{Tier: TierGray}
	}
	return Feedback{Tier: TierOrange, Shared: shared}
}

// AddGuess appends a scored guess. Calling it on a terminal puzzle is a
// contract violation and is rejected without appending.
func (p *CompoundPuzzle) AddGuess(guess string, fb []Feedback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addLocked(guess, fb)
}

func (p *CompoundPuzzle) addLocked(guess string, fb []Feedback) error {
	if p.terminalLocked() {
		return reject(ReasonGameOver, "puzzle is over", nil)
	}
	if len(fb) != 2 {
		return reject(ReasonBadLength, "feedback must have 2 entries", nil)
	}
	p.rows = append(p.rows, GuessRow{Word: guess, Feedback: fb})
	p.recordLocked(guess)
	for _, f := range fb {
		if f.Tier != TierOrange {
			continue
		}
		for pos, set := range f.Shared {
			if pos == 0 || pos == 1 {
				p.discovered[pos].Union(set)
			}
		}
	}
	return nil
}

// Guess validates word as a two-kanji dictionary noun, then scores and
// appends it atomically.
func (p *CompoundPuzzle) Guess(ctx context.Context, svc lookup.Service, word string) (GuessResult, error) {
	word, err := p.precheck(ctx, svc, word)
	if err != nil {
		return GuessResult{}, err
	}
	fb, err := p.CheckGuess(word)
	if err != nil {
		return GuessResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.acceptingLocked(word); err != nil {
		return GuessResult{}, err
	}
	if err := p.addLocked(word, fb); err != nil {
		return GuessResult{}, err
	}
	return GuessResult{
		Row:       p.rows[len(p.rows)-1],
		State:     p.stateLocked(),
		Remaining: p.max - p.n,
	}, nil
}

// Snapshot copies the puzzle state.
func (p *CompoundPuzzle) Snapshot() PuzzleState {
	p.mu.Lock()
	defer p.mu.Unlock()
	rows := make([]GuessRow, len(p.rows))
	copy(rows, p.rows)
	return PuzzleState{
		Rows:       rows,
		State:      p.stateLocked(),
		Remaining:  p.max - p.n,
		MaxGuesses: p.max,
		Discovered: [2][]string{p.discovered[0].Sorted(), p.discovered[1].Sorted()},
	}
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
