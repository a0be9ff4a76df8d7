package game

import (
	"context"
	"fmt"

	"github.com/webutan/lain/internal/lookup"
	"github.com/webutan/lain/internal/radical"
)

// KanjiRow is one guess of a kanji puzzle: Green or Gray per position.
type KanjiRow struct {
	Word  string `json:"word"`
	Marks []Tier `json:"marks"`
}

// KanjiPuzzle is the simpler compound puzzle: exact-match feedback only, with
// the answer's radicals handed out as hints from the start.
type KanjiPuzzle struct {
	puzzleCore
	hints [2]radical.Set
	rows  []KanjiRow
}

// NewKanjiPuzzle builds a kanji puzzle for answer.
func NewKanjiPuzzle(answer lookup.Entry, rs RadicalSource, maxGuesses int) (*KanjiPuzzle, error) {
	if rs == nil {
		rs = (*radical.Index)(nil)
	}
	p := &KanjiPuzzle{}
	if err := p.init(answer, maxGuesses); err != nil {
		return nil, err
	}
	for i, k := range p.answer {
		p.hints[i] = rs.RadicalsOf(k)
	}
	return p, nil
}

// Hints returns the radicals of each answer position.
func (p *KanjiPuzzle) Hints() [2][]string {
	return [2][]string{p.hints[0].Sorted(), p.hints[1].Sorted()}
}

// CheckGuess marks each position Green on an exact match and Gray otherwise.
func (p *KanjiPuzzle) CheckGuess(guess string) ([]Tier, error) {
	g := []rune(guess)
	if len(g) != 2 {
		return nil, reject(ReasonBadLength, fmt.Sprintf("guess must be 2 characters, got %d", len(g)), nil)
	}
	out := make([]Tier, 2)
	for i, k := range g {
		if k == p.answer[i] {
			out[i] = TierGreen
		} else {
			out[i] = TierGray
		}
	}
	return out, nil
}

// AddGuess appends a marked guess; rejected without appending once terminal.
func (p *KanjiPuzzle) AddGuess(guess string, marks []Tier) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addLocked(guess, marks)
}

func (p *KanjiPuzzle) addLocked(guess string, marks []Tier) error {
	if p.terminalLocked() {
		return reject(ReasonGameOver, "puzzle is over", nil)
	}
	if len(marks) != 2 {
		return reject(ReasonBadLength, "marks must have 2 entries", nil)
	}
	p.rows = append(p.rows, KanjiRow{Word: guess, Marks: marks})
	p.recordLocked(guess)
	return nil
}

// Guess validates, marks and appends word atomically.
func (p *KanjiPuzzle) Guess(ctx context.Context, svc lookup.Service, word string) (KanjiRow, State, error) {
	word, err := p.precheck(ctx, svc, word)
	if err != nil {
		return KanjiRow{}, "", err
	}
	marks, err := p.CheckGuess(word)
	if err != nil {
		return KanjiRow{}, "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.acceptingLocked(word); err != nil {
		return KanjiRow{}, "", err
	}
	if err := p.addLocked(word, marks); err != nil {
		return KanjiRow{}, "", err
	}
	return p.rows[len(p.rows)-1], p.stateLocked(), nil
}

// Rows copies the guesses so far.
func (p *KanjiPuzzle) Rows() []KanjiRow {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]KanjiRow, len(p.rows))
	copy(out, p.rows)
	return out
}

// Remaining returns how many guesses are left.
func (p *KanjiPuzzle) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.max - p.n
}
