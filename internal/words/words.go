// internal/words/words.go
//
// Candidate kanji for compound puzzles.
//
// Responsibilities:
//   - Load the candidate list from a configured file or fall back to the
//     embedded default (assets/kanji.txt).
//   - Keep only kanji; duplicates and other characters are dropped.
//   - Supply RandomCandidates for shared puzzles and Candidates for the
//     deterministic daily selection.
//
// Initialization behavior (Init):
//   1. If path is set (WORDS_KANJI_FILE), load one kanji per line from it.
//   2. Otherwise use the embedded list.
//
// Initialization is run once (sync.Once).

package words

import (
	"errors"
	"math/rand/v2"
	"os"
	"sync"

	"github.com/webutan/lain/assets"
	"github.com/webutan/lain/internal/kana"
)

var (
	initOnce   sync.Once
	candidates []rune // first kanji of compound answers, in file order
	initialErr error
)

// Init loads the candidate list exactly once.
// Returns an error if the list ends up empty.
func Init(path string) error {
	initOnce.Do(func() {
		var list []rune
		if path != "" {
			f, err := os.Open(path)
			if err != nil {
				initialErr = err
				return
			}
			defer f.Close()
			list, initialErr = assets.ReadKanji(f)
		} else {
			list, initialErr = assets.KanjiList()
		}
		if initialErr != nil {
			return
		}
		for _, k := range list {
			if kana.Classify(k) == kana.Kanji {
				candidates = append(candidates, k)
			}
		}
		if len(candidates) == 0 {
			initialErr = errors.New("words: candidate kanji list is empty")
		}
	})
	return initialErr
}

// Candidates returns the candidate kanji in file order. The daily selection
// shuffles this list with its own seeded source, so the order must be stable.
func Candidates() []rune {
	out := make([]rune, len(candidates))
	copy(out, candidates)
	return out
}

// RandomCandidates returns the candidates in a fresh random order.
func RandomCandidates() []rune {
	out := Candidates()
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Stats returns the number of loaded candidates.
func Stats() int { return len(candidates) }
