package game

import (
	"context"
	"errors"

	"github.com/webutan/lain/internal/kana"
	"github.com/webutan/lain/internal/lookup"
)

// ErrNoCompound means no candidate kanji produced a two-kanji noun.
var ErrNoCompound = errors.New("game: no two-kanji compound found")

// PickCompound shuffles candidates with rng, then searches each in turn for
// two-kanji nouns starting with it. The first candidate with results wins and
// one of its first limit compounds is chosen with rng. With a seeded rng and a
// stable dictionary the choice is reproducible.
func PickCompound(ctx context.Context, svc lookup.Service, candidates []rune, rng Random, limit int) (lookup.Entry, error) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	order := make([]rune, len(candidates))
	copy(order, candidates)
	for i := len(order) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}

	for _, k := range order {
		entries, err := svc.Search(ctx, string(k))
		if err != nil {
			return lookup.Entry{}, err
		}
		var found []lookup.Entry
		seen := make(map[string]struct{})
		for _, e := range entries {
			rs := []rune(e.Word)
			if len(rs) != 2 || rs[0] != k || !kana.IsKanjiOnly(e.Word) {
				continue
			}
			if _, dup := seen[e.Word]; dup {
				continue
			}
			seen[e.Word] = struct{}{}
			found = append(found, e)
			if len(found) == limit {
				break
			}
		}
		if len(found) > 0 {
			return found[rng.IntN(len(found))], nil
		}
	}
	return lookup.Entry{}, ErrNoCompound
}
