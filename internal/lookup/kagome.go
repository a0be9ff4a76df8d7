// internal/lookup/kagome.go
//
// Offline noun validation backed by the kagome morphological analyzer and the
// IPA dictionary. Used when the Jisho API is unreachable or disabled.
//   - A word is a noun if it tokenizes to exactly one known token whose first
//     POS field is 名詞.
//   - Readings come from the dictionary (katakana) and are folded to hiragana.
//   - Search is unsupported: the dictionary has no prefix index.

package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/webutan/lain/internal/kana"
)

const posNoun = "名詞"

// Kagome validates nouns against the bundled IPA dictionary.
type Kagome struct {
	t *tokenizer.Tokenizer
}

// NewKagome builds the tokenizer. Loading the dictionary takes a moment, so
// construct it once at startup.
func NewKagome() (*Kagome, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("kagome: %w", err)
	}
	return &Kagome{t: t}, nil
}

// Lookup accepts single-token nouns.
func (k *Kagome) Lookup(ctx context.Context, word string, startKana rune) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, &UpstreamError{Backend: "kagome", Err: err}
	}
	toks := k.t.Tokenize(word)
	if len(toks) != 1 || toks[0].Surface != word {
		return Entry{}, ErrNotFound
	}
	pos := toks[0].POS()
	if len(pos) == 0 || pos[0] != posNoun {
		return Entry{}, ErrNotFound
	}
	reading, ok := toks[0].Reading()
	if !ok || reading == "" || reading == "*" {
		return Entry{}, ErrNotFound
	}
	m := Matcher{Start: startKana}
	m.Offer(Entry{Word: word, Reading: kana.ToHiragana(reading)})
	return m.Result()
}

// ErrSearchUnsupported is wrapped in the *UpstreamError returned by Kagome.Search.
var ErrSearchUnsupported = errors.New("prefix search unsupported")

// Search always fails; callers treat it like an unreachable backend.
func (k *Kagome) Search(ctx context.Context, prefix string) ([]Entry, error) {
	return nil, &UpstreamError{Backend: "kagome", Err: ErrSearchUnsupported}
}
