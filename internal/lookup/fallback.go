package lookup

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Fallback asks Primary first and consults Secondary only when Primary fails
// with an *UpstreamError. Not-found answers from Primary are final.
type Fallback struct {
	Primary   Service
	Secondary Service
}

func (f Fallback) Lookup(ctx context.Context, word string, startKana rune) (Entry, error) {
	e, err := f.Primary.Lookup(ctx, word, startKana)
	if err == nil || !IsUpstream(err) || f.Secondary == nil || ctx.Err() != nil {
		return e, err
	}
	log.Warn().Err(err).Str("word", word).Msg("primary lookup failed, using fallback")
	return f.Secondary.Lookup(ctx, word, startKana)
}

func (f Fallback) Search(ctx context.Context, prefix string) ([]Entry, error) {
	out, err := f.Primary.Search(ctx, prefix)
	if err == nil || !IsUpstream(err) || f.Secondary == nil || ctx.Err() != nil {
		return out, err
	}
	log.Warn().Err(err).Str("prefix", prefix).Msg("primary search failed, using fallback")
	return f.Secondary.Search(ctx, prefix)
}
