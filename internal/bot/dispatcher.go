// internal/bot/dispatcher.go
//
// Routes platform events to the game engines.
// Responsibilities:
//   - Own the game registries (chain, compound and kanji per channel, daily per user).
//   - Route each incoming message to at most one game.
//   - Withdraw a daily player's Japanese messages in the daily's channel. Their
//     romaji or English chat stays visible and is not treated as a guess.
//   - Rate-limit message handling per user.
//   - Discard engine results for games that were replaced or ended meanwhile.
//
// The dispatcher never holds a registry lock while an engine performs a lookup.

package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/webutan/lain/internal/daily"
	"github.com/webutan/lain/internal/flashcard"
	"github.com/webutan/lain/internal/game"
	"github.com/webutan/lain/internal/kana"
	"github.com/webutan/lain/internal/lookup"
	"github.com/webutan/lain/internal/results"
	"github.com/webutan/lain/internal/store"
)

// DailySource selects the daily answer.
type DailySource interface {
	Today(ctx context.Context) (string, lookup.Entry, error)
}

// DailyResults persists finished daily puzzles.
type DailyResults interface {
	AlreadyPlayed(ctx context.Context, userID, date string) (bool, error)
	InsertResult(ctx context.Context, r daily.Result) error
}

// CardQueue is the flashcard handoff queue.
type CardQueue interface {
	IssueToken(ctx context.Context, userID string) (string, error)
	Enqueue(ctx context.Context, userID, front, back string) (flashcard.Card, error)
}

// ResultLog records finished chain games.
type ResultLog interface {
	Record(ctx context.Context, s results.Summary) (results.Summary, error)
	Recent(ctx context.Context, channelID string, limit int) ([]results.Summary, error)
}

// Deps are the collaborators of a Dispatcher. Daily, DailyResults, Cards and
// Results may be nil; the commands that need them then report unavailability.
type Deps struct {
	Lookup       lookup.Service
	Radicals     game.RadicalSource
	Candidates   func() []rune // shuffled candidate kanji for random puzzles
	Daily        DailySource
	DailyResults DailyResults
	Cards        CardQueue
	Results      ResultLog

	Random func() game.Random // defaults to a fresh PCG per game
	Now    func() time.Time
}

// Config tunes game parameters.
type Config struct {
	MaxGuesses     int
	CandidateLimit int
	Kana           []rune // chain draw pool
	RatePerSec     float64
	RateBurst      int
}

// dailySession pairs a daily puzzle with its start time.
type dailySession struct {
	puzzle  *game.DailyPuzzle
	started time.Time
}

// Dispatcher routes events to games. It is safe for concurrent use.
type Dispatcher struct {
	p    Platform
	deps Deps
	cfg  Config

	chains    *store.Registry[*game.ChainGame]
	compounds *store.Registry[*game.CompoundPuzzle]
	kanji     *store.Registry[*game.KanjiPuzzle]
	dailies   *store.Registry[*dailySession]

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Dispatcher that talks to p.
func New(p Platform, deps Deps, cfg Config) *Dispatcher {
	if deps.Random == nil {
		deps.Random = func() game.Random { return game.NewRandom(uint64(time.Now().UnixNano())) }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Candidates == nil {
		deps.Candidates = func() []rune { return nil }
	}
	if cfg.MaxGuesses <= 0 {
		cfg.MaxGuesses = game.MaxGuesses
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = game.DefaultCandidateLimit
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	return &Dispatcher{
		p:         p,
		deps:      deps,
		cfg:       cfg,
		chains:    store.NewRegistry[*game.ChainGame](),
		compounds: store.NewRegistry[*game.CompoundPuzzle](),
		kanji:     store.NewRegistry[*game.KanjiPuzzle](),
		dailies:   store.NewRegistry[*dailySession](),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// ActiveGames reports how many games are running, by kind.
func (d *Dispatcher) ActiveGames() map[string]int {
	return map[string]int{
		"chain":    d.chains.Len(),
		"compound": d.compounds.Len(),
		"kanji":    d.kanji.Len(),
		"daily":    d.dailies.Len(),
	}
}

// HandleMessage routes a channel message to the game it belongs to, if any.
func (d *Dispatcher) HandleMessage(ctx context.Context, m Message) error {
	if m.IsBot {
		return nil
	}
	content := kana.FoldWidth(strings.TrimSpace(m.Content))
	if content == "" {
		return nil
	}

	// Daily guesses are withdrawn before anything else so they never linger.
	// Messages without Japanese text cannot be guesses and are left alone.
	if s, ok := d.dailies.Get(m.AuthorID); ok && s.puzzle.ChannelID == m.ChannelID && kana.ContainsJapanese(content) {
		if err := d.p.Delete(ctx, m.ChannelID, m.ID); err != nil {
			log.Warn().Err(err).Str("channel", m.ChannelID).Msg("delete daily guess")
		}
		if !d.allow(m.AuthorID) {
			return d.p.SendPrivate(ctx, m.AuthorID, "Slow down a little! / 少し待ってください")
		}
		return d.handleDaily(ctx, s, m.AuthorID, content)
	}

	if !kana.ContainsJapanese(content) {
		return nil
	}
	if !d.allow(m.AuthorID) {
		log.Debug().Str("user", m.AuthorID).Msg("rate limited")
		return nil
	}

	if len([]rune(content)) == 2 && kana.IsKanjiOnly(content) {
		if p, ok := d.compounds.Get(m.ChannelID); ok {
			return d.handleCompound(ctx, m, p, content)
		}
		if p, ok := d.kanji.Get(m.ChannelID); ok {
			return d.handleKanji(ctx, m, p, content)
		}
	}
	if g, ok := d.chains.Get(m.ChannelID); ok {
		return d.handleChain(ctx, m, g, content)
	}
	return nil
}

func (d *Dispatcher) allow(userID string) bool {
	d.limMu.Lock()
	lim, ok := d.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(d.cfg.RatePerSec), d.cfg.RateBurst)
		d.limiters[userID] = lim
	}
	d.limMu.Unlock()
	return lim.Allow()
}

// ---- chain games ----

func (d *Dispatcher) startChain(channelID string, mode game.Mode) (*game.ChainGame, error) {
	return d.chains.Start(channelID, func() (*game.ChainGame, error) {
		return game.NewChainGame(mode, d.deps.Lookup, game.ChainOptions{
			Random:         d.deps.Random(),
			Kana:           d.cfg.Kana,
			CandidateLimit: d.cfg.CandidateLimit,
			OnEnd:          func(g *game.ChainGame) { d.chains.Release(channelID, g) },
		}), nil
	})
}

func (d *Dispatcher) handleChain(ctx context.Context, m Message, g *game.ChainGame, word string) error {
	before := g.Snapshot()
	turn, err := g.Submit(ctx, m.AuthorID, word)
	if err != nil {
		re, ok := game.AsReject(err)
		if !ok {
			return err
		}
		switch re.Reason {
		case game.ReasonGameOver, game.ReasonNotJapanese:
			return nil
		}
		if re.Err != nil && lookup.IsUpstream(re.Err) {
			log.Warn().Err(re.Err).Str("word", word).Msg("lookup upstream failure")
		}
		if err := d.p.React(ctx, m.ChannelID, m.ID, rejectReaction(re.Reason)); err != nil {
			return err
		}
		if re.Reason == game.ReasonBusy {
			return nil
		}
		return d.p.Reply(ctx, m.ChannelID, m.ID, renderReject(re, before.StartKana, before.EndKana)+": **"+word+"**")
	}

	// A game ended and replaced while the lookup ran must not speak.
	if cur, ok := d.chains.Get(m.ChannelID); (!ok || cur != g) && !turn.Outcome.Terminal() {
		return nil
	}

	author := m.AuthorName
	if author == "" {
		author = m.AuthorID
	}
	switch turn.Outcome {
	case game.OutcomeTerminalKana:
		if err := d.p.React(ctx, m.ChannelID, m.ID, ReactDead); err != nil {
			return err
		}
		d.recordChain(ctx, m.ChannelID, g.Snapshot(), string(turn.Outcome))
		return d.p.Reply(ctx, m.ChannelID, m.ID, renderTerminal(g.Mode(), turn, author))
	case game.OutcomeHumanWins:
		if err := d.p.React(ctx, m.ChannelID, m.ID, ReactAccepted); err != nil {
			return err
		}
		d.recordChain(ctx, m.ChannelID, g.Snapshot(), string(turn.Outcome))
		if err := d.p.Reply(ctx, m.ChannelID, m.ID, renderAccepted(g.Mode(), turn, author)); err != nil {
			return err
		}
		_, err := d.p.Send(ctx, m.ChannelID, renderHumanWins(turn))
		return err
	}

	if err := d.p.React(ctx, m.ChannelID, m.ID, ReactAccepted); err != nil {
		return err
	}
	if err := d.p.Reply(ctx, m.ChannelID, m.ID, renderAccepted(g.Mode(), turn, author)); err != nil {
		return err
	}
	if turn.Computer != nil {
		_, err := d.p.Send(ctx, m.ChannelID, renderComputerMove(turn))
		return err
	}
	return nil
}

func (d *Dispatcher) recordChain(ctx context.Context, channelID string, st game.ChainState, reason string) {
	if d.deps.Results == nil {
		return
	}
	_, err := d.deps.Results.Record(ctx, results.Summary{
		ChannelID:   channelID,
		Mode:        string(st.Mode),
		Reason:      reason,
		ChainLength: st.ChainLength,
		LastWord:    st.LastWord,
		Scores:      st.Scores,
		EndedAt:     d.deps.Now(),
	})
	if err != nil {
		log.Error().Err(err).Str("channel", channelID).Msg("record chain result")
	}
}
