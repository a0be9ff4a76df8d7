// internal/game/chain.go
//
// Word-chain (shiritori) engine.
// Responsibilities:
//   - Hold the state of one chain game: used words, required start/end kana,
//     chain length, last word and per-player scores.
//   - Validate a submission (Japanese text, dictionary noun with the right
//     start kana, end kana in word basket, unused) and apply it atomically.
//   - Play the computer's reply in vs-computer mode.
//   - Redraw start/end kana in word basket mode.
//
// Concurrency:
//   - All state is guarded by mu. Dictionary calls run with mu released and
//     every constraint is re-checked once the lock is taken again, so a slow
//     lookup never blocks Close and a rejected submission never mutates state.
//   - A game closed while a lookup is pending rejects the late result.

package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/webutan/lain/internal/kana"
	"github.com/webutan/lain/internal/lookup"
)

// Outcome is the result of an accepted or terminal submission.
type Outcome string

const (
	OutcomeContinue     Outcome = "continue"
	OutcomeTerminalKana Outcome = "game_over_terminal_kana"
	OutcomeHumanWins    Outcome = "human_wins"
)

// Terminal reports whether the game ended with this outcome.
func (o Outcome) Terminal() bool { return o != OutcomeContinue }

// ComputerPlayer is the player id recorded for computer moves.
const ComputerPlayer = "computer"

// Move is one word played in the chain.
type Move struct {
	Player  string `json:"player"`
	Word    string `json:"word"`
	Reading string `json:"reading"`
	Gloss   string `json:"gloss"`
}

// Turn describes the state change caused by a submission.
type Turn struct {
	Outcome     Outcome        `json:"outcome"`
	Move        Move           `json:"move"`
	Computer    *Move          `json:"computer,omitempty"` // vs-computer reply, if any
	ChainLength int            `json:"chainLength"`
	StartKana   rune           `json:"startKana"`         // next required start
	EndKana     rune           `json:"endKana,omitempty"` // next required end (word basket)
	Scores      map[string]int `json:"scores,omitempty"`
}

// MarshalJSON writes StartKana and EndKana as one-kana strings.
func (t Turn) MarshalJSON() ([]byte, error) {
	type plain Turn
	return json.Marshal(struct {
		plain
		StartKana string `json:"startKana"`
		EndKana   string `json:"endKana,omitempty"`
	}{plain(t), kanaString(t.StartKana), kanaString(t.EndKana)})
}

func kanaString(r rune) string {
	if r == 0 {
		return ""
	}
	return string(r)
}

// ChainState is a copy of a game's state for rendering and tests.
type ChainState struct {
	Mode        Mode
	StartKana   rune
	EndKana     rune
	ChainLength int
	LastWord    string
	LastReading string
	Used        []string // sorted
	Scores      map[string]int
	Over        bool
}

// ChainOptions configures a new game. Zero values pick defaults.
type ChainOptions struct {
	Random         Random
	Kana           []rune // draw pool, defaults to CommonKana
	StartKana      rune   // fixed first start kana; drawn when zero
	CandidateLimit int    // computer candidate window, defaults to DefaultCandidateLimit
	// OnEnd runs once, without the game lock held, when the engine ends the
	// game on its own (terminal kana or human win). It is not called by Close.
	OnEnd func(*ChainGame)
}

// ChainGame is a single chain game.
type ChainGame struct {
	mode  Mode
	svc   lookup.Service
	rng   Random
	pool  []rune
	limit int
	onEnd func(*ChainGame)

	mu          sync.Mutex
	used        map[string]struct{}
	start, end  rune
	chain       int
	lastWord    string
	lastReading string
	scores      map[string]int
	computing   bool // vs-computer reply in flight
	over        bool
}

// NewChainGame starts a game in mode backed by svc.
func NewChainGame(mode Mode, svc lookup.Service, opts ChainOptions) *ChainGame {
	g := &ChainGame{
		mode:   mode,
		svc:    svc,
		rng:    opts.Random,
		pool:   opts.Kana,
		limit:  opts.CandidateLimit,
		onEnd:  opts.OnEnd,
		used:   make(map[string]struct{}),
		scores: make(map[string]int),
	}
	if g.rng == nil {
		g.rng = NewRandom(rand64())
	}
	if len(g.pool) == 0 {
		g.pool = CommonKana
	}
	if g.limit <= 0 {
		g.limit = DefaultCandidateLimit
	}
	if opts.StartKana != 0 {
		g.start = kana.Normalize(opts.StartKana)
	} else {
		g.start = g.draw()
	}
	if mode == ModeWordBasket {
		g.end = g.draw(g.start)
	}
	return g
}

// Mode returns the game variant.
func (g *ChainGame) Mode() Mode { return g.mode }

// Snapshot copies the current state.
func (g *ChainGame) Snapshot() ChainState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *ChainGame) snapshotLocked() ChainState {
	used := make([]string, 0, len(g.used))
	for w := range g.used {
		used = append(used, w)
	}
	sort.Strings(used)
	return ChainState{
		Mode:        g.mode,
		StartKana:   g.start,
		EndKana:     g.end,
		ChainLength: g.chain,
		LastWord:    g.lastWord,
		LastReading: g.lastReading,
		Used:        used,
		Scores:      copyScores(g.scores),
		Over:        g.over,
	}
}

// Close ends the game on request. It returns the final state and false if
// the game had already ended.
func (g *ChainGame) Close() (ChainState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	wasOpen := !g.over
	g.over = true
	return g.snapshotLocked(), wasOpen
}

// Submit plays word for player. Rejections are returned as *RejectError and
// leave the game unchanged.
func (g *ChainGame) Submit(ctx context.Context, player, word string) (*Turn, error) {
	word = strings.TrimSpace(word)
	if !kana.ContainsJapanese(word) {
		return nil, reject(ReasonNotJapanese, "no Japanese characters", nil)
	}

	g.mu.Lock()
	if err := g.acceptingLocked(); err != nil {
		g.mu.Unlock()
		return nil, err
	}
	start := g.start
	g.mu.Unlock()

	entry, err := g.svc.Lookup(ctx, word, start)
	if err != nil {
		return nil, lookupReject(err, start)
	}
	last := kana.LastKana(entry.Reading)
	if last == 0 {
		return nil, reject(ReasonNotFound, "reading has no kana", nil)
	}

	g.mu.Lock()
	turn, err := g.applyLocked(player, word, entry, start)
	if err != nil || g.mode != ModeVsComputer || turn.Outcome.Terminal() {
		g.mu.Unlock()
		if turn != nil && turn.Outcome.Terminal() {
			g.ended()
		}
		return turn, err
	}
	g.computing = true
	next := g.start
	g.mu.Unlock()

	return g.computerTurn(ctx, turn, next)
}

func (g *ChainGame) acceptingLocked() error {
	switch {
	case g.over:
		return reject(ReasonGameOver, "game is over", nil)
	case g.computing:
		return reject(ReasonBusy, "computer is thinking", nil)
	}
	return nil
}

// applyLocked runs the post-lookup checks and, if they pass, applies the word.
func (g *ChainGame) applyLocked(player, word string, e lookup.Entry, lookedUpWith rune) (*Turn, error) {
	if err := g.acceptingLocked(); err != nil {
		return nil, err
	}
	if g.start != lookedUpWith && !lookup.StartsWith(e.Reading, g.start) {
		return nil, reject(ReasonStartKanaMismatch, fmt.Sprintf("must start with %c", g.start), nil)
	}
	last := kana.Normalize(kana.LastKana(e.Reading))
	if g.mode == ModeWordBasket && last != g.end {
		return nil, reject(ReasonEndKanaMismatch, fmt.Sprintf("must end with %c", g.end), nil)
	}
	if g.isUsedLocked(word, e.Reading) {
		return nil, reject(ReasonAlreadyUsed, "word already used", nil)
	}

	mv := Move{Player: player, Word: word, Reading: e.Reading, Gloss: e.Gloss}
	if g.mode != ModeWordBasket && kana.IsTerminal(last) {
		g.over = true
		return g.turnLocked(OutcomeTerminalKana, mv, nil), nil
	}

	g.acceptLocked(mv)
	switch g.mode {
	case ModeMultiplayer:
		g.start = last
		g.scores[player]++
	case ModeWordBasket:
		g.scores[player]++
		g.redrawLocked()
	case ModeVsComputer:
		g.start = last
	}
	return g.turnLocked(OutcomeContinue, mv, nil), nil
}

// computerTurn finds and plays a continuation for start. prev is the turn that
// accepted the human's word.
func (g *ChainGame) computerTurn(ctx context.Context, prev *Turn, start rune) (*Turn, error) {
	entries, searchErr := g.svc.Search(ctx, string(start))

	g.mu.Lock()
	g.computing = false
	if g.over {
		g.mu.Unlock()
		return nil, reject(ReasonGameOver, "game closed during computer turn", nil)
	}
	var (
		pick lookup.Entry
		ok   bool
	)
	if searchErr == nil {
		pick, ok = SelectContinuation(entries, start, g.used, g.rng, g.limit)
	}
	if !ok {
		g.over = true
		t := g.turnLocked(OutcomeHumanWins, prev.Move, nil)
		g.mu.Unlock()
		g.ended()
		return t, nil
	}
	cm := Move{Player: ComputerPlayer, Word: pick.Word, Reading: pick.Reading, Gloss: pick.Gloss}
	g.acceptLocked(cm)
	g.start = kana.Normalize(kana.LastKana(pick.Reading))
	t := g.turnLocked(OutcomeContinue, prev.Move, &cm)
	g.mu.Unlock()
	return t, nil
}

func (g *ChainGame) acceptLocked(mv Move) {
	g.used[mv.Word] = struct{}{}
	g.used[mv.Reading] = struct{}{}
	g.chain++
	g.lastWord = mv.Word
	g.lastReading = mv.Reading
}

func (g *ChainGame) isUsedLocked(word, reading string) bool {
	if _, ok := g.used[word]; ok {
		return true
	}
	_, ok := g.used[reading]
	return ok
}

func (g *ChainGame) turnLocked(o Outcome, mv Move, computer *Move) *Turn {
	t := &Turn{
		Outcome:     o,
		Move:        mv,
		Computer:    computer,
		ChainLength: g.chain,
		StartKana:   g.start,
		EndKana:     g.end,
	}
	if g.mode.Scored() {
		t.Scores = copyScores(g.scores)
	}
	return t
}

// redrawLocked picks a new start different from the previous one and a new
// end different from both the new start and the previous end.
func (g *ChainGame) redrawLocked() {
	prevStart, prevEnd := g.start, g.end
	g.start = g.draw(prevStart)
	g.end = g.draw(g.start, prevEnd)
}

// draw picks a uniformly random kana from the pool, avoiding exclude when the
// pool allows it.
func (g *ChainGame) draw(exclude ...rune) rune {
	choices := make([]rune, 0, len(g.pool))
	for _, k := range g.pool {
		k = kana.Normalize(k)
		skip := false
		for _, x := range exclude {
			if k == x {
				skip = true
				break
			}
		}
		if !skip {
			choices = append(choices, k)
		}
	}
	if len(choices) == 0 {
		return kana.Normalize(g.pool[g.rng.IntN(len(g.pool))])
	}
	return choices[g.rng.IntN(len(choices))]
}

func (g *ChainGame) ended() {
	if g.onEnd != nil {
		g.onEnd(g)
	}
}

// ---- continuation selection ----

// SelectContinuation filters entries to those starting with start, not ending
// in ん and not in exclude, keeps the first limit of them and picks one at random.
func SelectContinuation(entries []lookup.Entry, start rune, exclude map[string]struct{}, rng Random, limit int) (lookup.Entry, bool) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	var cands []lookup.Entry
	for _, e := range entries {
		if e.Reading == "" || !lookup.StartsWith(e.Reading, start) {
			continue
		}
		last := kana.LastKana(e.Reading)
		if last == 0 || kana.IsTerminal(last) {
			continue
		}
		if _, used := exclude[e.Word]; used {
			continue
		}
		if _, used := exclude[e.Reading]; used {
			continue
		}
		cands = append(cands, e)
		if len(cands) == limit {
			break
		}
	}
	if len(cands) == 0 {
		return lookup.Entry{}, false
	}
	return cands[rng.IntN(len(cands))], true
}

// ChooseContinuation searches svc for words starting with start and selects one
// with SelectContinuation. It returns false when nothing qualifies.
func ChooseContinuation(ctx context.Context, svc lookup.Service, start rune, exclude map[string]struct{}, rng Random) (lookup.Entry, bool, error) {
	entries, err := svc.Search(ctx, string(kana.Normalize(start)))
	if err != nil {
		return lookup.Entry{}, false, err
	}
	e, ok := SelectContinuation(entries, start, exclude, rng, DefaultCandidateLimit)
	return e, ok, nil
}

// ---- helpers ----

func lookupReject(err error, start rune) *RejectError {
	if errors.Is(err, lookup.ErrStartMismatch) {
		return reject(ReasonStartKanaMismatch, fmt.Sprintf("must start with %c", start), err)
	}
	return reject(ReasonNotFound, "not found in dictionary", err)
}

func copyScores(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
