// internal/lookup/jisho.go
//
// Jisho.org word search client.
//   - GET {base}/api/v1/search/words?keyword=<word>
//   - Only entries with a "Noun..." part of speech are considered.
//   - Gloss is the first three English definitions of the first sense.
//   - Non-200, transport and decode failures become *UpstreamError.
//
// An optional rate.Limiter throttles outbound requests.

package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/webutan/lain/internal/kana"
)

// DefaultJishoURL is the public Jisho endpoint.
const DefaultJishoURL = "https://jisho.org"

// Jisho queries the Jisho word search API.
type Jisho struct {
	BaseURL string
	Client  *http.Client
	Limiter *rate.Limiter // nil disables throttling
}

// NewJisho returns a client with its own HTTP timeout.
func NewJisho(baseURL string, timeout time.Duration) *Jisho {
	if baseURL == "" {
		baseURL = DefaultJishoURL
	}
	return &Jisho{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
		Limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// ---- wire types ----

type jishoResponse struct {
	Data []jishoEntry `json:"data"`
}

type jishoEntry struct {
	Japanese []struct {
		Word    string `json:"word"`
		Reading string `json:"reading"`
	} `json:"japanese"`
	Senses []struct {
		EnglishDefinitions []string `json:"english_definitions"`
		PartsOfSpeech      []string `json:"parts_of_speech"`
	} `json:"senses"`
}

func (e jishoEntry) isNoun() bool {
	for _, s := range e.Senses {
		for _, p := range s.PartsOfSpeech {
			if strings.HasPrefix(p, "Noun") {
				return true
			}
		}
	}
	return false
}

func (e jishoEntry) gloss() string {
	if len(e.Senses) == 0 {
		return ""
	}
	defs := e.Senses[0].EnglishDefinitions
	if len(defs) > 3 {
		defs = defs[:3]
	}
	return strings.Join(defs, ", ")
}

// ---- Service ----

// Lookup validates word as a noun. Surface and reading both match, so kana-only
// input is accepted for words normally written in kanji.
func (j *Jisho) Lookup(ctx context.Context, word string, startKana rune) (Entry, error) {
	data, err := j.search(ctx, word)
	if err != nil {
		return Entry{}, err
	}
	m := Matcher{Start: startKana}
	for _, e := range data {
		if !e.isNoun() {
			continue
		}
		for _, jp := range e.Japanese {
			if jp.Word != word && jp.Reading != word {
				continue
			}
			reading := jp.Reading
			if reading == "" {
				reading = word
			}
			if m.Offer(Entry{Word: word, Reading: reading, Gloss: e.gloss()}) {
				return m.Result()
			}
		}
	}
	return m.Result()
}

// Search runs a wildcard query (prefix*) and flattens the noun forms that
// begin with prefix. Readings are compared in hiragana, so "こ" also keeps
// katakana readings such as コーヒー.
func (j *Jisho) Search(ctx context.Context, prefix string) ([]Entry, error) {
	data, err := j.search(ctx, prefix+"*")
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range data {
		if !e.isNoun() {
			continue
		}
		for _, jp := range e.Japanese {
			if jp.Reading == "" {
				continue
			}
			surface := jp.Word
			if surface == "" {
				surface = jp.Reading
			}
			if !strings.HasPrefix(surface, prefix) && !readingHasPrefix(jp.Reading, prefix) {
				continue
			}
			out = append(out, Entry{Word: surface, Reading: jp.Reading, Gloss: e.gloss()})
		}
	}
	return out, nil
}

func readingHasPrefix(reading, prefix string) bool {
	if strings.HasPrefix(kana.ToHiragana(reading), kana.ToHiragana(prefix)) {
		return true
	}
	if r, n := utf8.DecodeRuneInString(prefix); n == len(prefix) && kana.IsKana(r) {
		return StartsWith(reading, r)
	}
	return false
}

func (j *Jisho) search(ctx context.Context, keyword string) ([]jishoEntry, error) {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx); err != nil {
			return nil, &UpstreamError{Backend: "jisho", Err: err}
		}
	}
	u := j.BaseURL + "/api/v1/search/words?keyword=" + url.QueryEscape(keyword)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &UpstreamError{Backend: "jisho", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	client := j.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Backend: "jisho", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Backend: "jisho", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	var body jishoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &UpstreamError{Backend: "jisho", Err: fmt.Errorf("decode: %w", err)}
	}
	return body.Data, nil
}
