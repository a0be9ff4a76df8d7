// internal/config/config.go
//
// Process configuration.
//   - .env is loaded first when present (godotenv); real environment wins.
//   - Every setting has a default so `lain serve` runs with no configuration
//     except RELAY_SECRET.
//   - Game tunables may come from an optional YAML file (GAME_CONFIG).
//
// Environment variables:
//   PORT, DB_PATH, LOG_LEVEL, LOG_FORMAT, RELAY_SECRET, DAILY_SALT, DAILY_TZ,
//   JISHO_BASE_URL, LOOKUP_TIMEOUT, LOOKUP_OFFLINE, RATE_PER_SEC, RATE_BURST,
//   RADICALS_FILE, WORDS_KANJI_FILE, GAME_CONFIG

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/webutan/lain/internal/game"
	"github.com/webutan/lain/internal/kana"
)

// Config is the resolved process configuration.
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string // "json" or "console"

	RelaySecret string
	DailySalt   string
	DailyTZ     *time.Location

	JishoBaseURL  string
	LookupTimeout time.Duration
	LookupOffline bool // skip Jisho and validate with the bundled dictionary only

	RatePerSec float64 // per-user message rate in games
	RateBurst  int

	RadicalsFile string // empty = embedded
	KanjiFile    string // empty = embedded

	Game Game
}

// Game holds tunables for the engines.
type Game struct {
	MaxGuesses     int    `yaml:"max_guesses"`
	CandidateLimit int    `yaml:"candidate_limit"`
	CommonKana     string `yaml:"common_kana"`
}

// DefaultGame returns the built-in tunables.
func DefaultGame() Game {
	return Game{
		MaxGuesses:     game.MaxGuesses,
		CandidateLimit: game.DefaultCandidateLimit,
		CommonKana:     string(game.CommonKana),
	}
}

// Kana returns the draw pool as runes.
func (g Game) Kana() []rune { return []rune(g.CommonKana) }

// Validate checks the tunables are playable.
func (g Game) Validate() error {
	if g.MaxGuesses < 1 || g.MaxGuesses > 10 {
		return fmt.Errorf("max_guesses must be 1..10, got %d", g.MaxGuesses)
	}
	if g.CandidateLimit < 1 {
		return fmt.Errorf("candidate_limit must be positive, got %d", g.CandidateLimit)
	}
	ks := g.Kana()
	if len(ks) < 3 {
		return errors.New("common_kana needs at least 3 kana")
	}
	for _, k := range ks {
		if !kana.IsKana(k) || kana.IsTerminal(k) {
			return fmt.Errorf("common_kana: %q is not a usable kana", k)
		}
	}
	return nil
}

// Load reads .env (optional) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	tzName := getEnv("DAILY_TZ", "Asia/Tokyo")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("DAILY_TZ: %w", err)
	}

	cfg := &Config{
		Port:          getEnv("PORT", "5175"),
		DBPath:        getEnv("DB_PATH", "./data/lain.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		RelaySecret:   os.Getenv("RELAY_SECRET"),
		DailySalt:     getEnv("DAILY_SALT", "local_dev_salt"),
		DailyTZ:       loc,
		JishoBaseURL:  getEnv("JISHO_BASE_URL", "https://jisho.org"),
		LookupTimeout: getEnvAsDuration("LOOKUP_TIMEOUT", 8*time.Second),
		LookupOffline: getEnvAsBool("LOOKUP_OFFLINE", false),
		RatePerSec:    getEnvAsFloat("RATE_PER_SEC", 1),
		RateBurst:     getEnvAsInt("RATE_BURST", 3),
		RadicalsFile:  os.Getenv("RADICALS_FILE"),
		KanjiFile:     os.Getenv("WORDS_KANJI_FILE"),
		Game:          DefaultGame(),
	}

	if path := os.Getenv("GAME_CONFIG"); path != "" {
		g, err := LoadGame(path)
		if err != nil {
			return nil, err
		}
		cfg.Game = g
	}
	return cfg, nil
}

// RequireRelaySecret fails when no relay secret is configured.
func (c *Config) RequireRelaySecret() error {
	if len(c.RelaySecret) < 16 {
		return errors.New("RELAY_SECRET must be set (at least 16 characters)")
	}
	return nil
}

// LoadGame reads a YAML tunables file. Missing keys keep their defaults.
func LoadGame(path string) (Game, error) {
	f, err := os.Open(path)
	if err != nil {
		return Game{}, fmt.Errorf("game config: %w", err)
	}
	defer f.Close()

	g := DefaultGame()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil {
		return Game{}, fmt.Errorf("game config %s: %w", path, err)
	}
	if err := g.Validate(); err != nil {
		return Game{}, fmt.Errorf("game config %s: %w", path, err)
	}
	return g, nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvAsFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func getEnvAsBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvAsDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
