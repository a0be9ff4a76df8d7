// main.go
//
// lain command line.
//   - serve (default): HTTP server, relay and dispatcher.
//   - migrate: apply database migrations.
//   - token issue --user: issue a flashcard sync token.
//   - relay-token --name: sign a relay JWT for the chat gateway.
//   - daily show [--date]: print the daily answer.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/webutan/lain/internal/bot"
	"github.com/webutan/lain/internal/config"
	"github.com/webutan/lain/internal/daily"
	"github.com/webutan/lain/internal/db"
	"github.com/webutan/lain/internal/flashcard"
	"github.com/webutan/lain/internal/httpserver"
	"github.com/webutan/lain/internal/lookup"
	"github.com/webutan/lain/internal/radical"
	"github.com/webutan/lain/internal/results"
	"github.com/webutan/lain/internal/words"
)

func main() {
	app := &cli.App{
		Name:   "lain",
		Usage:  "Japanese word games for chat",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server and game dispatcher",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: migrate,
			},
			{
				Name:  "token",
				Usage: "flashcard sync tokens",
				Subcommands: []*cli.Command{
					{
						Name:   "issue",
						Usage:  "issue (and revoke any previous) sync token for a user",
						Flags:  []cli.Flag{&cli.StringFlag{Name: "user", Required: true}},
						Action: issueToken,
					},
				},
			},
			{
				Name:  "relay-token",
				Usage: "sign a relay JWT for the chat gateway",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Value: "gateway"},
					&cli.DurationFlag{Name: "ttl", Usage: "0 = no expiry"},
				},
				Action: relayToken,
			},
			{
				Name:  "daily",
				Usage: "daily puzzle tools",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "print the answer for a date (default today)",
						Flags:  []cli.Flag{&cli.StringFlag{Name: "date", Usage: "YYYY-MM-DD"}},
						Action: dailyShow,
					},
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("lain")
	}
}

// setup loads configuration and configures the global logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return cfg, nil
}

// buildLookup returns Jisho with the bundled dictionary as fallback, or the
// bundled dictionary alone when offline.
func buildLookup(cfg *config.Config) (lookup.Service, error) {
	offline, kerr := lookup.NewKagome()
	if cfg.LookupOffline {
		if kerr != nil {
			return nil, kerr
		}
		log.Info().Msg("lookup: offline dictionary only")
		return offline, nil
	}
	online := lookup.NewJisho(cfg.JishoBaseURL, cfg.LookupTimeout)
	if kerr != nil {
		log.Warn().Err(kerr).Msg("offline dictionary unavailable; no lookup fallback")
		return online, nil
	}
	return lookup.Fallback{Primary: online, Secondary: offline}, nil
}

// ---- commands ----

func serve(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.RequireRelaySecret(); err != nil {
		return err
	}
	if err := words.Init(cfg.KanjiFile); err != nil {
		return fmt.Errorf("load kanji list: %w", err)
	}
	idx, err := radical.LoadFile(cfg.RadicalsFile)
	if err != nil {
		return fmt.Errorf("load radicals: %w", err)
	}
	conn, err := db.OpenAndMigrate(cfg.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	svc, err := buildLookup(cfg)
	if err != nil {
		return err
	}
	log.Info().Int("kanji", words.Stats()).Int("radicals", idx.Len()).Msg("word lists loaded")

	selector := daily.NewSelector(svc, words.Candidates(), cfg.DailySalt, cfg.DailyTZ, cfg.Game.CandidateLimit)
	dailyStore := daily.NewStore(conn)
	cards := flashcard.NewQueue(conn)

	relay := httpserver.NewRelay(5 * time.Second)
	d := bot.New(relay, bot.Deps{
		Lookup:       svc,
		Radicals:     idx,
		Candidates:   words.RandomCandidates,
		Daily:        selector,
		DailyResults: dailyStore,
		Cards:        cards,
		Results:      results.NewStore(conn),
	}, bot.Config{
		MaxGuesses:     cfg.Game.MaxGuesses,
		CandidateLimit: cfg.Game.CandidateLimit,
		Kana:           cfg.Game.Kana(),
		RatePerSec:     cfg.RatePerSec,
		RateBurst:      cfg.RateBurst,
	})
	relay.Bind(d)

	srv := httpserver.New(httpserver.Options{
		Events:      d,
		Relay:       relay,
		Cards:       cards,
		Daily:       dailyStore,
		Today:       selector.TodayKey,
		Games:       d.ActiveGames,
		RelaySecret: cfg.RelaySecret,
	}).HTTPServer(":" + cfg.Port)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("starting lain")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func migrate(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	conn, err := db.OpenAndMigrate(cfg.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info().Str("db", cfg.DBPath).Msg("migrations applied")
	return nil
}

func issueToken(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	conn, err := db.OpenAndMigrate(cfg.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	tok, err := flashcard.NewQueue(conn).IssueToken(c.Context, c.String("user"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, tok)
	return err
}

func relayToken(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.RequireRelaySecret(); err != nil {
		return err
	}
	tok, err := httpserver.SignRelayToken(cfg.RelaySecret, c.String("name"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, tok)
	return err
}

func dailyShow(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if err := words.Init(cfg.KanjiFile); err != nil {
		return err
	}
	svc, err := buildLookup(cfg)
	if err != nil {
		return err
	}
	sel := daily.NewSelector(svc, words.Candidates(), cfg.DailySalt, cfg.DailyTZ, cfg.Game.CandidateLimit)

	date := c.String("date")
	if date == "" {
		date = sel.TodayKey()
	}
	e, err := sel.ForDate(c.Context, date)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%s\n", date, e.Word, e.Reading, e.Gloss)
	return err
}
