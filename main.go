package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/qwirkle/server/internal/config"
	"github.com/robalobadob/qwirkle/server/internal/httpserver"
	"github.com/robalobadob/qwirkle/server/internal/session"
	"github.com/robalobadob/qwirkle/server/internal/store"
	"github.com/robalobadob/qwirkle/server/internal/transport"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	setupLogging(cfg)

	st, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open result store")
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, st); err != nil {
		log.Error().Err(err).Msg("server exited")
		closeStore()
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

// run serves the admin API alongside one game session. It returns when the
// session ends, ctx is cancelled or a component fails.
func run(ctx context.Context, cfg *config.Config, st store.Store) error {
	tracker := session.NewTracker()
	g, gctx := errgroup.WithContext(ctx)
	gctx, done := context.WithCancel(gctx)

	if cfg.AdminAddr != "" {
		admin := httpserver.New(st, tracker, httpserver.Auth{
			Secret:       []byte(cfg.JWTSecret),
			User:         cfg.AdminUser,
			PasswordHash: cfg.AdminPasswordHash,
			Expires:      cfg.JWTExpires,
		})
		g.Go(func() error { return admin.Start(gctx, cfg.AdminAddr) })
	}

	g.Go(func() error {
		defer done()
		err := play(gctx, cfg, st, tracker)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// play accepts the players, runs the session and tears the connections down.
func play(ctx context.Context, cfg *config.Config, st store.Store, tracker *session.Tracker) error {
	ln, err := transport.Listen(cfg.GameAddr, transport.Options{
		ReadPoll:     cfg.ReadPoll,
		DrainTimeout: cfg.DrainTimeout,
	})
	if err != nil {
		return err
	}
	log.Info().Str("addr", ln.Addr().String()).Int("players", cfg.Players).Msg("waiting for players")

	conns, err := ln.Accept(ctx, cfg.Players)
	if err != nil {
		return err
	}

	q := session.NewQueue(cfg.QueueSize)
	peers := make([]session.Peer, len(conns))
	for i, c := range conns {
		peers[i] = c
	}
	sess, err := session.New(peers, q, session.WithStore(st), session.WithTracker(tracker))
	if err != nil {
		transport.CloseAll(conns)
		return err
	}

	lctx, stopListening := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *transport.Conn) {
			defer wg.Done()
			_ = c.Listen(lctx, q)
		}(c)
	}

	err = sess.Run(ctx)

	stopListening()
	wg.Wait()
	transport.CloseAll(conns)
	return err
}

func openStore(cfg *config.Config) (store.Store, func(), error) {
	if cfg.DBPath == "" {
		log.Info().Msg("results kept in memory")
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := store.OpenSQLite(cfg.DBPath, cfg.ResultCacheSize)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("path", cfg.DBPath).Msg("results stored in sqlite")
	var once sync.Once
	return db, func() { once.Do(func() { _ = db.Close() }) }, nil
}

func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	var out io.Writer = os.Stderr
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
