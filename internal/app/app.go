package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"example.com/squares/internal/config"
	"example.com/squares/internal/game"
	"example.com/squares/internal/httpapi"
	"example.com/squares/internal/kv"
	"example.com/squares/internal/migrate"
	"example.com/squares/internal/store"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db  *pgxpool.Pool
	rdb *redis.Client

	srv *http.Server
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	// --- Postgres (audit trail) ---
	dbpool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	// --- Redis (table/state KV) ---
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})

	// Quick connectivity checks (fail fast).
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := dbpool.Ping(pingCtx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		dbpool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping (%s db=%d): %w", cfg.Redis.Addr, cfg.Redis.DB, err)
	}

	if cfg.Postgres.RunMigrations {
		if err := migrate.Up(cfg.Postgres.URL, cfg.Postgres.MigrationsDir, log); err != nil {
			dbpool.Close()
			_ = rdb.Close()
			return nil, err
		}
	}

	// --- Stores ---
	kvStore := kv.NewRedis(rdb)
	gameCfg := game.Config{
		AutoLockOffset: cfg.Game.AutoLockOffset,
		RevealOffset:   cfg.Game.RevealOffset,
	}
	registry := game.NewRegistry(kvStore, gameCfg)
	states := game.NewStateStore(kvStore)
	flow := game.NewWorkflow(kvStore)
	solo := game.NewSoloStore(kvStore, game.SoloConfig{
		Name:        cfg.Game.Solo.Name,
		PricePerBox: cfg.Game.Solo.PricePerBox,
		Currency:    cfg.Game.Solo.Currency,
		Payouts: game.Payouts{
			Q1:    cfg.Game.Solo.PayoutQ1,
			Q2:    cfg.Game.Solo.PayoutQ2,
			Q3:    cfg.Game.Solo.PayoutQ3,
			Final: cfg.Game.Solo.PayoutFinal,
		},
		Rules:     cfg.Game.Solo.Rules,
		KickoffAt: cfg.Game.Solo.KickoffAt.UnixMilli(),
	}, gameCfg)
	audit := store.NewAuditStore(dbpool)

	// --- HTTP ---
	api := httpapi.NewServer(httpapi.Config{
		Env:                    cfg.Env,
		AdminPassword:          cfg.Auth.AdminPassword,
		SuperadminPassword:     cfg.Auth.SuperadminPassword,
		SuperadminPasswordHash: cfg.Auth.SuperadminPasswordHash,
		SessionSecret:          []byte(cfg.Auth.SessionSecret),
		SessionTTL:             cfg.Auth.SessionTTL,
		CronSecret:             cfg.Auth.CronSecret,
		DefaultKickoffAt:       cfg.Game.Solo.KickoffAt.UnixMilli(),
	}, log, registry, states, flow, solo, audit)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	api.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	return &App{cfg: cfg, log: log, db: dbpool, rdb: rdb, srv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		_ = a.srv.Shutdown(shutdownCtx)
		return nil
	})

	err := g.Wait()
	_ = a.Close(context.Background())
	return err
}

func (a *App) Close(ctx context.Context) error {
	// best-effort
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	return nil
}
