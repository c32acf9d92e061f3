package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/royale-backend/internal/config"
	"github.com/DoyleJ11/royale-backend/internal/httpapi"
	"github.com/DoyleJ11/royale-backend/internal/hub"
	"github.com/DoyleJ11/royale-backend/internal/logging"
	"github.com/DoyleJ11/royale-backend/internal/match"
	"github.com/DoyleJ11/royale-backend/internal/scheduler"
	"github.com/DoyleJ11/royale-backend/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var saver store.Saver = store.LogSaver{Logger: logging.Component(log, "stats")}
	var history httpapi.History
	if cfg.DatabaseURL != "" {
		db, closeDB, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer closeDB()
		repo := store.NewRepository(db)
		saver, history = repo, repo
		log.Info("statistics stored in postgres")
	} else {
		log.Info("DATABASE_URL not set, statistics are only logged")
	}
	stats := store.NewStatsWriter(saver, 128, log)

	// Scheduler resolution follows the faster of the two match intervals.
	sched := scheduler.New(scheduler.SystemClock{}, min(cfg.TickInterval, cfg.DamageInterval), logging.Component(log, "scheduler"))

	h := hub.NewHub(ctx, sched, hub.Options{
		Table: cfg.Table,
		Arena: match.Arena{
			Center: cfg.ArenaCenter,
			Radius: cfg.ArenaRadius,
			Bounds: cfg.Bounds(),
		},
		Defaults:       cfg.Defaults,
		PlayerLimit:    cfg.PlayerLimit,
		TickInterval:   cfg.TickInterval,
		DamageInterval: cfg.DamageInterval,
		MaxHealth:      cfg.MaxHealth,
		Retention:      cfg.Retention,
		Stats:          stats,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(h, history, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return stats.Run(gctx) })
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		h.Close()
		return err
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}
