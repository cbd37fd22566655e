package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dinehub/assignment-api/internal/assignment"
	"github.com/dinehub/assignment-api/internal/config"
	"github.com/dinehub/assignment-api/internal/database"
	"github.com/dinehub/assignment-api/internal/events"
	"github.com/dinehub/assignment-api/internal/router"
	"github.com/dinehub/assignment-api/internal/ws"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}
	defer pool.Close()
	queries := database.New(pool)
	log.Info().Msg("postgres connected")

	hub := ws.NewHub(log.Logger)
	go hub.Run()

	registry := assignment.NewRegistry(hub)
	queue := assignment.NewQueue(cfg.QueueMaxDepth, cfg.AvgHandlingMinutes)
	engine := assignment.NewEngine(
		pool,
		queries,
		func(db database.DBTX) assignment.Store { return database.New(db) },
		registry,
		queue,
		hub,
		log.Logger,
	)

	monitor := assignment.NewMonitor(engine, queries, registry,
		cfg.MonitorInterval, cfg.SweepTimeout, cfg.OrphanTimeout, log.Logger)
	go monitor.Run(ctx)

	conn, err := events.Dial(cfg.AMQPURL, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbitmq connect")
	}
	defer conn.Close()
	log.Info().Msg("rabbitmq connected")

	consumer := events.NewConsumer(conn, engine, log.Logger)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer stopped")
			cancel()
		}
	}()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.New(cfg, queries, engine, monitor, hub),
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}
