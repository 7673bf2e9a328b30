package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"battlerooms/command"
	"battlerooms/config"
	"battlerooms/network"
	"battlerooms/room"
	"battlerooms/storage/sqlite"
	"battlerooms/telemetry"
	"battlerooms/world"
)

const (
	serviceName     = "battlerooms"
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[BATTLEROOMS] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSample,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	w := world.NewMemory(cfg.Worlds...)
	hub := network.NewHub(logger)
	manager := room.NewManager(room.Options{
		Cooldown:       cfg.Cooldown,
		SealedMaterial: cfg.SealedMaterial,
		Messages:       cfg.Messages.Room(),
		Logger:         logger,
	}, room.Deps{
		Store:    store,
		World:    w,
		Notifier: hub,
	})
	if err := manager.Load(ctx); err != nil {
		return err
	}

	loop := room.NewLoop(manager)
	go loop.Run(ctx)
	defer loop.Stop()

	cmds := command.New(manager, cfg.Messages.CommandsDisabled, logger)
	srv := network.NewServer(manager, loop, cmds, w, hub, network.Options{
		DefaultWorld: cfg.Worlds[0],
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Addr), slog.String("ws", "/ws"))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", slog.Any("error", err))
	}
	if err := manager.Shutdown(sctx); err != nil {
		return fmt.Errorf("room shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}
