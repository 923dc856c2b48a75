package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	appcfg "github.com/sumeet57/chess-live-server/internal/config"
	"github.com/sumeet57/chess-live-server/internal/httpapi"
	"github.com/sumeet57/chess-live-server/internal/identity"
	"github.com/sumeet57/chess-live-server/internal/msgcat"
	"github.com/sumeet57/chess-live-server/internal/obslog"
	"github.com/sumeet57/chess-live-server/internal/room"
	"github.com/sumeet57/chess-live-server/internal/router"
	"github.com/sumeet57/chess-live-server/internal/rules"
	"github.com/sumeet57/chess-live-server/internal/store"
	"github.com/sumeet57/chess-live-server/internal/transport/ws"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer obslog.Sync()

	// Durable store: Postgres when configured, in-memory otherwise.
	var gateway store.Gateway
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresGateway(cfg.DatabaseURL)
		if err != nil {
			obslog.L().Fatal("store_init_error", zap.Error(err))
		}
		defer pg.Close()
		gateway = pg
	} else {
		obslog.L().Warn("store_memory_fallback")
		gateway = store.NewMemoryGateway()
	}

	// Identity directory: Redis when configured, in-memory otherwise.
	var directory identity.Directory
	if cfg.RedisURL != "" {
		rd, err := identity.NewRedisDirectory(cfg.RedisURL)
		if err != nil {
			obslog.L().Fatal("identity_init_error", zap.Error(err))
		}
		defer rd.Close()
		directory = rd
	} else {
		obslog.L().Warn("identity_memory_fallback")
		directory = identity.NewMemoryDirectory()
	}

	catalog, err := msgcat.New(cfg.MessageCatalogPath)
	if err != nil {
		obslog.L().Fatal("msgcat_init_error", zap.Error(err))
	}

	registry := room.NewRegistry()
	rt := router.New(registry, rules.NewEngine(), gateway, directory, catalog, cfg.MaxConcurrentRooms)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	wsSrv := ws.NewServer(rt, cfg.AllowedOrigins)
	go func() {
		errCh <- wsSrv.ListenAndServe(ctx, cfg.ListenAddr)
	}()
	if cfg.HTTPAPIAddr != "" {
		apiSrv := httpapi.NewServer(gateway)
		go func() {
			errCh <- apiSrv.ListenAndServe(ctx, cfg.HTTPAPIAddr)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		obslog.L().Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			obslog.L().Error("server_error", zap.Error(err))
		}
	}
	cancel()
}
