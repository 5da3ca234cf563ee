package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/auction-arena/cricket-auction-backend/internal/catalog"
	"github.com/auction-arena/cricket-auction-backend/internal/config"
	"github.com/auction-arena/cricket-auction-backend/internal/engine"
	"github.com/auction-arena/cricket-auction-backend/internal/httpapi"
	"github.com/auction-arena/cricket-auction-backend/internal/registry"
	"github.com/auction-arena/cricket-auction-backend/internal/snapshot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("loading config: %v", err))
	}

	var log *zap.Logger
	if cfg.Env == "production" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(fmt.Sprintf("building logger: %v", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("opening snapshot store", zap.Error(err))
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		// A missing catalog degrades to the sentinel item so room creation
		// still works.
		log.Warn("catalog unavailable, using placeholder pool",
			zap.String("path", cfg.CatalogPath), zap.Error(err))
		cat = catalog.Fallback()
	} else {
		log.Info("catalog loaded", zap.String("path", cfg.CatalogPath), zap.Int("players", cat.Len()))
	}

	rules := engine.Rules{BidSeconds: cfg.BidSeconds, PauseSeconds: cfg.PauseSeconds}
	reg := registry.New(ctx, log, store, cat, rules, cfg.RoomIdleTimeout)

	restored, err := reg.Restore(ctx)
	if err != nil {
		log.Warn("restoring rooms from snapshots failed", zap.Error(err))
	} else if restored > 0 {
		log.Info("rooms restored", zap.Int("count", restored))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: httpapi.SetupRoutes(reg, log),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.Int("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}

	// Signal received: let rooms take their final snapshots, then close the
	// store.
	reg.Inbox() <- registry.ShutdownRegistry{}
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		log.Warn("closing snapshot store", zap.Error(err))
	}
	log.Info("shut down")
}

func openStore(ctx context.Context, cfg *config.Config) (snapshot.Store, error) {
	switch cfg.SnapshotBackend {
	case "file":
		return snapshot.NewFileStore(cfg.SnapshotDir)
	case "redis":
		return snapshot.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisTTL)
	case "postgres":
		return snapshot.NewPostgresStore(ctx, cfg.DatabaseURL)
	case "mongo":
		return snapshot.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "none":
		return snapshot.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}
