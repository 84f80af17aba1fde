package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/config"
	"github.com/streamtube/backend/internal/db"
	"github.com/streamtube/backend/internal/handlers"
	"github.com/streamtube/backend/internal/media"
	"github.com/streamtube/backend/internal/middleware"
	"github.com/streamtube/backend/internal/repositories"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background workers and must be called
// before the process exits.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	users := repositories.NewPostgresUserRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	history := repositories.NewPostgresHistoryRepository(pool)

	tokens := auth.NewTokenService(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
		users,
	)

	store, err := media.NewS3Store(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure media store: %w", err)
	}

	ingestor := media.NewIngestor(store, videos, media.IngestorConfig{}, slog.Default())

	limiter := middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute)

	deps := handlers.Dependencies{
		Users:         users,
		Tokens:        tokens,
		Verifier:      tokens,
		Media:         store,
		Subscriptions: subscriptions,
		Channels:      subscriptions,
		History:       history,
		Videos:        videos,
		Ingestor:      ingestor,
		Limiter:       limiter,
		BcryptCost:    cfg.BcryptCost,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}

	cleanup := func(shutdownCtx context.Context) error {
		return ingestor.Shutdown(shutdownCtx)
	}

	return deps, cleanup, nil
}
