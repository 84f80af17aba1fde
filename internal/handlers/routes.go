package handlers

import (
	"net/http"
	"time"

	"github.com/streamtube/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	authH := AuthHandler{
		Users:      deps.Users,
		Tokens:     deps.Tokens,
		Media:      deps.Media,
		Limiter:    deps.Limiter,
		BcryptCost: deps.BcryptCost,
		AccessTTL:  deps.AccessTTL,
		RefreshTTL: deps.RefreshTTL,
	}
	channels := ChannelHandler{
		Users:         deps.Users,
		Subscriptions: deps.Subscriptions,
		Channels:      deps.Channels,
	}
	history := HistoryHandler{History: deps.History, Videos: deps.Videos}
	videos := VideoHandler{Videos: deps.Videos, Media: deps.Media, Ingestor: deps.Ingestor}

	requireAuth := middleware.RequireAuth(deps.Verifier)
	optionalAuth := middleware.OptionalAuth(deps.Verifier)

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/api/v1/auth/register", authH.Register)
	mux.HandleFunc("/api/v1/auth/login", authH.Login)
	mux.HandleFunc("/api/v1/auth/refresh", authH.Refresh)
	mux.Handle("/api/v1/auth/logout", requireAuth(http.HandlerFunc(authH.Logout)))
	mux.Handle("/api/v1/auth/change-password", requireAuth(http.HandlerFunc(authH.ChangePassword)))

	mux.Handle("/api/v1/users/me", requireAuth(http.HandlerFunc(authH.Me)))
	mux.Handle("/api/v1/users/me/avatar", requireAuth(http.HandlerFunc(authH.UpdateAvatar)))
	mux.Handle("/api/v1/users/me/cover", requireAuth(http.HandlerFunc(authH.UpdateCoverImage)))

	mux.Handle("/api/v1/channels/{username}", optionalAuth(http.HandlerFunc(channels.Profile)))
	mux.Handle("/api/v1/channels/{username}/subscribe", requireAuth(http.HandlerFunc(channels.Subscribe)))

	mux.Handle("/api/v1/history", requireAuth(http.HandlerFunc(history.Handle)))

	mux.Handle("/api/v1/videos", requireAuth(http.HandlerFunc(videos.Publish)))
	mux.Handle("/api/v1/videos/{id}", optionalAuth(http.HandlerFunc(videos.Get)))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Tokens        TokenManager
	Verifier      middleware.AccessVerifier
	Media         MediaStore
	Subscriptions SubscriptionStore
	Channels      ChannelReader
	History       HistoryStore
	Videos        VideoStore
	Ingestor      VideoIngestor
	Limiter       RateLimiter

	BcryptCost int
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}
