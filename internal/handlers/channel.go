package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamtube/backend/internal/logging"
	"github.com/streamtube/backend/internal/middleware"
	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
)

// ChannelHandler serves channel profile reads and subscription edge writes.
type ChannelHandler struct {
	Users         UserStore
	Subscriptions SubscriptionStore
	Channels      ChannelReader
	NowFunc       func() time.Time
}

// Profile handles GET /api/v1/channels/{username}. Authentication is
// optional; an authenticated viewer gets a personalised isSubscribed flag.
func (h ChannelHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	username := strings.TrimSpace(strings.ToLower(r.PathValue("username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is missing")
		return
	}

	viewerID := ""
	if claims, ok := middleware.ClaimsFromContext(ctx); ok {
		viewerID = claims.UserID()
	}

	profile, err := h.Channels.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel does not exist")
			return
		}
		logging.FromContext(ctx).Error("channel profile query failed", "error", err, "channel", username)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel profile")
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile, "channel profile fetched successfully")
}

// Subscribe handles /api/v1/channels/{username}/subscribe: POST creates the
// subscription edge, DELETE removes it.
func (h ChannelHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createSubscription(w, r)
	case http.MethodDelete:
		h.deleteSubscription(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h ChannelHandler) createSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	channel, status, msg := h.resolveChannel(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	if channel.ID == claims.UserID() {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	sub := models.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: claims.UserID(),
		ChannelID:    channel.ID,
		CreatedAt:    h.now(),
	}

	if err := h.Subscriptions.Create(ctx, sub); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			// Reachable only once a unique (subscriber, channel) index
			// exists; today the edge table carries none.
			respondError(ctx, w, http.StatusConflict, "already subscribed")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "channel does not exist")
		default:
			logger.Error("subscription create failed", "error", err, "channel", channel.Username)
			respondError(ctx, w, http.StatusInternalServerError, "failed to subscribe")
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, struct{}{}, "subscribed successfully")
}

func (h ChannelHandler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	channel, status, msg := h.resolveChannel(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	if err := h.Subscriptions.Delete(ctx, claims.UserID(), channel.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "subscription does not exist")
			return
		}
		logger.Error("subscription delete failed", "error", err, "channel", channel.Username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}

	respondJSON(ctx, w, http.StatusOK, struct{}{}, "unsubscribed successfully")
}

// resolveChannel looks up the channel named in the request path. A non-zero
// status signals the caller should respond with that error.
func (h ChannelHandler) resolveChannel(r *http.Request) (models.User, int, string) {
	username := strings.TrimSpace(strings.ToLower(r.PathValue("username")))
	if username == "" {
		return models.User{}, http.StatusBadRequest, "username is missing"
	}

	channel, err := h.Users.FindByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, http.StatusNotFound, "channel does not exist"
		}
		logging.FromContext(r.Context()).Error("channel lookup failed", "error", err, "channel", username)
		return models.User{}, http.StatusInternalServerError, "unable to load channel"
	}
	return channel, 0, ""
}

func (h ChannelHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
