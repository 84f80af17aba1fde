package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/streamtube/backend/internal/logging"
	"github.com/streamtube/backend/internal/middleware"
	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
)

// HistoryHandler serves the watch-history sequence for the authenticated user.
type HistoryHandler struct {
	History HistoryStore
	Videos  VideoStore
	NowFunc func() time.Time
}

// Handle dispatches /api/v1/history: GET lists the history newest first, POST
// records a watch event.
func (h HistoryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.record(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	entries, err := h.History.List(ctx, claims.UserID())
	if err != nil {
		logging.FromContext(ctx).Error("watch history query failed", "error", err, "userId", claims.UserID())
		respondError(ctx, w, http.StatusInternalServerError, "unable to load watch history")
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	respondJSON(ctx, w, http.StatusOK, entries, "watch history fetched successfully")
}

func (h HistoryHandler) record(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req recordWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid watch payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video does not exist")
			return
		}
		logger.Error("watch video lookup failed", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to record watch")
		return
	}

	entry := models.WatchEntry{
		UserID:    claims.UserID(),
		VideoID:   videoID,
		WatchedAt: h.now(),
	}

	if err := h.History.Add(ctx, entry); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video does not exist")
			return
		}
		logger.Error("watch record failed", "error", err, "videoId", videoID, "userId", claims.UserID())
		respondError(ctx, w, http.StatusInternalServerError, "unable to record watch")
		return
	}

	respondJSON(ctx, w, http.StatusOK, struct{}{}, "watch recorded")
}

type recordWatchRequest struct {
	VideoID string `json:"videoId"`
}

func (h HistoryHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
