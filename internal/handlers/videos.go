package handlers

import (
	"encoding/json"
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

// VideoHandler serves video publishing and metadata reads. Publishing is a
// two-phase flow: the thumbnail is stored synchronously, while the video file
// itself is handed to the ingestor and the record becomes published once the
// upload completes.
type VideoHandler struct {
	Videos   VideoStore
	Media    MediaStore
	Ingestor VideoIngestor
	NowFunc  func() time.Time
}

// Publish handles POST /api/v1/videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if h.Videos == nil || h.Media == nil || h.Ingestor == nil {
		logger.Error("video publishing dependencies unavailable",
			"hasVideos", h.Videos != nil, "hasMedia", h.Media != nil, "hasIngestor", h.Ingestor != nil)
		respondError(ctx, w, http.StatusInternalServerError, "video publishing unavailable")
		return
	}

	var req publishVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid publish payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	if req.Title == "" || req.Description == "" || strings.TrimSpace(req.ThumbnailPath) == "" || strings.TrimSpace(req.VideoPath) == "" {
		respondError(ctx, w, http.StatusBadRequest, "title, description, video and thumbnail are required")
		return
	}

	thumbnailURL, err := h.Media.Upload(ctx, req.ThumbnailPath)
	if err != nil || thumbnailURL == "" {
		logger.Warn("thumbnail upload failed", "path", req.ThumbnailPath, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "failed to upload thumbnail")
		return
	}

	now := h.now()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      claims.UserID(),
		ThumbnailURL: thumbnailURL,
		Title:        req.Title,
		Description:  req.Description,
		Duration:     req.Duration,
		IsPublished:  false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("video create failed", "error", err, "title", req.Title)
		respondError(ctx, w, http.StatusInternalServerError, "failed to publish video")
		return
	}

	if err := h.Ingestor.Enqueue(ctx, video.ID, req.VideoPath); err != nil {
		logger.Error("video enqueue failed", "error", err, "videoId", video.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to schedule video upload")
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, video, "video publishing scheduled")
}

// Get handles GET /api/v1/videos/{id}. Unpublished videos are only visible
// to their owner.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is missing")
		return
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video does not exist")
			return
		}
		logging.FromContext(ctx).Error("video lookup failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return
	}

	if !video.IsPublished {
		claims, ok := middleware.ClaimsFromContext(ctx)
		if !ok || claims.UserID() != video.OwnerID {
			respondError(ctx, w, http.StatusNotFound, "video does not exist")
			return
		}
	}

	respondJSON(ctx, w, http.StatusOK, video, "video fetched successfully")
}

type publishVideoRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Duration      float64 `json:"duration"`
	VideoPath     string  `json:"videoPath"`
	ThumbnailPath string  `json:"thumbnailPath"`
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
