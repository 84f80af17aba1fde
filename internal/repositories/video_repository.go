package repositories

import (
	"context"

	"github.com/streamtube/backend/internal/models"
)

// VideoRepository defines persistence for video metadata.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	// MarkPublished records the durable file location once the asset upload
	// succeeded and flips the published flag.
	MarkPublished(ctx context.Context, videoID, fileURL string) error
}

// HistoryRepository defines the watch-history sequence owned by a user.
type HistoryRepository interface {
	Add(ctx context.Context, entry models.WatchEntry) error
	// List returns the caller's watched videos most-recent-first, each with
	// its owner collapsed to a single optional object.
	List(ctx context.Context, userID string) ([]models.HistoryEntry, error)
}
