package handlers

import (
	"context"

	"github.com/streamtube/backend/internal/models"
)

// UserStore captures the credential-store operations required by the
// session handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	UpdateRefreshToken(ctx context.Context, userID string, token *string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateProfile(ctx context.Context, userID, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, avatarURL string) (models.User, error)
	UpdateCoverImage(ctx context.Context, userID, coverImageURL string) (models.User, error)
}

// TokenManager issues and rotates the access/refresh token pair.
type TokenManager interface {
	IssuePair(ctx context.Context, userID string) (models.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// MediaStore resolves a locally staged asset into a durable URL.
type MediaStore interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// SubscriptionStore captures edge writes for the channel handlers.
type SubscriptionStore interface {
	Create(ctx context.Context, sub models.Subscription) error
	Delete(ctx context.Context, subscriberID, channelID string) error
}

// ChannelReader builds the channel profile view.
type ChannelReader interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
}

// HistoryStore captures the watch-history sequence operations.
type HistoryStore interface {
	Add(ctx context.Context, entry models.WatchEntry) error
	List(ctx context.Context, userID string) ([]models.HistoryEntry, error)
}

// VideoStore captures persistence for video metadata.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// VideoIngestor schedules background persistence of staged video files.
type VideoIngestor interface {
	Enqueue(ctx context.Context, videoID, localPath string) error
}
