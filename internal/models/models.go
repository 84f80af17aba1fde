package models

import "time"

// User represents an account within the StreamTube platform. A channel is
// simply a User viewed from the outside.
type User struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	AvatarURL     string
	CoverImageURL string
	Password      string
	RefreshToken  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// View projects a user for callers outside the trust boundary. The password
// hash and the stored refresh token never cross it.
func (u User) View() UserView {
	return UserView{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// UserView is the outward-facing projection of a User.
type UserView struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Subscription is an edge from a subscriber to a channel. Both ends are users.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// Video stores media metadata for an upload. A video stays unpublished until
// its file asset has been persisted to durable storage.
type Video struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	FileURL      string    `json:"videoFile"`
	ThumbnailURL string    `json:"thumbnail"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	IsPublished  bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// WatchEntry records that a user watched a video at a point in time.
type WatchEntry struct {
	UserID    string
	VideoID   string
	WatchedAt time.Time
}

// TokenPair groups the bearer credentials issued to an authenticated user.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ChannelProfile is the fixed projection returned for a channel page:
// identity fields plus subscriber counts and the viewer-relative
// subscription flag.
type ChannelProfile struct {
	FullName                string `json:"fullName"`
	Username                string `json:"username"`
	Email                   string `json:"email"`
	AvatarURL               string `json:"avatar"`
	CoverImageURL           string `json:"coverImage"`
	SubscribersCount        int64  `json:"subscribersCount"`
	ChannelsSubscribedCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed            bool   `json:"isSubscribed"`
}

// VideoOwner is the minimal public shape of a video's owner embedded in
// watch history entries.
type VideoOwner struct {
	FullName  string `json:"fullName"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar"`
}

// HistoryEntry is one watched video with its owner collapsed to a single
// object rather than a list.
type HistoryEntry struct {
	ID           string      `json:"id"`
	FileURL      string      `json:"videoFile"`
	ThumbnailURL string      `json:"thumbnail"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Duration     float64     `json:"duration"`
	Views        int64       `json:"views"`
	WatchedAt    time.Time   `json:"watchedAt"`
	Owner        *VideoOwner `json:"owner"`
}
