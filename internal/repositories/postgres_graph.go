package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/streamtube/backend/internal/db"
	"github.com/streamtube/backend/internal/logging"
	"github.com/streamtube/backend/internal/models"
)

// PostgresSubscriptionRepository persists subscriber-to-channel edges and
// answers the channel profile view over them.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Create persists a new subscription edge. Duplicate (subscriber, channel)
// pairs are not rejected at this layer.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub models.Subscription) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, sub.ID, sub.SubscriberID, sub.ChannelID, sub.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert subscription: %w", err)
	}

	return nil
}

// Delete removes every edge for the (subscriber, channel) pair.
func (r *PostgresSubscriptionRepository) Delete(ctx context.Context, subscriberID, channelID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ChannelProfile resolves a channel by username and derives subscriber
// counts plus whether the viewer is among the channel's subscribers. An
// empty viewerID yields isSubscribed = false.
func (r *PostgresSubscriptionRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	ctx, span := logging.StartSpan(ctx, "channel_profile_query")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// A NULL viewer never matches the subscriber comparison, so anonymous
	// requests fall out as is_subscribed = false.
	var viewer any
	if viewerID != "" {
		viewer = viewerID
	}

	row := conn.QueryRow(ctx, `
        SELECT
            u.full_name,
            u.username,
            u.email,
            u.avatar_url,
            u.cover_image_url,
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id)    AS subscribers_count,
            (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
            EXISTS (
                SELECT 1 FROM subscriptions s
                WHERE s.channel_id = u.id AND s.subscriber_id = $2
            ) AS is_subscribed
        FROM users u
        WHERE u.username = lower($1)
    `, username, viewer)

	var profile models.ChannelProfile
	if err := row.Scan(
		&profile.FullName,
		&profile.Username,
		&profile.Email,
		&profile.AvatarURL,
		&profile.CoverImageURL,
		&profile.SubscribersCount,
		&profile.ChannelsSubscribedCount,
		&profile.IsSubscribed,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// PostgresHistoryRepository persists and reads the per-user watch history.
type PostgresHistoryRepository struct {
	pool db.Pool
}

// NewPostgresHistoryRepository constructs a history repository backed by PostgreSQL.
func NewPostgresHistoryRepository(pool db.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

// Add appends a watch entry. Re-watching a video moves it to the front of
// the sequence instead of duplicating it.
func (r *PostgresHistoryRepository) Add(ctx context.Context, entry models.WatchEntry) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id)
        DO UPDATE SET watched_at = EXCLUDED.watched_at
    `, entry.UserID, entry.VideoID, entry.WatchedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert watch entry: %w", err)
	}

	return nil
}

// List returns the caller's watched videos most-recent-first. Each video's
// owner is resolved to the minimal public shape; the join result is
// collapsed into a single optional object.
func (r *PostgresHistoryRepository) List(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	ctx, span := logging.StartSpan(ctx, "watch_history_query")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT
            v.id, v.file_url, v.thumbnail_url, v.title, v.description, v.duration, v.views,
            h.watched_at,
            o.full_name, o.username, o.avatar_url
        FROM watch_history h
        JOIN videos v ON v.id = h.video_id
        LEFT JOIN users o ON o.id = v.owner_id
        WHERE h.user_id = $1
        ORDER BY h.watched_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var (
			entry         models.HistoryEntry
			ownerFullName sql.NullString
			ownerUsername sql.NullString
			ownerAvatar   sql.NullString
		)

		if err := rows.Scan(
			&entry.ID, &entry.FileURL, &entry.ThumbnailURL, &entry.Title, &entry.Description,
			&entry.Duration, &entry.Views,
			&entry.WatchedAt,
			&ownerFullName, &ownerUsername, &ownerAvatar,
		); err != nil {
			return nil, fmt.Errorf("scan watch entry: %w", err)
		}

		if ownerUsername.Valid {
			entry.Owner = &models.VideoOwner{
				FullName:  ownerFullName.String,
				Username:  ownerUsername.String,
				AvatarURL: ownerAvatar.String,
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return entries, nil
}

var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
var _ ChannelReader = (*PostgresSubscriptionRepository)(nil)
var _ HistoryRepository = (*PostgresHistoryRepository)(nil)
