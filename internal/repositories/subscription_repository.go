package repositories

import (
	"context"

	"github.com/streamtube/backend/internal/models"
)

// SubscriptionRepository defines data access for subscriber-to-channel edges.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub models.Subscription) error
	// Delete removes the edge identified by the (subscriber, channel) pair.
	Delete(ctx context.Context, subscriberID, channelID string) error
}

// ChannelReader builds the channel profile read view: identity fields,
// subscriber counts, and the viewer-relative subscription flag.
type ChannelReader interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
}
