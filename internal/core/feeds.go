package core

import (
	"context"

	"fedipush-backend/internal/model"
)

// FeedService is the recipient-scoped ordered store. Entries are keyed by
// (feed, status id); Put is an idempotent upsert and reports whether the
// entry was newly created, which drives at-most-once notification.
type FeedService interface {
	Put(ctx context.Context, feed model.FeedRef, entry *model.FeedEntry) (created bool, err error)
	Remove(ctx context.Context, feed model.FeedRef, statusID string) error
	// Range returns entries with maxID > id > minID, newest first, at most
	// limit. Empty bounds are open.
	Range(ctx context.Context, feed model.FeedRef, maxID, minID string, limit int) ([]*model.FeedEntry, error)
	// RemoveStatus deletes the status from every feed it was delivered to.
	RemoveStatus(ctx context.Context, statusID string) error
	// RemoveMany drops the given statuses from one feed, for
	// unfollow-triggered cleanup.
	RemoveMany(ctx context.Context, feed model.FeedRef, statusIDs []string) error
}

// NotifyService is the external notification delivery boundary.
type NotifyService interface {
	Raise(ctx context.Context, notification *model.Notification) error
}
