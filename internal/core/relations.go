package core

import (
	"context"

	"fedipush-backend/internal/model"
)

// RelationService reads the directed relation graph. Single-edge lookups
// return current state; RelationsMap batch-preloads a snapshot for list
// contexts where brief staleness is acceptable.
type RelationService interface {
	Following(ctx context.Context, accountID, targetID string) (bool, error)
	FollowedBy(ctx context.Context, accountID, targetID string) (bool, error)
	Blocking(ctx context.Context, accountID, targetID string) (bool, error)
	Muting(ctx context.Context, accountID, targetID string) (bool, error)
	DomainBlocking(ctx context.Context, accountID, domain string) (bool, error)

	RelationsMap(ctx context.Context, viewerID string, authorIDs []string, domains []string) (*model.RelationSnapshot, error)

	FollowerIDs(ctx context.Context, targetID, sinceID string, limit int) ([]string, error)
	MutualIDs(ctx context.Context, accountID string) ([]string, error)
	GetFollow(ctx context.Context, accountID, targetID string) (*model.Follow, error)
	GetMute(ctx context.Context, accountID, targetID string) (*model.Mute, error)

	ServerDomainBlock(ctx context.Context, domain string) (*model.ServerDomainBlock, error)

	// NotifyPreference is the unified notify-flag lookup across follow and
	// list records.
	NotifyPreference(ctx context.Context, kind model.RelationKind, recipientID, sourceID string) (*model.NotificationPreference, error)
}

type MembershipService interface {
	GetCircle(ctx context.Context, circleID string) (*model.Circle, error)
	CircleMemberIDs(ctx context.Context, circleID string) ([]string, error)
	ListsContaining(ctx context.Context, authorID string) ([]*model.ListTarget, error)
}
