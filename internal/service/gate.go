package service

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
)

// RelationshipGate decides whether a viewer may see an already-published
// status. It is total: every (viewer, status) pair yields a boolean, and a
// failed relation lookup reads as "may not see". Callers render a denial as
// not-found so restricted content is indistinguishable from absent content.
type RelationshipGate struct {
	relations core.RelationService
}

func NewRelationshipGate(relations core.RelationService) *RelationshipGate {
	return &RelationshipGate{
		relations: relations,
	}
}

// Authorize evaluates the visibility checks top to bottom with a
// short-circuit on the first applicable rule. viewer may be nil for an
// unauthenticated request. snap, when non-nil and covering the author, is
// used instead of live lookups; pass nil on the fan-out write path so a
// fresh block takes effect within the same gate-and-write sequence.
func (g *RelationshipGate) Authorize(ctx context.Context, viewer *model.Account, status *model.Status, author *model.Account, snap *model.RelationSnapshot) bool {
	if !author.Available() {
		return false
	}

	if status.Visibility.RequiresMention() {
		if viewer == nil {
			return false
		}
		if viewer.ID == author.ID {
			return true
		}
		// limited admits every addressed account, silent mentions
		// included; direct admits only the notified ones
		return status.Mentioned(viewer.ID, status.Visibility == model.VisibilityLimited)
	}

	if status.Visibility == model.VisibilityLogin {
		return viewer != nil
	}

	if status.Visibility == model.VisibilityPrivate {
		if viewer == nil {
			return false
		}
		if viewer.ID == author.ID || status.Mentioned(viewer.ID, true) {
			return true
		}
		following, ok := g.edge(ctx, snap, author.ID, model.RelationFollowing, func() (bool, error) {
			return g.relations.Following(ctx, viewer.ID, author.ID)
		})
		return ok && following
	}

	// public family
	if viewer == nil || viewer.ID == author.ID {
		return true
	}
	if blocked, ok := g.edge(ctx, snap, author.ID, model.RelationBlockedBy, func() (bool, error) {
		return g.relations.Blocking(ctx, author.ID, viewer.ID)
	}); !ok || blocked {
		return false
	}
	if blocking, ok := g.edge(ctx, snap, author.ID, model.RelationBlocking, func() (bool, error) {
		return g.relations.Blocking(ctx, viewer.ID, author.ID)
	}); !ok || blocking {
		return false
	}
	if author.Domain != "" {
		if blocked, ok := g.edge(ctx, snap, author.Domain, model.RelationDomainBlocking, func() (bool, error) {
			return g.relations.DomainBlocking(ctx, viewer.ID, author.Domain)
		}); !ok || blocked {
			return false
		}
	}
	if viewer.Domain != "" {
		blocked, err := g.relations.DomainBlocking(ctx, author.ID, viewer.Domain)
		if err != nil {
			logrus.Errorf("RelationshipGate domain block lookup %s/%s err: %v", author.ID, viewer.Domain, err)
			return false
		}
		if blocked {
			return false
		}
		if g.serverRejects(ctx, viewer, status, author) {
			return false
		}
	}
	return true
}

// edge reads one relation edge, preferring the snapshot when it covers the
// key. ok is false when a live lookup failed; callers deny.
func (g *RelationshipGate) edge(ctx context.Context, snap *model.RelationSnapshot, key string, kind model.RelationKind, lookup func() (bool, error)) (val, ok bool) {
	if snap != nil && snap.Covers(key) {
		switch kind {
		case model.RelationFollowing:
			return snap.Following(key), true
		case model.RelationFollowedBy:
			return snap.FollowedBy(key), true
		case model.RelationBlocking:
			return snap.Blocking(key), true
		case model.RelationBlockedBy:
			return snap.BlockedBy(key), true
		case model.RelationMuting:
			return snap.Muting(key), true
		case model.RelationDomainBlocking:
			return snap.DomainBlocking(key), true
		}
	}
	val, err := lookup()
	if err != nil {
		logrus.Errorf("RelationshipGate %s lookup for %s err: %v", kind, key, err)
		return false, false
	}
	return val, true
}

// serverRejects applies the instance-level domain policy to a remote
// viewer, honoring the author's opt-out.
func (g *RelationshipGate) serverRejects(ctx context.Context, viewer *model.Account, status *model.Status, author *model.Account) bool {
	if author.ExcludeFromDomainBlocks {
		return false
	}
	block, err := g.relations.ServerDomainBlock(ctx, viewer.Domain)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false
		}
		logrus.Errorf("RelationshipGate server domain block lookup %s err: %v", viewer.Domain, err)
		return true
	}
	return block.AppliesTo(status)
}
