package service

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
)

// AudienceResolver computes the concrete recipient set for one status from
// already-materialized relationship edges. It performs no network I/O and
// its output always contains the author. Resolution failures narrow the
// audience instead of erroring: a vanished circle or ancestor yields the
// author-only set.
type AudienceResolver struct {
	statuses   core.StatusService
	accounts   core.AccountService
	relations  core.RelationService
	membership core.MembershipService
}

func NewAudienceResolver(ds core.DataService) *AudienceResolver {
	return &AudienceResolver{
		statuses:   ds,
		accounts:   ds,
		relations:  ds,
		membership: ds,
	}
}

// Resolve dispatches on the status visibility. For broadcast visibilities
// the local population is not materialized here; Broadcast is set and
// LocalIDs holds only the direct targets.
func (r *AudienceResolver) Resolve(ctx context.Context, status *model.Status, author *model.Account) (*model.Audience, error) {
	set := map[string]struct{}{author.ID: {}}

	switch status.Visibility {
	case model.VisibilityPublic, model.VisibilityUnlisted, model.VisibilityPublicUnlisted, model.VisibilityLogin:
		for _, id := range status.ActiveMentionIDs() {
			set[id] = struct{}{}
		}
		return r.build(ctx, status, author, set, true)
	case model.VisibilityPrivate:
		followers, err := r.relations.FollowerIDs(ctx, author.ID, "", 0)
		if err != nil {
			return nil, err
		}
		for _, id := range followers {
			set[id] = struct{}{}
		}
	case model.VisibilityLimited:
		r.resolveLimited(ctx, status, author, set)
	case model.VisibilityDirect:
		for _, id := range status.ActiveMentionIDs() {
			set[id] = struct{}{}
		}
	}
	return r.build(ctx, status, author, set, false)
}

func (r *AudienceResolver) resolveLimited(ctx context.Context, status *model.Status, author *model.Account, set map[string]struct{}) {
	switch status.LimitedScope {
	case model.LimitedScopeCircle, model.LimitedScopeMutual:
		// the audience was pinned as silent mentions at creation; the
		// membership reads below cover statuses that predate pinning
		for _, id := range status.AllMentionIDs() {
			set[id] = struct{}{}
		}
	}
	switch status.LimitedScope {
	case model.LimitedScopeCircle:
		if _, err := r.membership.GetCircle(ctx, status.CircleID); err != nil {
			// circle deleted between post and delivery: only the pinned
			// mentions, if any, remain addressed
			logrus.Warnf("AudienceResolver circle %s for status %s unavailable: %v", status.CircleID, status.ID, err)
			return
		}
		members, err := r.membership.CircleMemberIDs(ctx, status.CircleID)
		if err != nil {
			logrus.Warnf("AudienceResolver circle %s members err: %v", status.CircleID, err)
			return
		}
		for _, id := range members {
			set[id] = struct{}{}
		}
	case model.LimitedScopeMutual:
		mutuals, err := r.relations.MutualIDs(ctx, author.ID)
		if err != nil {
			logrus.Warnf("AudienceResolver mutuals of %s err: %v", author.ID, err)
			return
		}
		for _, id := range mutuals {
			set[id] = struct{}{}
		}
	case model.LimitedScopeReply:
		ancestor, err := r.statuses.GetStatusByID(ctx, status.ReplyToID)
		if err != nil {
			logrus.Warnf("AudienceResolver ancestor %s of status %s unavailable: %v", status.ReplyToID, status.ID, err)
			return
		}
		original := map[string]struct{}{ancestor.AuthorID: {}}
		for _, id := range ancestor.AllMentionIDs() {
			original[id] = struct{}{}
		}
		for _, id := range status.AllMentionIDs() {
			if _, ok := original[id]; ok {
				set[id] = struct{}{}
			}
		}
	case model.LimitedScopeNone:
		for _, id := range status.AllMentionIDs() {
			set[id] = struct{}{}
		}
	}
}

// build splits the resolved ids into local recipients and remote delivery
// domains. Ids without a live account row are dropped; the author is always
// kept.
func (r *AudienceResolver) build(ctx context.Context, status *model.Status, author *model.Account, set map[string]struct{}, broadcast bool) (*model.Audience, error) {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	accounts, err := r.accounts.GetAccountsByIDs(ctx, ids)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, err
	}

	audience := &model.Audience{
		StatusID:  status.ID,
		Broadcast: broadcast,
	}
	domains := map[string]struct{}{}
	seenAuthor := false
	for _, account := range accounts {
		if account.ID == author.ID {
			seenAuthor = true
		}
		if account.Local() {
			audience.LocalIDs = append(audience.LocalIDs, account.ID)
		} else {
			domains[account.Domain] = struct{}{}
		}
	}
	if !seenAuthor {
		if author.Local() {
			audience.LocalIDs = append(audience.LocalIDs, author.ID)
		} else {
			domains[author.Domain] = struct{}{}
		}
	}
	for domain := range domains {
		audience.Domains = append(audience.Domains, domain)
	}
	return audience, nil
}
