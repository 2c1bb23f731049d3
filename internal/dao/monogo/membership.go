package monogo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
)

var (
	_ core.MembershipService = (*membershipServant)(nil)
)

type membershipServant struct {
	db *mongo.Database
}

func newMembershipService(db *mongo.Database) core.MembershipService {
	return &membershipServant{
		db: db,
	}
}

func (s *membershipServant) GetCircle(ctx context.Context, circleID string) (*model.Circle, error) {
	circle := &model.Circle{ID: circleID}
	return circle.Get(ctx, s.db)
}

func (s *membershipServant) CircleMemberIDs(ctx context.Context, circleID string) ([]string, error) {
	return new(model.CircleMember).MemberIDs(ctx, s.db, circleID)
}

func (s *membershipServant) ListsContaining(ctx context.Context, authorID string) ([]*model.ListTarget, error) {
	return new(model.List).ListsContaining(ctx, s.db, authorID)
}
