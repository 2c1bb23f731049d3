package monogo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
)

var (
	_ core.RelationService = (*relationServant)(nil)
)

type relationServant struct {
	db *mongo.Database
}

func newRelationService(db *mongo.Database) core.RelationService {
	return &relationServant{
		db: db,
	}
}

func (s *relationServant) exists(ctx context.Context, table string, query bson.M) (bool, error) {
	query["is_del"] = 0
	count, err := s.db.Collection(table).CountDocuments(ctx, query, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *relationServant) Following(ctx context.Context, accountID, targetID string) (bool, error) {
	return s.exists(ctx, new(model.Follow).Table(), bson.M{"account_id": accountID, "target_id": targetID})
}

func (s *relationServant) FollowedBy(ctx context.Context, accountID, targetID string) (bool, error) {
	return s.exists(ctx, new(model.Follow).Table(), bson.M{"account_id": targetID, "target_id": accountID})
}

func (s *relationServant) Blocking(ctx context.Context, accountID, targetID string) (bool, error) {
	return s.exists(ctx, new(model.Block).Table(), bson.M{"account_id": accountID, "target_id": targetID})
}

func (s *relationServant) Muting(ctx context.Context, accountID, targetID string) (bool, error) {
	return s.exists(ctx, new(model.Mute).Table(), bson.M{"account_id": accountID, "target_id": targetID})
}

func (s *relationServant) DomainBlocking(ctx context.Context, accountID, domain string) (bool, error) {
	if domain == "" {
		return false, nil
	}
	return s.exists(ctx, new(model.AccountDomainBlock).Table(), bson.M{"account_id": accountID, "domain": domain})
}

// RelationsMap preloads every relation kind between one viewer and a batch
// of authors with one query per kind.
func (s *relationServant) RelationsMap(ctx context.Context, viewerID string, authorIDs []string, domains []string) (*model.RelationSnapshot, error) {
	snap := model.NewRelationSnapshot(viewerID)
	snap.Cover(authorIDs...)
	snap.Cover(domains...)

	collect := func(table string, query bson.M, kind model.RelationKind, key func(bson.M) string) error {
		query["is_del"] = 0
		cursor, err := s.db.Collection(table).Find(ctx, query)
		if err != nil {
			return err
		}
		for cursor.Next(ctx) {
			var row bson.M
			if err = cursor.Decode(&row); err != nil {
				return err
			}
			snap.Set(kind, key(row), true)
		}
		return nil
	}

	targetID := func(row bson.M) string { id, _ := row["target_id"].(string); return id }
	accountID := func(row bson.M) string { id, _ := row["account_id"].(string); return id }
	domain := func(row bson.M) string { d, _ := row["domain"].(string); return d }

	followTable := new(model.Follow).Table()
	blockTable := new(model.Block).Table()

	if err := collect(followTable,
		bson.M{"account_id": viewerID, "target_id": bson.M{"$in": authorIDs}},
		model.RelationFollowing, targetID); err != nil {
		return nil, err
	}
	if err := collect(followTable,
		bson.M{"account_id": bson.M{"$in": authorIDs}, "target_id": viewerID},
		model.RelationFollowedBy, accountID); err != nil {
		return nil, err
	}
	if err := collect(blockTable,
		bson.M{"account_id": viewerID, "target_id": bson.M{"$in": authorIDs}},
		model.RelationBlocking, targetID); err != nil {
		return nil, err
	}
	if err := collect(blockTable,
		bson.M{"account_id": bson.M{"$in": authorIDs}, "target_id": viewerID},
		model.RelationBlockedBy, accountID); err != nil {
		return nil, err
	}
	if err := collect(new(model.Mute).Table(),
		bson.M{"account_id": viewerID, "target_id": bson.M{"$in": authorIDs}},
		model.RelationMuting, targetID); err != nil {
		return nil, err
	}
	if len(domains) > 0 {
		if err := collect(new(model.AccountDomainBlock).Table(),
			bson.M{"account_id": viewerID, "domain": bson.M{"$in": domains}},
			model.RelationDomainBlocking, domain); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *relationServant) FollowerIDs(ctx context.Context, targetID, sinceID string, limit int) ([]string, error) {
	return new(model.Follow).FollowerIDs(ctx, s.db, targetID, sinceID, limit)
}

func (s *relationServant) MutualIDs(ctx context.Context, accountID string) ([]string, error) {
	return new(model.Follow).MutualIDs(ctx, s.db, accountID)
}

func (s *relationServant) GetFollow(ctx context.Context, accountID, targetID string) (*model.Follow, error) {
	return new(model.Follow).GetEdge(ctx, s.db, accountID, targetID)
}

func (s *relationServant) GetMute(ctx context.Context, accountID, targetID string) (*model.Mute, error) {
	filter := bson.D{{Key: "account_id", Value: accountID}, {Key: "target_id", Value: targetID}, {Key: "is_del", Value: 0}}
	res := s.db.Collection(new(model.Mute).Table()).FindOne(ctx, filter)
	if res.Err() != nil {
		return nil, res.Err()
	}
	var mute model.Mute
	if err := res.Decode(&mute); err != nil {
		return nil, err
	}
	return &mute, nil
}

func (s *relationServant) ServerDomainBlock(ctx context.Context, domain string) (*model.ServerDomainBlock, error) {
	if domain == "" {
		return nil, mongo.ErrNoDocuments
	}
	return new(model.ServerDomainBlock).GetByDomain(ctx, s.db, domain)
}

func (s *relationServant) NotifyPreference(ctx context.Context, kind model.RelationKind, recipientID, sourceID string) (*model.NotificationPreference, error) {
	return model.GetNotifyPreference(ctx, s.db, kind, recipientID, sourceID)
}
