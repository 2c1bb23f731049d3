package service

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/conf"
	"fedipush-backend/internal/model"
	"fedipush-backend/pkg/errcode"
	"fedipush-backend/pkg/util"
)

type FollowReq struct {
	TargetID string `json:"target_id" binding:"required"`
	Notify   bool   `json:"notify"`
}

func CreateFollow(ctx context.Context, accountID string, param FollowReq) (*model.Follow, error) {
	target, err := ds.GetAccountByID(ctx, param.TargetID)
	if err != nil || !target.Available() {
		return nil, errcode.NotFound
	}
	blocked, err := ds.Blocking(ctx, target.ID, accountID)
	if err != nil {
		return nil, errcode.GetRelationsFailed.WithDetails(err.Error())
	}
	if blocked {
		return nil, errcode.NotFound
	}

	db := conf.MustMongoDB()
	if existing, err := new(model.Follow).GetEdge(ctx, db, accountID, target.ID); err == nil {
		return existing, nil
	} else if err != mongo.ErrNoDocuments {
		return nil, errcode.GetRelationsFailed.WithDetails(err.Error())
	}
	follow := &model.Follow{AccountID: accountID, TargetID: target.ID, Notify: param.Notify, ShowReblogs: true}
	if follow, err = follow.Create(ctx, db); err != nil {
		return nil, errcode.ServerError.WithDetails(err.Error())
	}
	return follow, nil
}

// RemoveFollow drops the follow edge and the target's memberships in the
// follower's lists in one transaction, then queues the home feed unmerge.
func RemoveFollow(ctx context.Context, accountID, targetID string) *errcode.Error {
	db := conf.MustMongoDB()
	err := util.MongoTransaction(ctx, db, func(ctx context.Context) error {
		follow := &model.Follow{AccountID: accountID, TargetID: targetID}
		if err := follow.Delete(ctx, db); err != nil {
			return err
		}
		return new(model.ListMember).DeleteByOwnerTarget(ctx, db, accountID, targetID)
	})
	if err != nil {
		return errcode.ServerError.WithDetails(err.Error())
	}
	OnFollowRemoved(accountID, targetID)
	return nil
}
