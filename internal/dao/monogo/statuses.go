package monogo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
)

var (
	_ core.StatusService       = (*statusServant)(nil)
	_ core.StatusManageService = (*statusManageServant)(nil)
)

type statusServant struct {
	db *mongo.Database
}

type statusManageServant struct {
	db *mongo.Database
}

func newStatusService(db *mongo.Database) core.StatusService {
	return &statusServant{
		db: db,
	}
}

func newStatusManageService(db *mongo.Database) core.StatusManageService {
	return &statusManageServant{
		db: db,
	}
}

func (s *statusServant) GetStatusByID(ctx context.Context, id string) (*model.Status, error) {
	status := &model.Status{ID: id}
	return status.Get(ctx, s.db)
}

func (s *statusServant) GetStatuses(conditions *model.ConditionsT, offset, limit int) ([]*model.Status, error) {
	return (&model.Status{}).List(s.db, conditions, offset, limit)
}

func (s *statusManageServant) CreateStatus(ctx context.Context, status *model.Status) (*model.Status, error) {
	return status.Create(ctx, s.db)
}

func (s *statusManageServant) DeleteStatus(ctx context.Context, status *model.Status) error {
	return status.Delete(ctx, s.db)
}
