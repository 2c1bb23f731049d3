package core

import (
	"context"

	"fedipush-backend/internal/model"
)

type StatusService interface {
	GetStatusByID(ctx context.Context, id string) (*model.Status, error)
	GetStatuses(conditions *model.ConditionsT, offset, limit int) ([]*model.Status, error)
}

type StatusManageService interface {
	CreateStatus(ctx context.Context, status *model.Status) (*model.Status, error)
	DeleteStatus(ctx context.Context, status *model.Status) error
}
