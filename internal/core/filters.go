package core

import (
	"context"

	"fedipush-backend/internal/model"
)

type FilterService interface {
	// ActiveFilters returns the compiled filter list for one account.
	// Implementations may cache; mutation invalidates through the same
	// service.
	ActiveFilters(ctx context.Context, accountID string) ([]*model.CompiledFilter, error)
	CreateFilter(ctx context.Context, filter *model.CustomFilter) (*model.CustomFilter, error)
	DeleteFilter(ctx context.Context, filter *model.CustomFilter) error
}
