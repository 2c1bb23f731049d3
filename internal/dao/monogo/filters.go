package monogo

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
)

var (
	_ core.FilterService = (*filterServant)(nil)
)

type filterServant struct {
	db *mongo.Database
}

func newFilterService(db *mongo.Database) core.FilterService {
	return &filterServant{
		db: db,
	}
}

func (s *filterServant) ActiveFilters(ctx context.Context, accountID string) ([]*model.CompiledFilter, error) {
	rows, err := new(model.CustomFilter).ListByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	compiled := make([]*model.CompiledFilter, 0, len(rows))
	for _, row := range rows {
		cf, err := row.Compile()
		if err != nil {
			// a single broken phrase must not disable the rest
			logrus.Errorf("filterServant.ActiveFilters compile %s err: %v", row.ID, err)
			continue
		}
		compiled = append(compiled, cf)
	}
	return compiled, nil
}

func (s *filterServant) CreateFilter(ctx context.Context, filter *model.CustomFilter) (*model.CustomFilter, error) {
	return filter.Create(ctx, s.db)
}

func (s *filterServant) DeleteFilter(ctx context.Context, filter *model.CustomFilter) error {
	return filter.Delete(ctx, s.db)
}
