package monogo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
)

var (
	_ core.AccountService = (*accountServant)(nil)
)

type accountServant struct {
	db *mongo.Database
}

func newAccountService(db *mongo.Database) core.AccountService {
	return &accountServant{
		db: db,
	}
}

func (s *accountServant) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	account := &model.Account{ID: id}
	return account.Get(ctx, s.db)
}

func (s *accountServant) GetAccountsByIDs(ctx context.Context, ids []string) ([]*model.Account, error) {
	return (&model.Account{}).ListByIDs(ctx, s.db, ids)
}

func (s *accountServant) CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	return account.Create(ctx, s.db)
}

func (s *accountServant) ListLocalAccountIDs(ctx context.Context, sinceID string, limit int) ([]string, error) {
	return (&model.Account{}).ListLocalIDs(ctx, s.db, sinceID, limit)
}
