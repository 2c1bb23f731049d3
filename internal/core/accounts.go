package core

import (
	"context"

	"fedipush-backend/internal/model"
)

type AccountService interface {
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountsByIDs(ctx context.Context, ids []string) ([]*model.Account, error)
	CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error)
	// ListLocalAccountIDs pages active local account ids in ascending id
	// order for broadcast fan-out. Empty sinceID starts the first page.
	ListLocalAccountIDs(ctx context.Context, sinceID string, limit int) ([]string, error)
}
