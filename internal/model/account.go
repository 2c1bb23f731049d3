package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Account struct {
	ID         string `json:"id"          bson:"_id"`
	CreatedOn  int64  `json:"created_on"  bson:"created_on"`
	ModifiedOn int64  `json:"modified_on" bson:"modified_on"`
	DeletedOn  int64  `json:"deleted_on"  bson:"deleted_on"`
	IsDel      int    `json:"is_del"      bson:"is_del"`
	Username   string `json:"username"    bson:"username"`
	// Domain is empty for local accounts.
	Domain    string `json:"domain"    bson:"domain"`
	Suspended bool   `json:"suspended" bson:"suspended"`
	Bio       string `json:"bio"       bson:"bio"`

	DefaultSearchability Searchability `json:"default_searchability" bson:"default_searchability"`
	// NoSearchabilitySoftware marks accounts from software with no
	// searchability concept; their searchability derives from visibility.
	NoSearchabilitySoftware bool `json:"no_searchability_software" bson:"no_searchability_software"`
	// ExcludeFromDomainBlocks opts the account's statuses out of
	// server-level domain block enforcement.
	ExcludeFromDomainBlocks bool `json:"exclude_from_domain_blocks" bson:"exclude_from_domain_blocks"`
}

func (a *Account) Table() string {
	return "account"
}

func (a *Account) Local() bool {
	return a.Domain == ""
}

func (a *Account) Available() bool {
	return a != nil && !a.Suspended && a.IsDel == 0
}

func (a *Account) Create(ctx context.Context, db *mongo.Database) (*Account, error) {
	now := time.Now().Unix()
	a.CreatedOn = now
	a.ModifiedOn = now
	if a.ID == "" {
		a.ID = NewID()
	}
	if _, err := db.Collection(a.Table()).InsertOne(ctx, &a); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Account) Get(ctx context.Context, db *mongo.Database) (*Account, error) {
	if a.ID == "" {
		return nil, mongo.ErrNoDocuments
	}
	filter := bson.D{{Key: "_id", Value: a.ID}, {Key: "is_del", Value: 0}}
	res := db.Collection(a.Table()).FindOne(ctx, filter)
	if res.Err() != nil {
		return nil, res.Err()
	}

	var account Account
	if err := res.Decode(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (a *Account) Update(ctx context.Context, db *mongo.Database) error {
	a.ModifiedOn = time.Now().Unix()
	filter := bson.D{{Key: "_id", Value: a.ID}, {Key: "is_del", Value: 0}}
	update := bson.M{"$set": a}
	_, err := db.Collection(a.Table()).UpdateOne(ctx, filter, update)
	return err
}

// ListByIDs fetches a batch of accounts in one query.
func (a *Account) ListByIDs(ctx context.Context, db *mongo.Database, ids []string) ([]*Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := bson.M{"_id": bson.M{"$in": ids}, "is_del": 0}
	cursor, err := db.Collection(a.Table()).Find(ctx, query)
	if err != nil {
		return nil, err
	}
	var accounts []*Account
	for cursor.Next(ctx) {
		var account Account
		if err = cursor.Decode(&account); err != nil {
			return nil, err
		}
		accounts = append(accounts, &account)
	}
	return accounts, nil
}

// ListLocalIDs pages local account ids in ascending id order. Pass the last
// id of the previous page as sinceID, empty for the first page.
func (a *Account) ListLocalIDs(ctx context.Context, db *mongo.Database, sinceID string, limit int) ([]string, error) {
	query := bson.M{"domain": "", "is_del": 0, "suspended": false}
	if sinceID != "" {
		query["_id"] = bson.M{"$gt": sinceID}
	}
	finds := options.Find().
		SetSort(bson.M{"_id": 1}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1})
	cursor, err := db.Collection(a.Table()).Find(ctx, query, finds)
	if err != nil {
		return nil, err
	}
	var ids []string
	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err = cursor.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, nil
}
