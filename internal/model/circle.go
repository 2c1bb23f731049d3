package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Circle is an author-curated list of accounts that is a valid target for
// limited-visibility statuses.
type Circle struct {
	ID        string `json:"id"         bson:"_id"`
	CreatedOn int64  `json:"created_on" bson:"created_on"`
	IsDel     int    `json:"is_del"     bson:"is_del"`
	OwnerID   string `json:"owner_id"   bson:"owner_id"`
	Name      string `json:"name"       bson:"name"`
}

func (c *Circle) Table() string {
	return "circle"
}

type CircleMember struct {
	ID        string `json:"id"         bson:"_id"`
	CreatedOn int64  `json:"created_on" bson:"created_on"`
	IsDel     int    `json:"is_del"     bson:"is_del"`
	CircleID  string `json:"circle_id"  bson:"circle_id"`
	AccountID string `json:"account_id" bson:"account_id"`
}

func (m *CircleMember) Table() string {
	return "circle_member"
}

func (c *Circle) Create(ctx context.Context, db *mongo.Database) (*Circle, error) {
	c.CreatedOn = time.Now().Unix()
	if c.ID == "" {
		c.ID = NewID()
	}
	if _, err := db.Collection(c.Table()).InsertOne(ctx, &c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Circle) Get(ctx context.Context, db *mongo.Database) (*Circle, error) {
	if c.ID == "" {
		return nil, mongo.ErrNoDocuments
	}
	filter := bson.D{{Key: "_id", Value: c.ID}, {Key: "is_del", Value: 0}}
	res := db.Collection(c.Table()).FindOne(ctx, filter)
	if res.Err() != nil {
		return nil, res.Err()
	}
	var circle Circle
	if err := res.Decode(&circle); err != nil {
		return nil, err
	}
	return &circle, nil
}

func (c *Circle) Delete(ctx context.Context, db *mongo.Database) error {
	filter := bson.D{{Key: "_id", Value: c.ID}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "is_del", Value: 1}}}}
	res := db.Collection(c.Table()).FindOneAndUpdate(ctx, filter, update)
	return res.Err()
}

func (m *CircleMember) MemberIDs(ctx context.Context, db *mongo.Database, circleID string) ([]string, error) {
	query := bson.M{"circle_id": circleID, "is_del": 0}
	cursor, err := db.Collection(m.Table()).Find(ctx, query)
	if err != nil {
		return nil, err
	}
	var ids []string
	for cursor.Next(ctx) {
		var member CircleMember
		if err = cursor.Decode(&member); err != nil {
			return nil, err
		}
		ids = append(ids, member.AccountID)
	}
	return ids, nil
}

// List is an account-owned feed of selected authors, delivered into its own
// recipient-scoped store next to the home feed.
type List struct {
	ID        string `json:"id"         bson:"_id"`
	CreatedOn int64  `json:"created_on" bson:"created_on"`
	IsDel     int    `json:"is_del"     bson:"is_del"`
	OwnerID   string `json:"owner_id"   bson:"owner_id"`
	Title     string `json:"title"      bson:"title"`
	Notify    bool   `json:"notify"     bson:"notify"`
}

func (l *List) Table() string {
	return "list"
}

type ListMember struct {
	ID        string `json:"id"         bson:"_id"`
	CreatedOn int64  `json:"created_on" bson:"created_on"`
	IsDel     int    `json:"is_del"     bson:"is_del"`
	ListID    string `json:"list_id"    bson:"list_id"`
	AccountID string `json:"account_id" bson:"account_id"`
}

func (m *ListMember) Table() string {
	return "list_member"
}

// DeleteByOwnerTarget removes targetID from every list ownerID owns.
// List membership presumes a follow edge, so an unfollow sweeps it.
func (m *ListMember) DeleteByOwnerTarget(ctx context.Context, db *mongo.Database, ownerID, targetID string) error {
	cursor, err := db.Collection(new(List).Table()).Find(ctx, bson.M{"owner_id": ownerID, "is_del": 0})
	if err != nil {
		return err
	}
	var listIDs []string
	for cursor.Next(ctx) {
		var list List
		if err = cursor.Decode(&list); err != nil {
			return err
		}
		listIDs = append(listIDs, list.ID)
	}
	if len(listIDs) == 0 {
		return nil
	}
	filter := bson.M{"list_id": bson.M{"$in": listIDs}, "account_id": targetID}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "is_del", Value: 1}}}}
	_, err = db.Collection(m.Table()).UpdateMany(ctx, filter, update)
	return err
}

// ListTarget is a list feed that must receive an author's statuses. The
// owner's notify flag is read separately through GetNotifyPreference.
type ListTarget struct {
	ListID  string
	OwnerID string
}

// ListsContaining returns list feeds whose member set includes authorID.
func (l *List) ListsContaining(ctx context.Context, db *mongo.Database, authorID string) ([]*ListTarget, error) {
	query := bson.M{"account_id": authorID, "is_del": 0}
	cursor, err := db.Collection(new(ListMember).Table()).Find(ctx, query)
	if err != nil {
		return nil, err
	}
	var listIDs []string
	for cursor.Next(ctx) {
		var member ListMember
		if err = cursor.Decode(&member); err != nil {
			return nil, err
		}
		listIDs = append(listIDs, member.ListID)
	}
	if len(listIDs) == 0 {
		return nil, nil
	}

	cursor, err = db.Collection(l.Table()).Find(ctx, bson.M{"_id": bson.M{"$in": listIDs}, "is_del": 0})
	if err != nil {
		return nil, err
	}
	var targets []*ListTarget
	for cursor.Next(ctx) {
		var list List
		if err = cursor.Decode(&list); err != nil {
			return nil, err
		}
		targets = append(targets, &ListTarget{ListID: list.ID, OwnerID: list.OwnerID})
	}
	return targets, nil
}
