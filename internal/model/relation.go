package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Follow is a directed edge: AccountID follows TargetID.
type Follow struct {
	ID        string `json:"id"         bson:"_id"`
	CreatedOn int64  `json:"created_on" bson:"created_on"`
	IsDel     int    `json:"is_del"     bson:"is_del"`
	AccountID string `json:"account_id" bson:"account_id"`
	TargetID  string `json:"target_id"  bson:"target_id"`
	// Notify raises a notification for every new status of TargetID.
	Notify      bool `json:"notify"       bson:"notify"`
	ShowReblogs bool `json:"show_reblogs" bson:"show_reblogs"`
}

func (f *Follow) Table() string {
	return "follow"
}

// Block is a directed edge: AccountID blocks TargetID.
type Block struct {
	ID        string `json:"id"         bson:"_id"`
	CreatedOn int64  `json:"created_on" bson:"created_on"`
	IsDel     int    `json:"is_del"     bson:"is_del"`
	AccountID string `json:"account_id" bson:"account_id"`
	TargetID  string `json:"target_id"  bson:"target_id"`
}

func (b *Block) Table() string {
	return "block"
}

// Mute is a directed edge: AccountID mutes TargetID. A mute never denies
// visibility; it suppresses feed insertion, or only notifications when
// HideNotifications is the sole effect requested.
type Mute struct {
	ID                string `json:"id"                 bson:"_id"`
	CreatedOn         int64  `json:"created_on"         bson:"created_on"`
	IsDel             int    `json:"is_del"             bson:"is_del"`
	AccountID         string `json:"account_id"         bson:"account_id"`
	TargetID          string `json:"target_id"          bson:"target_id"`
	HideNotifications bool   `json:"hide_notifications" bson:"hide_notifications"`
	NotificationsOnly bool   `json:"notifications_only" bson:"notifications_only"`
}

func (m *Mute) Table() string {
	return "mute"
}

// AccountDomainBlock is an account-level edge: AccountID blocks every
// account on Domain.
type AccountDomainBlock struct {
	ID        string `json:"id"         bson:"_id"`
	CreatedOn int64  `json:"created_on" bson:"created_on"`
	IsDel     int    `json:"is_del"     bson:"is_del"`
	AccountID string `json:"account_id" bson:"account_id"`
	Domain    string `json:"domain"     bson:"domain"`
}

func (d *AccountDomainBlock) Table() string {
	return "account_domain_block"
}

// ServerDomainBlock is an instance-level inbound policy against a remote
// domain. The narrowing flags restrict the block to risky content; with no
// flag set the block is unconditional.
type ServerDomainBlock struct {
	ID                 string `json:"id"                  bson:"_id"`
	CreatedOn          int64  `json:"created_on"          bson:"created_on"`
	IsDel              int    `json:"is_del"              bson:"is_del"`
	Domain             string `json:"domain"              bson:"domain"`
	RejectMediaOnly    bool   `json:"reject_media_only"    bson:"reject_media_only"`
	RejectSensitiveOnly bool  `json:"reject_sensitive_only" bson:"reject_sensitive_only"`
	RejectUnsearchable bool   `json:"reject_unsearchable" bson:"reject_unsearchable"`
}

func (d *ServerDomainBlock) Table() string {
	return "server_domain_block"
}

// AppliesTo reports whether the block withholds the given status.
func (d *ServerDomainBlock) AppliesTo(s *Status) bool {
	if !d.RejectMediaOnly && !d.RejectSensitiveOnly && !d.RejectUnsearchable {
		return true
	}
	if d.RejectMediaOnly && s.HasMedia {
		return true
	}
	if d.RejectSensitiveOnly && s.Sensitive {
		return true
	}
	if d.RejectUnsearchable && s.Searchability != SearchabilityPublic {
		return true
	}
	return false
}

func (d *ServerDomainBlock) GetByDomain(ctx context.Context, db *mongo.Database, domain string) (*ServerDomainBlock, error) {
	filter := bson.D{{Key: "domain", Value: domain}, {Key: "is_del", Value: 0}}
	res := db.Collection(d.Table()).FindOne(ctx, filter)
	if res.Err() != nil {
		return nil, res.Err()
	}
	var block ServerDomainBlock
	if err := res.Decode(&block); err != nil {
		return nil, err
	}
	return &block, nil
}

func edgeExists(ctx context.Context, db *mongo.Database, table string, query bson.M) (bool, error) {
	query["is_del"] = 0
	count, err := db.Collection(table).CountDocuments(ctx, query, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (f *Follow) Exists(ctx context.Context, db *mongo.Database, accountID, targetID string) (bool, error) {
	return edgeExists(ctx, db, f.Table(), bson.M{"account_id": accountID, "target_id": targetID})
}

func (f *Follow) GetEdge(ctx context.Context, db *mongo.Database, accountID, targetID string) (*Follow, error) {
	filter := bson.D{{Key: "account_id", Value: accountID}, {Key: "target_id", Value: targetID}, {Key: "is_del", Value: 0}}
	res := db.Collection(f.Table()).FindOne(ctx, filter)
	if res.Err() != nil {
		return nil, res.Err()
	}
	var follow Follow
	if err := res.Decode(&follow); err != nil {
		return nil, err
	}
	return &follow, nil
}

func (f *Follow) Create(ctx context.Context, db *mongo.Database) (*Follow, error) {
	f.CreatedOn = time.Now().Unix()
	if f.ID == "" {
		f.ID = NewID()
	}
	if _, err := db.Collection(f.Table()).InsertOne(ctx, &f); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Follow) Delete(ctx context.Context, db *mongo.Database) error {
	filter := bson.D{{Key: "account_id", Value: f.AccountID}, {Key: "target_id", Value: f.TargetID}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "is_del", Value: 1}}}}
	_, err := db.Collection(f.Table()).UpdateMany(ctx, filter, update)
	return err
}

// FollowerIDs pages follower ids of targetID in ascending id order.
func (f *Follow) FollowerIDs(ctx context.Context, db *mongo.Database, targetID, sinceID string, limit int) ([]string, error) {
	query := bson.M{"target_id": targetID, "is_del": 0}
	if sinceID != "" {
		query["account_id"] = bson.M{"$gt": sinceID}
	}
	finds := options.Find().SetSort(bson.M{"account_id": 1})
	if limit > 0 {
		finds = finds.SetLimit(int64(limit))
	}
	cursor, err := db.Collection(f.Table()).Find(ctx, query, finds)
	if err != nil {
		return nil, err
	}
	var ids []string
	for cursor.Next(ctx) {
		var follow Follow
		if err = cursor.Decode(&follow); err != nil {
			return nil, err
		}
		ids = append(ids, follow.AccountID)
	}
	return ids, nil
}

// MutualIDs returns accounts in a mutual-follow relationship with accountID.
func (f *Follow) MutualIDs(ctx context.Context, db *mongo.Database, accountID string) ([]string, error) {
	followers, err := f.FollowerIDs(ctx, db, accountID, "", 0)
	if err != nil {
		return nil, err
	}
	if len(followers) == 0 {
		return nil, nil
	}
	query := bson.M{"account_id": accountID, "target_id": bson.M{"$in": followers}, "is_del": 0}
	cursor, err := db.Collection(f.Table()).Find(ctx, query)
	if err != nil {
		return nil, err
	}
	var ids []string
	for cursor.Next(ctx) {
		var follow Follow
		if err = cursor.Decode(&follow); err != nil {
			return nil, err
		}
		ids = append(ids, follow.TargetID)
	}
	return ids, nil
}
