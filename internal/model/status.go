package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mention is an addressed account on a status. Silent mentions are carried
// for limited-audience copies: the account is addressed and may view the
// status, but no notification was produced for it.
type Mention struct {
	AccountID string `json:"account_id" bson:"account_id"`
	Silent    bool   `json:"silent"     bson:"silent"`
}

type Status struct {
	ID             string        `json:"id"              bson:"_id"`
	CreatedOn      int64         `json:"created_on"      bson:"created_on"`
	ModifiedOn     int64         `json:"modified_on"     bson:"modified_on"`
	DeletedOn      int64         `json:"deleted_on"      bson:"deleted_on"`
	IsDel          int           `json:"is_del"          bson:"is_del"`
	AuthorID       string        `json:"author_id"       bson:"author_id"`
	Visibility     Visibility    `json:"visibility"      bson:"visibility"`
	Searchability  Searchability `json:"searchability"   bson:"searchability"`
	LimitedScope   LimitedScope  `json:"limited_scope"   bson:"limited_scope"`
	ReplyToID      string        `json:"reply_to_id"     bson:"reply_to_id"`
	ConversationID string        `json:"conversation_id" bson:"conversation_id"`
	CircleID       string        `json:"circle_id"       bson:"circle_id"`
	Local          bool          `json:"local"           bson:"local"`
	Sensitive      bool          `json:"sensitive"       bson:"sensitive"`
	HasMedia       bool          `json:"has_media"       bson:"has_media"`
	Summary        string        `json:"summary"         bson:"summary"`
	Content        string        `json:"content"         bson:"content"`
	PollOptions    []string      `json:"poll_options"    bson:"poll_options"`
	Mentions       []Mention     `json:"mentions"        bson:"mentions"`
}

func (s *Status) Table() string {
	return "status"
}

// ActiveMentionIDs returns accounts that were addressed and notified.
func (s *Status) ActiveMentionIDs() []string {
	ids := make([]string, 0, len(s.Mentions))
	for _, m := range s.Mentions {
		if !m.Silent {
			ids = append(ids, m.AccountID)
		}
	}
	return ids
}

// AllMentionIDs returns every addressed account, silent mentions included.
func (s *Status) AllMentionIDs() []string {
	ids := make([]string, 0, len(s.Mentions))
	for _, m := range s.Mentions {
		ids = append(ids, m.AccountID)
	}
	return ids
}

func (s *Status) Mentioned(accountID string, silentToo bool) bool {
	for _, m := range s.Mentions {
		if m.AccountID != accountID {
			continue
		}
		if silentToo || !m.Silent {
			return true
		}
	}
	return false
}

func (s *Status) Create(ctx context.Context, db *mongo.Database) (*Status, error) {
	now := time.Now().Unix()
	s.CreatedOn = now
	s.ModifiedOn = now
	if s.ID == "" {
		s.ID = NewID()
	}
	if _, err := db.Collection(s.Table()).InsertOne(ctx, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Status) Get(ctx context.Context, db *mongo.Database) (*Status, error) {
	if s.ID == "" {
		return nil, mongo.ErrNoDocuments
	}
	filter := bson.D{{Key: "_id", Value: s.ID}, {Key: "is_del", Value: 0}}
	res := db.Collection(s.Table()).FindOne(ctx, filter)
	if res.Err() != nil {
		return nil, res.Err()
	}

	var status Status
	if err := res.Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *Status) Delete(ctx context.Context, db *mongo.Database) error {
	filter := bson.D{{Key: "_id", Value: s.ID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_del", Value: 1},
		{Key: "deleted_on", Value: time.Now().Unix()},
	}}}
	res := db.Collection(s.Table()).FindOneAndUpdate(ctx, filter, update)
	return res.Err()
}

func (s *Status) List(db *mongo.Database, conditions *ConditionsT, offset, limit int) ([]*Status, error) {
	var (
		statuses []*Status
		query    bson.M
		cursor   *mongo.Cursor
		err      error
	)
	finds := make([]*options.FindOptions, 0, 3)
	finds = append(finds, options.Find().SetSkip(int64(offset)))
	if limit > 0 {
		finds = append(finds, options.Find().SetLimit(int64(limit)))
	}
	if s.AuthorID != "" {
		query = bson.M{"author_id": s.AuthorID}
	}
	for k, v := range *conditions {
		if k != "ORDER" {
			if query != nil {
				query = findQuery([]bson.M{query, v})
			} else {
				query = findQuery([]bson.M{v})
			}
		} else {
			finds = append(finds, options.Find().SetSort(v))
		}
	}
	if query == nil {
		query = bson.M{"is_del": 0}
	}
	if cursor, err = db.Collection(s.Table()).Find(context.TODO(), query, finds...); err != nil {
		return nil, err
	}
	for cursor.Next(context.TODO()) {
		var status Status
		if err = cursor.Decode(&status); err != nil {
			return nil, err
		}
		statuses = append(statuses, &status)
	}
	return statuses, nil
}
