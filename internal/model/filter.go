package model

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	FilterContextHome          = "home"
	FilterContextNotifications = "notifications"
	FilterContextPublic        = "public"
	FilterContextThread        = "thread"
	FilterContextAccount       = "account"
)

// CustomFilter is a user-owned keyword rule. Matching annotates a status as
// filtered, it never denies visibility.
type CustomFilter struct {
	ID                string   `json:"id"                 bson:"_id"`
	CreatedOn         int64    `json:"created_on"         bson:"created_on"`
	ModifiedOn        int64    `json:"modified_on"        bson:"modified_on"`
	IsDel             int      `json:"is_del"             bson:"is_del"`
	AccountID         string   `json:"account_id"         bson:"account_id"`
	Phrase            string   `json:"phrase"             bson:"phrase"`
	Contexts          []string `json:"contexts"           bson:"contexts"`
	WholeWord         bool     `json:"whole_word"         bson:"whole_word"`
	ExcludeFollows    bool     `json:"exclude_follows"    bson:"exclude_follows"`
	ExcludeLocalusers bool     `json:"exclude_localusers" bson:"exclude_localusers"`
	// ExpiresAt is a unix timestamp, zero for no expiry. Expiry is passive:
	// expired filters are skipped at evaluation time, not swept.
	ExpiresAt int64 `json:"expires_at" bson:"expires_at"`
}

func (f *CustomFilter) Table() string {
	return "custom_filter"
}

func (f *CustomFilter) Create(ctx context.Context, db *mongo.Database) (*CustomFilter, error) {
	now := time.Now().Unix()
	f.CreatedOn = now
	f.ModifiedOn = now
	if f.ID == "" {
		f.ID = NewID()
	}
	if _, err := db.Collection(f.Table()).InsertOne(ctx, &f); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *CustomFilter) Delete(ctx context.Context, db *mongo.Database) error {
	filter := bson.D{{Key: "_id", Value: f.ID}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "is_del", Value: 1}}}}
	res := db.Collection(f.Table()).FindOneAndUpdate(ctx, filter, update)
	return res.Err()
}

// ListByAccount returns every live filter owned by accountID, expired ones
// included.
func (f *CustomFilter) ListByAccount(ctx context.Context, db *mongo.Database, accountID string) ([]*CustomFilter, error) {
	query := bson.M{"account_id": accountID, "is_del": 0}
	cursor, err := db.Collection(f.Table()).Find(ctx, query)
	if err != nil {
		return nil, err
	}
	var filters []*CustomFilter
	for cursor.Next(ctx) {
		var row CustomFilter
		if err = cursor.Decode(&row); err != nil {
			return nil, err
		}
		filters = append(filters, &row)
	}
	return filters, nil
}

// CompiledFilter is a CustomFilter with its phrase compiled for repeated
// evaluation. Compile once per account fetch, cache, evaluate many.
type CompiledFilter struct {
	ID                string
	Phrase            string
	Contexts          []string
	ExcludeFollows    bool
	ExcludeLocalusers bool
	ExpiresAt         int64

	re  *regexp.Regexp
	src *CustomFilter
}

// Source returns the filter row this was compiled from.
func (f *CompiledFilter) Source() *CustomFilter {
	return f.src
}

func (f *CustomFilter) Compile() (*CompiledFilter, error) {
	expr := regexp.QuoteMeta(f.Phrase)
	if f.WholeWord {
		expr = `\b` + expr + `\b`
	}
	re, err := regexp.Compile(`(?i)` + expr)
	if err != nil {
		return nil, fmt.Errorf("compile filter %s: %w", f.ID, err)
	}
	return &CompiledFilter{
		ID:                f.ID,
		Phrase:            f.Phrase,
		Contexts:          f.Contexts,
		ExcludeFollows:    f.ExcludeFollows,
		ExcludeLocalusers: f.ExcludeLocalusers,
		ExpiresAt:         f.ExpiresAt,
		re:                re,
		src:               f,
	}, nil
}

func (f *CompiledFilter) Expired(now time.Time) bool {
	return f.ExpiresAt > 0 && f.ExpiresAt <= now.Unix()
}

func (f *CompiledFilter) AppliesTo(context string) bool {
	for _, c := range f.Contexts {
		if strings.EqualFold(c, context) {
			return true
		}
	}
	return false
}

func (f *CompiledFilter) Matches(text string) bool {
	return f.re.MatchString(text)
}

// FilterMatch is the annotation attached to a status rendered to a viewer
// whose filter matched it.
type FilterMatch struct {
	FilterID string `json:"filter_id"`
	Keyword  string `json:"keyword"`
}
