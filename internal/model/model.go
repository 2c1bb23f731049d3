package model

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
)

type ConditionsT map[string]bson.M

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewID returns a time-sortable id. Lexicographic order of ids follows
// creation order, which the feed store relies on for range queries.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func findQuery(query []bson.M) bson.M {
	query = append(query, bson.M{"is_del": 0})
	return bson.M{"$and": query}
}
