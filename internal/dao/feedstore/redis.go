package feedstore

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
	"fedipush-backend/pkg/json"
)

var (
	_ core.FeedService = (*redisFeedServant)(nil)
	_ core.VersionInfo = (*redisFeedServant)(nil)
)

// redisFeedServant keeps one sorted set per feed. Members are status ids
// with a constant score, so set order is lexicographic id order, which is
// creation order for time-sortable ids. ZADD NX gives the
// at-most-one-entry-per-(recipient,status) invariant at the store level:
// concurrent duplicate writes collapse to one member and exactly one caller
// observes created=true.
type redisFeedServant struct {
	rdb       *redis.Client
	maxLength int
}

func NewRedisFeedService(rdb *redis.Client, maxLength int) (core.FeedService, core.VersionInfo) {
	servant := &redisFeedServant{
		rdb:       rdb,
		maxLength: maxLength,
	}
	return servant, servant
}

func feedKey(feed model.FeedRef) string {
	if feed.Kind == model.FeedKindList {
		return fmt.Sprintf("feed:list:%s:%s", feed.RecipientID, feed.ListID)
	}
	return fmt.Sprintf("feed:home:%s", feed.RecipientID)
}

func metaKey(feed model.FeedRef) string {
	return "meta:" + feedKey(feed)
}

// indexKey is the reverse index: the set of feed keys one status was
// delivered to, consulted by deletion cleanup.
func indexKey(statusID string) string {
	return "feedidx:" + statusID
}

func (s *redisFeedServant) Put(ctx context.Context, feed model.FeedRef, entry *model.FeedEntry) (bool, error) {
	key := feedKey(feed)
	added, err := s.rdb.ZAddNX(ctx, key, redis.Z{Score: 0, Member: entry.StatusID}).Result()
	if err != nil {
		return false, err
	}
	created := added > 0
	if !created {
		return false, nil
	}

	pipe := s.rdb.Pipeline()
	pipe.SAdd(ctx, indexKey(entry.StatusID), key)
	if len(entry.Filtered) > 0 {
		if data, err := json.Marshal(entry.Filtered); err == nil {
			pipe.HSet(ctx, metaKey(feed), entry.StatusID, string(data))
		}
	}
	if s.maxLength > 0 {
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-(s.maxLength + 1)))
	}
	if _, err = pipe.Exec(ctx); err != nil {
		// the entry itself is in place; index/meta bookkeeping is best effort
		logrus.Errorf("redisFeedServant.Put bookkeeping key %s status %s err: %v", key, entry.StatusID, err)
	}
	return true, nil
}

func (s *redisFeedServant) Remove(ctx context.Context, feed model.FeedRef, statusID string) error {
	key := feedKey(feed)
	pipe := s.rdb.Pipeline()
	pipe.ZRem(ctx, key, statusID)
	pipe.HDel(ctx, metaKey(feed), statusID)
	pipe.SRem(ctx, indexKey(statusID), key)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisFeedServant) RemoveMany(ctx context.Context, feed model.FeedRef, statusIDs []string) error {
	if len(statusIDs) == 0 {
		return nil
	}
	key := feedKey(feed)
	members := make([]interface{}, 0, len(statusIDs))
	fields := make([]string, 0, len(statusIDs))
	for _, id := range statusIDs {
		members = append(members, id)
		fields = append(fields, id)
	}
	pipe := s.rdb.Pipeline()
	pipe.ZRem(ctx, key, members...)
	pipe.HDel(ctx, metaKey(feed), fields...)
	for _, id := range statusIDs {
		pipe.SRem(ctx, indexKey(id), key)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisFeedServant) RemoveStatus(ctx context.Context, statusID string) error {
	keys, err := s.rdb.SMembers(ctx, indexKey(statusID)).Result()
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	for _, key := range keys {
		pipe.ZRem(ctx, key, statusID)
		pipe.HDel(ctx, "meta:"+key, statusID)
	}
	pipe.Del(ctx, indexKey(statusID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisFeedServant) Range(ctx context.Context, feed model.FeedRef, maxID, minID string, limit int) ([]*model.FeedEntry, error) {
	max, min := "+", "-"
	if maxID != "" {
		max = "(" + maxID
	}
	if minID != "" {
		min = "(" + minID
	}
	ids, err := s.rdb.ZRevRangeByLex(ctx, feedKey(feed), &redis.ZRangeBy{
		Max:   max,
		Min:   min,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	annotations, err := s.rdb.HMGet(ctx, metaKey(feed), ids...).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]*model.FeedEntry, 0, len(ids))
	for i, id := range ids {
		entry := &model.FeedEntry{
			RecipientID: feed.RecipientID,
			StatusID:    id,
		}
		if raw, ok := annotations[i].(string); ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &entry.Filtered); err != nil {
				logrus.Debugf("redisFeedServant.Range decode annotation status %s err: %v", id, err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *redisFeedServant) Name() string {
	return "RedisFeed"
}

func (s *redisFeedServant) Version() *semver.Version {
	return semver.MustParse("v0.1.0")
}
