package cache

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/allegro/bigcache/v3"
	"github.com/sirupsen/logrus"

	"fedipush-backend/internal/conf"
	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
	"fedipush-backend/pkg/json"
)

var (
	_ core.FilterService = (*bigCacheFilterServant)(nil)
	_ core.VersionInfo   = (*bigCacheFilterServant)(nil)
)

// bigCacheFilterServant caches each account's raw filter rows and compiles
// on read. Any mutation through this servant drops the account's entry, so
// repeated fan-out evaluation stays off the database.
type bigCacheFilterServant struct {
	fs    core.FilterService
	cache *bigcache.BigCache
}

func NewBigCacheFilterService(fs core.FilterService) (core.FilterService, core.VersionInfo) {
	config := bigcache.DefaultConfig(conf.FilterCacheSetting.ExpireInSecond)
	config.HardMaxCacheSize = conf.FilterCacheSetting.HardMaxCacheSize
	config.Verbose = conf.FilterCacheSetting.Verbose
	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		logrus.Fatalf("initial bigCacheFilterServant failed: %s", err)
	}
	servant := &bigCacheFilterServant{
		fs:    fs,
		cache: cache,
	}
	return servant, servant
}

func (s *bigCacheFilterServant) keyFrom(accountID string) string {
	return "filters:" + accountID
}

func (s *bigCacheFilterServant) ActiveFilters(ctx context.Context, accountID string) ([]*model.CompiledFilter, error) {
	key := s.keyFrom(accountID)
	if data, err := s.cache.Get(key); err == nil {
		var rows []*model.CustomFilter
		if err = json.Unmarshal(data, &rows); err == nil {
			return compileRows(rows), nil
		}
		logrus.Debugf("bigCacheFilterServant.ActiveFilters decode key %s err: %v", key, err)
	}

	compiled, err := s.fs.ActiveFilters(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.cacheCompiled(key, compiled)
	return compiled, nil
}

func (s *bigCacheFilterServant) cacheCompiled(key string, compiled []*model.CompiledFilter) {
	rows := make([]*model.CustomFilter, 0, len(compiled))
	for _, cf := range compiled {
		rows = append(rows, cf.Source())
	}
	data, err := json.Marshal(rows)
	if err != nil {
		logrus.Debugf("bigCacheFilterServant.cacheCompiled encode key %s err: %v", key, err)
		return
	}
	if err = s.cache.Set(key, data); err != nil {
		logrus.Debugf("bigCacheFilterServant.cacheCompiled set key %s err: %v", key, err)
	}
}

func compileRows(rows []*model.CustomFilter) []*model.CompiledFilter {
	compiled := make([]*model.CompiledFilter, 0, len(rows))
	for _, row := range rows {
		cf, err := row.Compile()
		if err != nil {
			logrus.Errorf("bigCacheFilterServant compile %s err: %v", row.ID, err)
			continue
		}
		compiled = append(compiled, cf)
	}
	return compiled
}

func (s *bigCacheFilterServant) CreateFilter(ctx context.Context, filter *model.CustomFilter) (*model.CustomFilter, error) {
	created, err := s.fs.CreateFilter(ctx, filter)
	if err == nil {
		_ = s.cache.Delete(s.keyFrom(filter.AccountID))
	}
	return created, err
}

func (s *bigCacheFilterServant) DeleteFilter(ctx context.Context, filter *model.CustomFilter) error {
	err := s.fs.DeleteFilter(ctx, filter)
	if err == nil {
		_ = s.cache.Delete(s.keyFrom(filter.AccountID))
	}
	return err
}

func (s *bigCacheFilterServant) Name() string {
	return "BigCacheFilter"
}

func (s *bigCacheFilterServant) Version() *semver.Version {
	return semver.MustParse("v0.1.0")
}
