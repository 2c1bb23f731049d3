package dao

import (
	"sync"

	"github.com/sirupsen/logrus"

	"fedipush-backend/internal/conf"
	"fedipush-backend/internal/core"
	"fedipush-backend/internal/dao/cache"
	"fedipush-backend/internal/dao/feedstore"
	"fedipush-backend/internal/dao/monogo"
)

var (
	ds core.DataService
	fs core.FilterService
	fd core.FeedService

	onceDs, onceFs, onceFd sync.Once
)

func DataService() core.DataService {
	onceDs.Do(func() {
		var v core.VersionInfo
		ds, v = monogo.NewDataService()
		logrus.Infof("use %s as data service with version %s", v.Name(), v.Version())
	})
	return ds
}

func FilterService() core.FilterService {
	onceFs.Do(func() {
		if conf.CfgIf("BigCacheFilter") {
			var v core.VersionInfo
			fs, v = cache.NewBigCacheFilterService(DataService())
			logrus.Infof("use %s as filter service with version %s", v.Name(), v.Version())
		} else {
			fs = DataService()
		}
	})
	return fs
}

func FeedService() core.FeedService {
	onceFd.Do(func() {
		var v core.VersionInfo
		fd, v = feedstore.NewRedisFeedService(conf.Redis, conf.FanoutSetting.MaxFeedLength)
		logrus.Infof("use %s as feed service with version %s", v.Name(), v.Version())
	})
	return fd
}
