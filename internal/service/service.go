package service

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fedipush-backend/internal/conf"
	"fedipush-backend/internal/core"
	"fedipush-backend/internal/dao"
	"fedipush-backend/pkg/notify"
)

var (
	ds       core.DataService
	feeds    core.FeedService
	filters  core.FilterService
	queue    *asynq.Client
	limiter  *redis_rate.Limiter
	pipeline *FanoutPipeline
)

func Initialize() {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.RedisSetting.Host,
		DB:       conf.RedisSetting.DB,
		Password: conf.RedisSetting.Password,
	})
	limiter = redis_rate.NewLimiter(rdb)

	ds = dao.DataService()
	feeds = dao.FeedService()
	filters = dao.FilterService()

	var notifier core.NotifyService
	if conf.NotifySetting != nil && conf.NotifySetting.Gateway != "" {
		notifier = newGatewayNotifyService(notify.New(conf.NotifySetting.Gateway))
	} else {
		notifier = newLogNotifyService()
	}

	pipeline = NewFanoutPipeline(ds, feeds, filters, notifier, limiter,
		conf.FanoutSetting.Workers,
		conf.FanoutSetting.BatchSize,
		conf.FanoutSetting.MaxRetries,
		conf.FanoutSetting.RetryBackoff,
		conf.FanoutSetting.RateLimitPerMin,
	)

	setupJobServer()
}

func setupJobServer() {
	redisConfig := asynq.RedisClientOpt{
		DB:       conf.RedisSetting.DB,
		Addr:     conf.RedisSetting.Host,
		Password: conf.RedisSetting.Password,
	}
	concurrency := conf.JobQueueSetting.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	server := asynq.NewServer(
		redisConfig,
		asynq.Config{
			Logger: logrus.StandardLogger(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logrus.WithField("payload", string(task.Payload())).
					WithField("type", task.Type()).
					WithError(err).
					Errorf("task occur error")
			}),
			Concurrency: concurrency,
			Queues: map[string]int{
				FanoutQueue: 10,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeStatusCreate, HandleStatusCreateTask)
	mux.HandleFunc(TypeStatusDelete, HandleStatusDeleteTask)
	mux.HandleFunc(TypeFeedUnmerge, HandleFeedUnmergeTask)

	go func() {
		if err := server.Run(mux); err != nil {
			panic(err)
		}
	}()

	queue = asynq.NewClient(redisConfig)
}
