package service

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"fedipush-backend/internal/conf"
	"fedipush-backend/pkg/json"
)

const (
	TypeStatusCreate = "status:create"
	TypeStatusDelete = "status:delete"
	TypeFeedUnmerge  = "feed:unmerge"

	FanoutQueue = "fanout"
)

type StatusCreatePayload struct {
	StatusID string
}

type StatusDeletePayload struct {
	StatusID string
}

type FeedUnmergePayload struct {
	RecipientID string
	AuthorID    string
}

func NewStatusCreateTask(statusID string) *asynq.Task {
	payload, _ := json.Marshal(StatusCreatePayload{StatusID: statusID})

	return asynq.NewTask(TypeStatusCreate, payload)
}

func HandleStatusCreateTask(ctx context.Context, t *asynq.Task) error {
	var info StatusCreatePayload
	if err := json.Unmarshal(t.Payload(), &info); err != nil {
		return fmt.Errorf("status create payload: %v: %w", err, asynq.SkipRetry)
	}
	logrus.Debugf("Status Fanout: id=%s", info.StatusID)
	result, err := pipeline.Run(ctx, info.StatusID)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		// retried runs re-deliver only the recipients the store has not
		// absorbed yet
		return fmt.Errorf("fanout %s: %d recipients failed", info.StatusID, len(result.Failed))
	}
	return nil
}

func NewStatusDeleteTask(statusID string) *asynq.Task {
	payload, _ := json.Marshal(StatusDeletePayload{StatusID: statusID})

	return asynq.NewTask(TypeStatusDelete, payload)
}

func HandleStatusDeleteTask(ctx context.Context, t *asynq.Task) error {
	var info StatusDeletePayload
	if err := json.Unmarshal(t.Payload(), &info); err != nil {
		return fmt.Errorf("status delete payload: %v: %w", err, asynq.SkipRetry)
	}
	logrus.Debugf("Status Cleanup: id=%s", info.StatusID)
	return pipeline.CleanupStatus(ctx, info.StatusID)
}

func NewFeedUnmergeTask(recipientID, authorID string) *asynq.Task {
	payload, _ := json.Marshal(FeedUnmergePayload{RecipientID: recipientID, AuthorID: authorID})

	return asynq.NewTask(TypeFeedUnmerge, payload)
}

func HandleFeedUnmergeTask(ctx context.Context, t *asynq.Task) error {
	var info FeedUnmergePayload
	if err := json.Unmarshal(t.Payload(), &info); err != nil {
		return fmt.Errorf("feed unmerge payload: %v: %w", err, asynq.SkipRetry)
	}
	logrus.Debugf("Feed Unmerge: recipient=%s author=%s", info.RecipientID, info.AuthorID)
	return pipeline.Unmerge(ctx, info.RecipientID, info.AuthorID, conf.FanoutSetting.MaxFeedLength)
}
