package service

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/conf"
	"fedipush-backend/internal/model"
	"fedipush-backend/pkg/errcode"
)

type StatusCreationReq struct {
	AuthorID    string          `json:"author_id" binding:"required"`
	Addressing  AudienceInput   `json:"addressing"`
	Summary     string          `json:"summary"`
	Content     string          `json:"content"`
	PollOptions []string        `json:"poll_options"`
	ReplyToID   string          `json:"reply_to_id"`
	CircleID    string          `json:"circle_id"`
	Sensitive   bool            `json:"sensitive"`
	HasMedia    bool            `json:"has_media"`
	Local       bool            `json:"local"`
	Mentions    []model.Mention `json:"mentions"`
}

type StatusDelReq struct {
	ID string `json:"id" binding:"required"`
}

type TimelineReq struct {
	Kind   model.FeedKind `json:"kind" form:"kind"`
	ListID string         `json:"list_id" form:"list_id"`
	MaxID  string         `json:"max_id" form:"max_id"`
	MinID  string         `json:"min_id" form:"min_id"`
	Limit  int            `json:"limit" form:"limit"`
}

// TimelineItem pairs a readable status with the viewer's filter
// annotations recorded at delivery time.
type TimelineItem struct {
	Status   *model.Status       `json:"status"`
	Filtered []model.FilterMatch `json:"filtered,omitempty"`
}

// CreateStatus classifies the addressing, persists the status, and hands
// delivery to the fan-out queue. The status is readable through the gate
// immediately; feeds converge asynchronously.
func CreateStatus(ctx context.Context, param StatusCreationReq) (*model.Status, error) {
	author, err := ds.GetAccountByID(ctx, param.AuthorID)
	if err != nil {
		return nil, errcode.AuthorGone
	}
	if !author.Available() {
		return nil, errcode.AuthorGone
	}

	if !param.Addressing.FriendServer {
		param.Addressing.FriendServer = originIsFriend(author)
	}
	visibility, scope := ClassifyAudience(param.Addressing)
	if scope == model.LimitedScopeNone && visibility == model.VisibilityLimited && param.CircleID != "" {
		scope = model.LimitedScopeCircle
	}
	if scope == model.LimitedScopeCircle && param.CircleID == "" {
		return nil, errcode.CircleGone
	}

	status := &model.Status{
		ID:            model.NewID(),
		AuthorID:      author.ID,
		Visibility:    visibility,
		Searchability: DeriveSearchability(param.Addressing, author, visibility),
		LimitedScope:  scope,
		ReplyToID:     param.ReplyToID,
		CircleID:      param.CircleID,
		Local:         param.Local,
		Sensitive:     param.Sensitive,
		HasMedia:      param.HasMedia,
		Summary:       param.Summary,
		Content:       param.Content,
		PollOptions:   param.PollOptions,
		Mentions:      param.Mentions,
	}
	if status.ReplyToID != "" {
		if parent, err := ds.GetStatusByID(ctx, status.ReplyToID); err == nil {
			status.ConversationID = parent.ConversationID
		}
	}
	if status.ConversationID == "" {
		status.ConversationID = status.ID
	}
	if status.Visibility == model.VisibilityLimited {
		if err = materializeLimitedAudience(ctx, status); err != nil {
			return nil, err
		}
	}

	status, err = ds.CreateStatus(ctx, status)
	if err != nil {
		return nil, errcode.ServerError.WithDetails(err.Error())
	}

	task := NewStatusCreateTask(status.ID)
	if _, err = queue.Enqueue(task, asynq.Queue(FanoutQueue), asynq.MaxRetry(conf.FanoutSetting.MaxRetries)); err != nil {
		logrus.Errorf("enqueue fanout for %s err: %v", status.ID, err)
		return nil, errcode.FanoutAborted.WithDetails(err.Error())
	}
	return status, nil
}

// originIsFriend reports whether the author's server participates in the
// local-public exchange. Local statuses always qualify; remote ones only
// when their domain is configured as a friend server.
func originIsFriend(author *model.Account) bool {
	if author.Local() {
		return true
	}
	return conf.AppSetting.IsFriendServer(author.Domain)
}

// materializeLimitedAudience pins a limited status's audience at creation
// time: circle members and mutuals become silent mentions on the status
// itself. The gate admits exactly the addressed set, so membership changes
// after publication neither widen nor narrow who may see it.
func materializeLimitedAudience(ctx context.Context, status *model.Status) error {
	var (
		ids []string
		err error
	)
	switch status.LimitedScope {
	case model.LimitedScopeCircle:
		if _, err = ds.GetCircle(ctx, status.CircleID); err != nil {
			return errcode.CircleGone
		}
		if ids, err = ds.CircleMemberIDs(ctx, status.CircleID); err != nil {
			return errcode.GetRelationsFailed.WithDetails(err.Error())
		}
	case model.LimitedScopeMutual:
		if ids, err = ds.MutualIDs(ctx, status.AuthorID); err != nil {
			return errcode.GetRelationsFailed.WithDetails(err.Error())
		}
	default:
		return nil
	}

	addressed := make(map[string]struct{}, len(status.Mentions))
	for _, mention := range status.Mentions {
		addressed[mention.AccountID] = struct{}{}
	}
	for _, id := range ids {
		if id == status.AuthorID {
			continue
		}
		if _, ok := addressed[id]; ok {
			continue
		}
		status.Mentions = append(status.Mentions, model.Mention{AccountID: id, Silent: true})
	}
	return nil
}

// DeleteStatus tombstones the status and queues the feed cleanup sweep.
func DeleteStatus(ctx context.Context, actorID, statusID string) *errcode.Error {
	status, err := ds.GetStatusByID(ctx, statusID)
	if err != nil {
		return errcode.NotFound
	}
	if status.AuthorID != actorID {
		return errcode.NotFound
	}
	if err = ds.DeleteStatus(ctx, status); err != nil {
		return errcode.ServerError.WithDetails(err.Error())
	}
	task := NewStatusDeleteTask(status.ID)
	if _, err = queue.Enqueue(task, asynq.Queue(FanoutQueue)); err != nil {
		logrus.Errorf("enqueue cleanup for %s err: %v", status.ID, err)
		return errcode.FeedRemoveFailed.WithDetails(err.Error())
	}
	return nil
}

// OnFollowRemoved queues the unmerge sweep that drops the former
// followee's statuses from the follower's home feed.
func OnFollowRemoved(followerID, targetID string) {
	task := NewFeedUnmergeTask(followerID, targetID)
	if _, err := queue.Enqueue(task, asynq.Queue(FanoutQueue)); err != nil {
		logrus.Errorf("enqueue unmerge %s/%s err: %v", followerID, targetID, err)
	}
}

// GetStatus reads one status through the gate. A denial renders exactly
// like a missing status.
func GetStatus(ctx context.Context, viewerID, statusID string) (*model.Status, error) {
	status, err := ds.GetStatusByID(ctx, statusID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errcode.NotFound
		}
		return nil, errcode.GetStatusFailed.WithDetails(err.Error())
	}
	author, err := ds.GetAccountByID(ctx, status.AuthorID)
	if err != nil {
		return nil, errcode.NotFound
	}

	var viewer *model.Account
	if viewerID != "" {
		if viewer, err = ds.GetAccountByID(ctx, viewerID); err != nil {
			return nil, errcode.NotFound
		}
	}
	if viewer == nil || viewer.ID != author.ID {
		gate := NewRelationshipGate(ds)
		if !gate.Authorize(ctx, viewer, status, author, nil) {
			return nil, errcode.NotFound
		}
	}
	return status, nil
}

// GetTimeline pages a feed newest-first and re-gates every entry against
// current relationship state. Entries whose status no longer clears the
// gate are dropped from the page, not surfaced as errors.
func GetTimeline(ctx context.Context, viewerID string, req *TimelineReq) ([]*TimelineItem, error) {
	viewer, err := ds.GetAccountByID(ctx, viewerID)
	if err != nil {
		return nil, errcode.NotFound
	}

	limit := req.Limit
	if limit <= 0 {
		limit = conf.AppSetting.DefaultPageSize
	}
	if limit > conf.AppSetting.MaxPageSize {
		limit = conf.AppSetting.MaxPageSize
	}

	kind := req.Kind
	if kind == "" {
		kind = model.FeedKindHome
	}
	feed := model.FeedRef{RecipientID: viewer.ID, Kind: kind, ListID: req.ListID}
	entries, err := feeds.Range(ctx, feed, req.MaxID, req.MinID, limit)
	if err != nil {
		return nil, errcode.ServerError.WithDetails(err.Error())
	}
	if len(entries) == 0 {
		return []*TimelineItem{}, nil
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.StatusID)
	}
	statuses, err := ds.GetStatuses(&model.ConditionsT{
		"query": bson.M{"_id": bson.M{"$in": ids}},
	}, 0, len(ids))
	if err != nil {
		return nil, errcode.GetStatusFailed.WithDetails(err.Error())
	}
	byID := make(map[string]*model.Status, len(statuses))
	authorIDs := make([]string, 0, len(statuses))
	for _, status := range statuses {
		byID[status.ID] = status
		authorIDs = append(authorIDs, status.AuthorID)
	}
	authors, err := ds.GetAccountsByIDs(ctx, authorIDs)
	if err != nil {
		return nil, errcode.ServerError.WithDetails(err.Error())
	}
	authorByID := make(map[string]*model.Account, len(authors))
	domains := make([]string, 0, len(authors))
	for _, author := range authors {
		authorByID[author.ID] = author
		if !author.Local() {
			domains = append(domains, author.Domain)
		}
	}

	snap, err := ds.RelationsMap(ctx, viewer.ID, authorIDs, domains)
	if err != nil {
		return nil, errcode.GetRelationsFailed.WithDetails(err.Error())
	}

	gate := NewRelationshipGate(ds)
	items := make([]*TimelineItem, 0, len(entries))
	for _, entry := range entries {
		status, ok := byID[entry.StatusID]
		if !ok {
			// deleted since delivery; the cleanup sweep lags reads
			continue
		}
		author, ok := authorByID[status.AuthorID]
		if !ok {
			continue
		}
		if viewer.ID != author.ID && !gate.Authorize(ctx, viewer, status, author, snap) {
			continue
		}
		items = append(items, &TimelineItem{Status: status, Filtered: entry.Filtered})
	}
	return items, nil
}
