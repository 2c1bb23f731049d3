package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
	"fedipush-backend/pkg/errcode"
)

type fanoutState uint8

const (
	stateResolving fanoutState = iota
	stateGating
	stateWriting
	stateDone
	stateAborted
)

func (s fanoutState) String() string {
	switch s {
	case stateResolving:
		return "resolving"
	case stateGating:
		return "gating"
	case stateWriting:
		return "writing"
	case stateDone:
		return "done"
	case stateAborted:
		return "aborted"
	}
	return "unknown"
}

// FanoutResult reports one pipeline run for operator visibility. Failed
// holds recipient ids whose writes exhausted their retries; their failure
// never aborted sibling recipients.
type FanoutResult struct {
	StatusID   string
	Delivered  int
	Suppressed int
	Failed     []string
}

// FanoutPipeline drives one status-creation event through
// resolve → gate → write → notify. Gating re-checks what the resolver
// already scoped: audience data may be stale by the time a write happens,
// so every recipient passes the gate against current relationship state.
type FanoutPipeline struct {
	ds       core.DataService
	feeds    core.FeedService
	notifier core.NotifyService
	resolver *AudienceResolver
	gate     *RelationshipGate
	engine   *FilterEngine
	limiter  *redis_rate.Limiter

	workers      int
	batchSize    int
	maxRetries   int
	retryBackoff time.Duration
	ratePerMin   int
}

func NewFanoutPipeline(ds core.DataService, feeds core.FeedService, filters core.FilterService, notifier core.NotifyService, limiter *redis_rate.Limiter, workers, batchSize, maxRetries int, retryBackoff time.Duration, ratePerMin int) *FanoutPipeline {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &FanoutPipeline{
		ds:           ds,
		feeds:        feeds,
		notifier:     notifier,
		resolver:     NewAudienceResolver(ds),
		gate:         NewRelationshipGate(ds),
		engine:       NewFilterEngine(filters),
		limiter:      limiter,
		workers:      workers,
		batchSize:    batchSize,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		ratePerMin:   ratePerMin,
	}
}

// Run fans one status out to every authorized local recipient. A missing
// status or author aborts the whole run; anything past that point is
// recipient-scoped and non-fatal. Re-running after a partial failure is
// safe: feed writes are idempotent and notifications fire only on entry
// creation.
func (p *FanoutPipeline) Run(ctx context.Context, statusID string) (*FanoutResult, error) {
	state := stateResolving
	result := &FanoutResult{StatusID: statusID}

	status, err := p.ds.GetStatusByID(ctx, statusID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errcode.StatusGone
		}
		return nil, errcode.GetStatusFailed.WithDetails(err.Error())
	}
	author, err := p.ds.GetAccountByID(ctx, status.AuthorID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errcode.AuthorGone
		}
		return nil, errcode.GetStatusFailed.WithDetails(err.Error())
	}
	if !author.Available() {
		state = stateAborted
		logrus.Infof("fanout %s %s: author %s unavailable", statusID, state, author.ID)
		return nil, errcode.FanoutAborted
	}

	audience, err := p.resolver.Resolve(ctx, status, author)
	if err != nil {
		state = stateAborted
		logrus.Warnf("fanout %s %s: resolve: %v", statusID, state, err)
		return nil, errcode.ResolveAudienceFailed.WithDetails(err.Error())
	}

	if audience.Broadcast && p.limiter != nil && p.ratePerMin > 0 {
		res, err := p.limiter.Allow(ctx, "fanout:"+author.ID, redis_rate.PerMinute(p.ratePerMin))
		if err == nil && res.Allowed == 0 {
			state = stateAborted
			logrus.Warnf("fanout %s %s: author %s over the broadcast rate", statusID, state, author.ID)
			return nil, errcode.FanoutRateLimited
		}
	}

	state = stateGating
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan string)
	)
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for recipientID := range jobs {
				delivered, failed := p.deliver(ctx, status, author, audience, recipientID)
				mu.Lock()
				if failed {
					result.Failed = append(result.Failed, recipientID)
				} else if delivered {
					result.Delivered++
				} else {
					result.Suppressed++
				}
				mu.Unlock()
			}
		}()
	}

	dispatch := func(ids []string) {
		for _, id := range ids {
			jobs <- id
		}
	}
	dispatch(audience.LocalIDs)
	if audience.Broadcast {
		err = p.eachLocalBatch(ctx, audience, dispatch)
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		logrus.Errorf("fanout %s: broadcast paging stopped in %s: %v", statusID, state, err)
	}

	state = stateWriting
	p.fanoutLists(ctx, status, author, result, &mu)

	state = stateDone
	if len(result.Failed) > 0 {
		logrus.Errorf("fanout %s finished with %d failed recipients: %v", statusID, len(result.Failed), result.Failed)
	} else {
		logrus.Debugf("fanout %s %s: delivered=%d suppressed=%d", statusID, state, result.Delivered, result.Suppressed)
	}
	return result, nil
}

// eachLocalBatch pages the active local account population. Between batches
// a canceled context stops dispatching not-yet-queued recipients; in-flight
// writes run to completion.
func (p *FanoutPipeline) eachLocalBatch(ctx context.Context, audience *model.Audience, dispatch func([]string)) error {
	sinceID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ids, err := p.ds.ListLocalAccountIDs(ctx, sinceID, p.batchSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		batch := make([]string, 0, len(ids))
		for _, id := range ids {
			// direct targets were already dispatched
			if !audience.Has(id) {
				batch = append(batch, id)
			}
		}
		dispatch(batch)
		sinceID = ids[len(ids)-1]
	}
}

// deliver runs one recipient's gate-and-write sequence. Returns delivered
// (entry newly created) and failed (write retries exhausted). Everything
// else counts as suppression.
func (p *FanoutPipeline) deliver(ctx context.Context, status *model.Status, author *model.Account, audience *model.Audience, recipientID string) (delivered, failed bool) {
	recipient, err := p.ds.GetAccountByID(ctx, recipientID)
	if err != nil {
		// recipient vanished mid-pipeline: abort this branch only
		logrus.Debugf("fanout %s: recipient %s unavailable: %v", status.ID, recipientID, err)
		return false, false
	}
	if !recipient.Local() || !recipient.Available() {
		return false, false
	}

	var muted, mutedNotifications bool
	if recipient.ID != author.ID {
		// no snapshot here: the gate must observe relationship state as of
		// this write, not as of resolution
		if !p.gate.Authorize(ctx, recipient, status, author, nil) {
			return false, false
		}
		muted, mutedNotifications = p.muteState(ctx, recipient.ID, author.ID)
		if muted {
			return false, false
		}
	}

	following := false
	if recipient.ID != author.ID {
		if following, err = p.ds.Following(ctx, recipient.ID, author.ID); err != nil {
			logrus.Debugf("fanout %s: following lookup %s err: %v", status.ID, recipient.ID, err)
		}
	}

	matches, err := p.engine.AnnotateFor(ctx, recipient.ID, status, model.FilterContextHome, following, author.Local())
	if err != nil {
		logrus.Debugf("fanout %s: filters for %s err: %v", status.ID, recipient.ID, err)
	}

	feed := model.FeedRef{RecipientID: recipient.ID, Kind: model.FeedKindHome}
	entry := &model.FeedEntry{RecipientID: recipient.ID, StatusID: status.ID, Filtered: matches}
	created, err := p.putWithRetry(ctx, feed, entry)
	if err != nil {
		logrus.Errorf("fanout %s: write for %s exhausted retries: %v", status.ID, recipient.ID, err)
		return false, true
	}
	if !created {
		// redelivery after a crash or a concurrent duplicate: the store
		// absorbed it, and no second notification fires
		return false, false
	}

	if recipient.ID != author.ID && !mutedNotifications {
		p.notify(ctx, status, author, recipient)
	}
	return true, false
}

func (p *FanoutPipeline) muteState(ctx context.Context, recipientID, authorID string) (muted, notificationsOnly bool) {
	mute, err := p.ds.GetMute(ctx, recipientID, authorID)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			logrus.Debugf("mute lookup %s/%s err: %v", recipientID, authorID, err)
		}
		return false, false
	}
	// a notifications-only mute still admits the entry into the feed;
	// everything else is a full timeline mute
	return !mute.NotificationsOnly, mute.NotificationsOnly || mute.HideNotifications
}

func (p *FanoutPipeline) putWithRetry(ctx context.Context, feed model.FeedRef, entry *model.FeedEntry) (bool, error) {
	var (
		created bool
		err     error
	)
	for attempt := 0; ; attempt++ {
		created, err = p.feeds.Put(ctx, feed, entry)
		if err == nil {
			return created, nil
		}
		if attempt >= p.maxRetries {
			return false, err
		}
		backoff := p.retryBackoff << uint(attempt)
		if backoff <= 0 {
			backoff = 100 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// notify raises at most one notification for a freshly created entry. An
// active mention outranks the follow notify flag; absence of any flag means
// silent insertion.
func (p *FanoutPipeline) notify(ctx context.Context, status *model.Status, author *model.Account, recipient *model.Account) {
	kind := model.NotificationType("")
	if status.Mentioned(recipient.ID, false) {
		kind = model.NotificationMention
	} else {
		pref, err := p.ds.NotifyPreference(ctx, model.NotifyKindFollow, recipient.ID, author.ID)
		if err != nil {
			logrus.Debugf("notify preference %s/%s err: %v", recipient.ID, author.ID, err)
			return
		}
		if pref.Notify {
			kind = model.NotificationStatus
		}
	}
	if kind == "" {
		return
	}
	p.raise(ctx, status, author, recipient.ID, kind)
}

func (p *FanoutPipeline) raise(ctx context.Context, status *model.Status, author *model.Account, recipientID string, kind model.NotificationType) {
	notification := &model.Notification{
		RecipientID: recipientID,
		Type:        kind,
		ActivityID:  status.ID,
		AuthorID:    author.ID,
		CreatedOn:   time.Now().Unix(),
	}
	if err := p.notifier.Raise(ctx, notification); err != nil {
		logrus.Errorf("fanout %s: raise %s notification for %s err: %v", status.ID, kind, recipientID, err)
	}
}

// fanoutLists delivers into list feeds whose member set contains the
// author. The list owner is gated like any other recipient.
func (p *FanoutPipeline) fanoutLists(ctx context.Context, status *model.Status, author *model.Account, result *FanoutResult, mu *sync.Mutex) {
	if status.Visibility.RequiresMention() {
		return
	}
	targets, err := p.ds.ListsContaining(ctx, author.ID)
	if err != nil {
		logrus.Errorf("fanout %s: lists containing %s err: %v", status.ID, author.ID, err)
		return
	}
	for _, target := range targets {
		owner, err := p.ds.GetAccountByID(ctx, target.OwnerID)
		if err != nil || !owner.Local() || !owner.Available() {
			continue
		}
		if owner.ID != author.ID && !p.gate.Authorize(ctx, owner, status, author, nil) {
			continue
		}
		feed := model.FeedRef{RecipientID: owner.ID, Kind: model.FeedKindList, ListID: target.ListID}
		entry := &model.FeedEntry{RecipientID: owner.ID, StatusID: status.ID}
		created, err := p.putWithRetry(ctx, feed, entry)
		if err != nil {
			mu.Lock()
			result.Failed = append(result.Failed, owner.ID)
			mu.Unlock()
			continue
		}
		if created && owner.ID != author.ID {
			// the list's own notify flag decides here, not the follow edge
			pref, err := p.ds.NotifyPreference(ctx, model.NotifyKindList, owner.ID, target.ListID)
			if err != nil {
				logrus.Debugf("notify preference for list %s err: %v", target.ListID, err)
				continue
			}
			if pref.Notify {
				p.raise(ctx, status, author, owner.ID, model.NotificationStatus)
			}
		}
	}
}

// CleanupStatus removes a deleted status from every feed it reached,
// including entries written by fan-out racing the deletion.
func (p *FanoutPipeline) CleanupStatus(ctx context.Context, statusID string) error {
	if err := p.feeds.RemoveStatus(ctx, statusID); err != nil {
		return errcode.FeedRemoveFailed.WithDetails(err.Error())
	}
	return nil
}

// Unmerge drops an unfollowed author's recent statuses from one home feed.
func (p *FanoutPipeline) Unmerge(ctx context.Context, recipientID, authorID string, limit int) error {
	statuses, err := p.ds.GetStatuses(&model.ConditionsT{
		"query": bson.M{"author_id": authorID},
		"ORDER": bson.M{"_id": -1},
	}, 0, limit)
	if err != nil {
		return errcode.GetStatusFailed.WithDetails(err.Error())
	}
	ids := make([]string, 0, len(statuses))
	for _, status := range statuses {
		ids = append(ids, status.ID)
	}
	feed := model.FeedRef{RecipientID: recipientID, Kind: model.FeedKindHome}
	if err = p.feeds.RemoveMany(ctx, feed, ids); err != nil {
		return errcode.FeedRemoveFailed.WithDetails(err.Error())
	}
	return nil
}
