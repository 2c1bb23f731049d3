package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fedipush-backend/internal/model"
)

func newTestPipeline(data *stubData, feeds *stubFeedStore, notifier *stubNotifier) *FanoutPipeline {
	return NewFanoutPipeline(data, feeds, data, notifier, nil, 2, 10, 2, time.Millisecond, 0)
}

func homeFeed(recipientID string) model.FeedRef {
	return model.FeedRef{RecipientID: recipientID, Kind: model.FeedKindHome}
}

func TestFanoutPrivateDelivery(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	follower := data.addAccount(&model.Account{ID: "bob"})
	stranger := data.addAccount(&model.Account{ID: "carol"})
	data.addFollow(follower.ID, author.ID)

	status := &model.Status{ID: model.NewID(), AuthorID: author.ID, Visibility: model.VisibilityPrivate}
	data.statuses[status.ID] = status

	pipeline := newTestPipeline(data, feeds, notifier)
	result, err := pipeline.Run(ctx, status.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failed) != 0 {
		t.Errorf("failed = %v", result.Failed)
	}
	if !feeds.has(homeFeed(follower.ID), status.ID) {
		t.Error("follower feed missing the status")
	}
	if !feeds.has(homeFeed(author.ID), status.ID) {
		t.Error("author feed missing the status")
	}
	if feeds.has(homeFeed(stranger.ID), status.ID) {
		t.Error("stranger must not receive a private status")
	}
}

func TestFanoutBroadcastReachesAllLocals(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	other := data.addAccount(&model.Account{ID: "bob"})
	remote := data.addAccount(&model.Account{ID: "carol", Domain: "remote.example"})
	blocked := data.addAccount(&model.Account{ID: "dave"})
	data.blocks[edgeKey(author.ID, blocked.ID)] = true

	status := &model.Status{ID: model.NewID(), AuthorID: author.ID, Visibility: model.VisibilityPublic}
	data.statuses[status.ID] = status

	pipeline := newTestPipeline(data, feeds, notifier)
	if _, err := pipeline.Run(ctx, status.ID); err != nil {
		t.Fatal(err)
	}
	if !feeds.has(homeFeed(author.ID), status.ID) || !feeds.has(homeFeed(other.ID), status.ID) {
		t.Error("local accounts should receive a public status")
	}
	if feeds.has(homeFeed(remote.ID), status.ID) {
		t.Error("remote accounts have no local feed")
	}
	if feeds.has(homeFeed(blocked.ID), status.ID) {
		t.Error("blocked account must not receive the status")
	}
}

func TestFanoutIdempotentRedelivery(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	follower := data.addAccount(&model.Account{ID: "bob"})
	data.addFollow(follower.ID, author.ID)
	data.follows[edgeKey(follower.ID, author.ID)].Notify = true

	status := &model.Status{ID: model.NewID(), AuthorID: author.ID, Visibility: model.VisibilityPrivate}
	data.statuses[status.ID] = status

	pipeline := newTestPipeline(data, feeds, notifier)
	if _, err := pipeline.Run(ctx, status.ID); err != nil {
		t.Fatal(err)
	}
	if notifier.count() != 1 {
		t.Fatalf("first run should notify once, got %d", notifier.count())
	}

	// crash-retry of the same job re-runs the whole pipeline
	if _, err := pipeline.Run(ctx, status.ID); err != nil {
		t.Fatal(err)
	}
	if notifier.count() != 1 {
		t.Errorf("redelivery must not notify again, got %d", notifier.count())
	}
}

func TestFanoutConcurrentRunsNotifyOnce(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	follower := data.addAccount(&model.Account{ID: "bob"})
	data.addFollow(follower.ID, author.ID)
	data.follows[edgeKey(follower.ID, author.ID)].Notify = true

	status := &model.Status{ID: model.NewID(), AuthorID: author.ID, Visibility: model.VisibilityPrivate}
	data.statuses[status.ID] = status

	pipeline := newTestPipeline(data, feeds, notifier)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pipeline.Run(ctx, status.ID)
		}()
	}
	wg.Wait()

	if notifier.count() != 1 {
		t.Errorf("concurrent runs should produce one notification, got %d", notifier.count())
	}
}

func TestFanoutMuteSuppression(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	fullMuter := data.addAccount(&model.Account{ID: "bob"})
	notifMuter := data.addAccount(&model.Account{ID: "carol"})
	data.addFollow(fullMuter.ID, author.ID)
	data.addFollow(notifMuter.ID, author.ID)
	data.follows[edgeKey(notifMuter.ID, author.ID)].Notify = true
	data.mutes[edgeKey(fullMuter.ID, author.ID)] = &model.Mute{AccountID: fullMuter.ID, TargetID: author.ID}
	data.mutes[edgeKey(notifMuter.ID, author.ID)] = &model.Mute{AccountID: notifMuter.ID, TargetID: author.ID, NotificationsOnly: true}

	status := &model.Status{ID: model.NewID(), AuthorID: author.ID, Visibility: model.VisibilityPrivate}
	data.statuses[status.ID] = status

	pipeline := newTestPipeline(data, feeds, notifier)
	if _, err := pipeline.Run(ctx, status.ID); err != nil {
		t.Fatal(err)
	}
	if feeds.has(homeFeed(fullMuter.ID), status.ID) {
		t.Error("full mute should suppress the feed write")
	}
	if !feeds.has(homeFeed(notifMuter.ID), status.ID) {
		t.Error("notifications-only mute should still deliver the entry")
	}
	if notifier.count() != 0 {
		t.Errorf("muted recipients should not be notified, got %d", notifier.count())
	}
}

func TestFanoutMentionNotification(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	mentioned := data.addAccount(&model.Account{ID: "bob"})

	status := &model.Status{
		ID: model.NewID(), AuthorID: author.ID, Visibility: model.VisibilityDirect,
		Mentions: []model.Mention{{AccountID: mentioned.ID}},
	}
	data.statuses[status.ID] = status

	pipeline := newTestPipeline(data, feeds, notifier)
	if _, err := pipeline.Run(ctx, status.ID); err != nil {
		t.Fatal(err)
	}
	if !feeds.has(homeFeed(mentioned.ID), status.ID) {
		t.Error("mentioned account should receive the status")
	}
	if notifier.count() != 1 {
		t.Fatalf("want one notification, got %d", notifier.count())
	}
	if notifier.raised[0].Type != model.NotificationMention {
		t.Errorf("type = %s, want mention", notifier.raised[0].Type)
	}
}

func TestFanoutRetriesExhaustedCollectsFailure(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	mentioned := data.addAccount(&model.Account{ID: "bob"})

	status := &model.Status{
		ID: model.NewID(), AuthorID: author.ID, Visibility: model.VisibilityDirect,
		Mentions: []model.Mention{{AccountID: mentioned.ID}},
	}
	data.statuses[status.ID] = status

	// maxRetries is 2, so 3 attempts per put; two recipients, fail them all
	feeds.failPuts = 6
	pipeline := NewFanoutPipeline(data, feeds, data, notifier, nil, 1, 10, 2, time.Millisecond, 0)
	result, err := pipeline.Run(ctx, status.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failed) != 2 {
		t.Errorf("failed = %v, want both recipients", result.Failed)
	}
	if notifier.count() != 0 {
		t.Errorf("failed writes must not notify, got %d", notifier.count())
	}
}

func TestFanoutRetryRecovers(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	mentioned := data.addAccount(&model.Account{ID: "bob"})

	status := &model.Status{
		ID: model.NewID(), AuthorID: author.ID, Visibility: model.VisibilityDirect,
		Mentions: []model.Mention{{AccountID: mentioned.ID}},
	}
	data.statuses[status.ID] = status

	feeds.failPuts = 1
	pipeline := NewFanoutPipeline(data, feeds, data, notifier, nil, 1, 10, 2, time.Millisecond, 0)
	result, err := pipeline.Run(ctx, status.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failed) != 0 {
		t.Errorf("transient failure should recover, failed = %v", result.Failed)
	}
	if !feeds.has(homeFeed(mentioned.ID), status.ID) && !feeds.has(homeFeed(author.ID), status.ID) {
		t.Error("retried write should land")
	}
}

func TestFanoutCircleDeliversToMembers(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}
	setupReadPath(t, data, feeds)

	author := data.addAccount(&model.Account{ID: "alice"})
	memberX := data.addAccount(&model.Account{ID: "xena"})
	memberY := data.addAccount(&model.Account{ID: "yuri"})
	outsider := data.addAccount(&model.Account{ID: "zed"})
	data.circles["c1"] = []string{memberX.ID, memberY.ID}

	status := &model.Status{
		ID:           model.NewID(),
		AuthorID:     author.ID,
		Visibility:   model.VisibilityLimited,
		LimitedScope: model.LimitedScopeCircle,
		CircleID:     "c1",
	}
	if err := materializeLimitedAudience(ctx, status); err != nil {
		t.Fatal(err)
	}
	data.statuses[status.ID] = status

	pipeline := newTestPipeline(data, feeds, notifier)
	result, err := pipeline.Run(ctx, status.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failed) != 0 {
		t.Errorf("failed = %v", result.Failed)
	}
	if result.Delivered != 3 {
		t.Errorf("delivered = %d, want author plus both members", result.Delivered)
	}
	if !feeds.has(homeFeed(memberX.ID), status.ID) {
		t.Error("circle member xena did not receive the circle status")
	}
	if !feeds.has(homeFeed(memberY.ID), status.ID) {
		t.Error("circle member yuri did not receive the circle status")
	}
	if feeds.has(homeFeed(outsider.ID), status.ID) {
		t.Error("outsider must not receive a circle status")
	}
}

func TestFanoutMutualDeliversToMutuals(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}
	setupReadPath(t, data, feeds)

	author := data.addAccount(&model.Account{ID: "alice"})
	mutual := data.addAccount(&model.Account{ID: "mallory"})
	oneway := data.addAccount(&model.Account{ID: "oscar"})
	data.addFollow(author.ID, mutual.ID)
	data.addFollow(mutual.ID, author.ID)
	data.addFollow(oneway.ID, author.ID)

	status := &model.Status{
		ID:           model.NewID(),
		AuthorID:     author.ID,
		Visibility:   model.VisibilityLimited,
		LimitedScope: model.LimitedScopeMutual,
	}
	if err := materializeLimitedAudience(ctx, status); err != nil {
		t.Fatal(err)
	}
	data.statuses[status.ID] = status

	pipeline := newTestPipeline(data, feeds, notifier)
	result, err := pipeline.Run(ctx, status.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !feeds.has(homeFeed(mutual.ID), status.ID) {
		t.Error("mutual follower did not receive the mutual-scope status")
	}
	if feeds.has(homeFeed(oneway.ID), status.ID) {
		t.Error("one-way follower must not receive a mutual-scope status")
	}
	if result.Delivered != 2 {
		t.Errorf("delivered = %d, want author plus the mutual", result.Delivered)
	}
}

func TestFanoutListDelivery(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	owner := data.addAccount(&model.Account{ID: "bob"})
	data.addFollow(owner.ID, author.ID)
	data.listTargets[author.ID] = []*model.ListTarget{{ListID: "l1", OwnerID: owner.ID}}
	data.listNotify["l1"] = true

	status := &model.Status{ID: model.NewID(), AuthorID: author.ID, Visibility: model.VisibilityPublic}
	data.statuses[status.ID] = status

	pipeline := newTestPipeline(data, feeds, notifier)
	if _, err := pipeline.Run(ctx, status.ID); err != nil {
		t.Fatal(err)
	}
	listFeed := model.FeedRef{RecipientID: owner.ID, Kind: model.FeedKindList, ListID: "l1"}
	if !feeds.has(listFeed, status.ID) {
		t.Error("list feed missing the status")
	}
	found := false
	for _, n := range notifier.raised {
		if n.Type == model.NotificationStatus && n.RecipientID == owner.ID {
			found = true
		}
	}
	if !found {
		t.Error("list notify flag should raise a notification")
	}
}

func TestCleanupStatusSweepsAllFeeds(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	follower := data.addAccount(&model.Account{ID: "bob"})
	data.addFollow(follower.ID, author.ID)

	status := &model.Status{ID: model.NewID(), AuthorID: author.ID, Visibility: model.VisibilityPrivate}
	data.statuses[status.ID] = status

	pipeline := newTestPipeline(data, feeds, notifier)
	if _, err := pipeline.Run(ctx, status.ID); err != nil {
		t.Fatal(err)
	}
	if err := pipeline.CleanupStatus(ctx, status.ID); err != nil {
		t.Fatal(err)
	}
	if feeds.has(homeFeed(follower.ID), status.ID) || feeds.has(homeFeed(author.ID), status.ID) {
		t.Error("cleanup should remove the status from every feed")
	}
}

func TestUnmergeDropsAuthorStatuses(t *testing.T) {
	ctx := context.Background()
	data := newStubData()
	feeds := newStubFeedStore()
	notifier := &stubNotifier{}

	author := data.addAccount(&model.Account{ID: "alice"})
	follower := data.addAccount(&model.Account{ID: "bob"})
	keeper := data.addAccount(&model.Account{ID: "carol"})
	data.addFollow(follower.ID, author.ID)
	data.addFollow(follower.ID, keeper.ID)

	pipeline := newTestPipeline(data, feeds, notifier)
	for _, authorID := range []string{author.ID, keeper.ID} {
		status := &model.Status{ID: model.NewID(), AuthorID: authorID, Visibility: model.VisibilityPrivate}
		data.statuses[status.ID] = status
		if _, err := pipeline.Run(ctx, status.ID); err != nil {
			t.Fatal(err)
		}
	}

	if err := pipeline.Unmerge(ctx, follower.ID, author.ID, 100); err != nil {
		t.Fatal(err)
	}
	for id, status := range data.statuses {
		inFeed := feeds.has(homeFeed(follower.ID), id)
		if status.AuthorID == author.ID && inFeed {
			t.Error("unmerged author's status still in feed")
		}
		if status.AuthorID == keeper.ID && !inFeed {
			t.Error("other author's status should survive the unmerge")
		}
	}
}
