package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
)

var errStubLookup = errors.New("stub lookup failed")

func edgeKey(from, to string) string {
	return from + "->" + to
}

// stubData is an in-memory core.DataService for engine tests.
type stubData struct {
	statuses     map[string]*model.Status
	accounts     map[string]*model.Account
	follows      map[string]*model.Follow
	blocks       map[string]bool
	mutes        map[string]*model.Mute
	domainBlocks map[string]bool
	serverBlocks map[string]*model.ServerDomainBlock
	circles      map[string][]string
	listTargets  map[string][]*model.ListTarget
	listNotify   map[string]bool
	filters      map[string][]*model.CustomFilter
	localIDs     []string

	// relationErr makes every edge lookup fail.
	relationErr bool
}

func newStubData() *stubData {
	return &stubData{
		statuses:     make(map[string]*model.Status),
		accounts:     make(map[string]*model.Account),
		follows:      make(map[string]*model.Follow),
		blocks:       make(map[string]bool),
		mutes:        make(map[string]*model.Mute),
		domainBlocks: make(map[string]bool),
		serverBlocks: make(map[string]*model.ServerDomainBlock),
		circles:      make(map[string][]string),
		listTargets:  make(map[string][]*model.ListTarget),
		listNotify:   make(map[string]bool),
		filters:      make(map[string][]*model.CustomFilter),
	}
}

var _ core.DataService = (*stubData)(nil)

func (s *stubData) addAccount(account *model.Account) *model.Account {
	s.accounts[account.ID] = account
	if account.Local() {
		s.localIDs = append(s.localIDs, account.ID)
		sort.Strings(s.localIDs)
	}
	return account
}

func (s *stubData) addFollow(from, to string) {
	s.follows[edgeKey(from, to)] = &model.Follow{AccountID: from, TargetID: to}
}

func (s *stubData) GetStatusByID(_ context.Context, id string) (*model.Status, error) {
	status, ok := s.statuses[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return status, nil
}

func (s *stubData) GetStatuses(conditions *model.ConditionsT, _, limit int) ([]*model.Status, error) {
	query := (*conditions)["query"]
	var want map[string]struct{}
	if cond, ok := query["_id"].(bson.M); ok {
		if ids, ok := cond["$in"].([]string); ok {
			want = make(map[string]struct{}, len(ids))
			for _, id := range ids {
				want[id] = struct{}{}
			}
		}
	}
	var out []*model.Status
	for _, status := range s.statuses {
		if want != nil {
			if _, ok := want[status.ID]; !ok {
				continue
			}
		}
		if authorID, ok := query["author_id"]; ok && status.AuthorID != authorID {
			continue
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubData) CreateStatus(_ context.Context, status *model.Status) (*model.Status, error) {
	s.statuses[status.ID] = status
	return status, nil
}

func (s *stubData) DeleteStatus(_ context.Context, status *model.Status) error {
	delete(s.statuses, status.ID)
	return nil
}

func (s *stubData) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return account, nil
}

func (s *stubData) GetAccountsByIDs(_ context.Context, ids []string) ([]*model.Account, error) {
	var out []*model.Account
	for _, id := range ids {
		if account, ok := s.accounts[id]; ok {
			out = append(out, account)
		}
	}
	return out, nil
}

func (s *stubData) CreateAccount(_ context.Context, account *model.Account) (*model.Account, error) {
	s.addAccount(account)
	return account, nil
}

func (s *stubData) ListLocalAccountIDs(_ context.Context, sinceID string, limit int) ([]string, error) {
	var out []string
	for _, id := range s.localIDs {
		if sinceID != "" && id <= sinceID {
			continue
		}
		out = append(out, id)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubData) Following(_ context.Context, accountID, targetID string) (bool, error) {
	if s.relationErr {
		return false, errStubLookup
	}
	_, ok := s.follows[edgeKey(accountID, targetID)]
	return ok, nil
}

func (s *stubData) FollowedBy(ctx context.Context, accountID, targetID string) (bool, error) {
	return s.Following(ctx, targetID, accountID)
}

func (s *stubData) Blocking(_ context.Context, accountID, targetID string) (bool, error) {
	if s.relationErr {
		return false, errStubLookup
	}
	return s.blocks[edgeKey(accountID, targetID)], nil
}

func (s *stubData) Muting(_ context.Context, accountID, targetID string) (bool, error) {
	if s.relationErr {
		return false, errStubLookup
	}
	_, ok := s.mutes[edgeKey(accountID, targetID)]
	return ok, nil
}

func (s *stubData) DomainBlocking(_ context.Context, accountID, domain string) (bool, error) {
	if s.relationErr {
		return false, errStubLookup
	}
	return s.domainBlocks[edgeKey(accountID, domain)], nil
}

func (s *stubData) RelationsMap(ctx context.Context, viewerID string, authorIDs []string, domains []string) (*model.RelationSnapshot, error) {
	snap := model.NewRelationSnapshot(viewerID)
	for _, id := range authorIDs {
		snap.Cover(id)
		if v, _ := s.Following(ctx, viewerID, id); v {
			snap.Set(model.RelationFollowing, id, true)
		}
		if v, _ := s.Blocking(ctx, viewerID, id); v {
			snap.Set(model.RelationBlocking, id, true)
		}
		if v, _ := s.Blocking(ctx, id, viewerID); v {
			snap.Set(model.RelationBlockedBy, id, true)
		}
		if v, _ := s.Muting(ctx, viewerID, id); v {
			snap.Set(model.RelationMuting, id, true)
		}
	}
	for _, domain := range domains {
		snap.Cover(domain)
		if v, _ := s.DomainBlocking(ctx, viewerID, domain); v {
			snap.Set(model.RelationDomainBlocking, domain, true)
		}
	}
	return snap, nil
}

func (s *stubData) FollowerIDs(_ context.Context, targetID, sinceID string, limit int) ([]string, error) {
	var out []string
	for _, follow := range s.follows {
		if follow.TargetID == targetID {
			out = append(out, follow.AccountID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *stubData) MutualIDs(ctx context.Context, accountID string) ([]string, error) {
	var out []string
	for _, follow := range s.follows {
		if follow.AccountID != accountID {
			continue
		}
		if back, _ := s.Following(ctx, follow.TargetID, accountID); back {
			out = append(out, follow.TargetID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *stubData) GetFollow(_ context.Context, accountID, targetID string) (*model.Follow, error) {
	follow, ok := s.follows[edgeKey(accountID, targetID)]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return follow, nil
}

func (s *stubData) GetMute(_ context.Context, accountID, targetID string) (*model.Mute, error) {
	mute, ok := s.mutes[edgeKey(accountID, targetID)]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return mute, nil
}

func (s *stubData) ServerDomainBlock(_ context.Context, domain string) (*model.ServerDomainBlock, error) {
	block, ok := s.serverBlocks[domain]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return block, nil
}

func (s *stubData) NotifyPreference(_ context.Context, kind model.RelationKind, recipientID, sourceID string) (*model.NotificationPreference, error) {
	pref := &model.NotificationPreference{Kind: kind, RecipientID: recipientID, SourceID: sourceID}
	switch kind {
	case model.NotifyKindFollow:
		follow, ok := s.follows[edgeKey(recipientID, sourceID)]
		pref.Notify = ok && follow.Notify
	case model.NotifyKindList:
		pref.Notify = s.listNotify[sourceID]
	}
	return pref, nil
}

func (s *stubData) GetCircle(_ context.Context, circleID string) (*model.Circle, error) {
	if _, ok := s.circles[circleID]; !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &model.Circle{ID: circleID}, nil
}

func (s *stubData) CircleMemberIDs(_ context.Context, circleID string) ([]string, error) {
	return s.circles[circleID], nil
}

func (s *stubData) ListsContaining(_ context.Context, authorID string) ([]*model.ListTarget, error) {
	return s.listTargets[authorID], nil
}

func (s *stubData) ActiveFilters(_ context.Context, accountID string) ([]*model.CompiledFilter, error) {
	rows := s.filters[accountID]
	out := make([]*model.CompiledFilter, 0, len(rows))
	for _, row := range rows {
		cf, err := row.Compile()
		if err != nil {
			continue
		}
		out = append(out, cf)
	}
	return out, nil
}

func (s *stubData) CreateFilter(_ context.Context, filter *model.CustomFilter) (*model.CustomFilter, error) {
	s.filters[filter.AccountID] = append(s.filters[filter.AccountID], filter)
	return filter, nil
}

func (s *stubData) DeleteFilter(_ context.Context, filter *model.CustomFilter) error {
	rows := s.filters[filter.AccountID]
	for i, row := range rows {
		if row.ID == filter.ID {
			s.filters[filter.AccountID] = append(rows[:i], rows[i+1:]...)
			break
		}
	}
	return nil
}

// stubFeedStore is an in-memory core.FeedService with ZAddNX semantics:
// inserting an existing member reports created=false.
type stubFeedStore struct {
	mu      sync.Mutex
	entries map[string]map[string]*model.FeedEntry

	failPuts int
}

func newStubFeedStore() *stubFeedStore {
	return &stubFeedStore{entries: make(map[string]map[string]*model.FeedEntry)}
}

var _ core.FeedService = (*stubFeedStore)(nil)

func feedName(feed model.FeedRef) string {
	if feed.Kind == model.FeedKindList {
		return "list:" + feed.RecipientID + ":" + feed.ListID
	}
	return "home:" + feed.RecipientID
}

func (s *stubFeedStore) Put(_ context.Context, feed model.FeedRef, entry *model.FeedEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPuts > 0 {
		s.failPuts--
		return false, errStubLookup
	}
	key := feedName(feed)
	m, ok := s.entries[key]
	if !ok {
		m = make(map[string]*model.FeedEntry)
		s.entries[key] = m
	}
	if _, exists := m[entry.StatusID]; exists {
		return false, nil
	}
	m[entry.StatusID] = entry
	return true, nil
}

func (s *stubFeedStore) Remove(_ context.Context, feed model.FeedRef, statusID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries[feedName(feed)], statusID)
	return nil
}

func (s *stubFeedStore) Range(_ context.Context, feed model.FeedRef, maxID, minID string, limit int) ([]*model.FeedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.entries[feedName(feed)] {
		if maxID != "" && id >= maxID {
			continue
		}
		if minID != "" && id <= minID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*model.FeedEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entries[feedName(feed)][id])
	}
	return out, nil
}

func (s *stubFeedStore) RemoveStatus(_ context.Context, statusID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.entries {
		delete(m, statusID)
	}
	return nil
}

func (s *stubFeedStore) RemoveMany(_ context.Context, feed model.FeedRef, statusIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range statusIDs {
		delete(s.entries[feedName(feed)], id)
	}
	return nil
}

func (s *stubFeedStore) has(feed model.FeedRef, statusID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[feedName(feed)][statusID]
	return ok
}

// stubNotifier records raised notifications.
type stubNotifier struct {
	mu     sync.Mutex
	raised []*model.Notification
}

var _ core.NotifyService = (*stubNotifier)(nil)

func (s *stubNotifier) Raise(_ context.Context, notification *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raised = append(s.raised, notification)
	return nil
}

func (s *stubNotifier) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.raised)
}
