package model

// FeedKind names one recipient-scoped ordered store.
type FeedKind string

const (
	FeedKindHome FeedKind = "home"
	FeedKindList FeedKind = "list"
)

// FeedRef addresses one recipient's feed. ListID is set only for list feeds.
type FeedRef struct {
	RecipientID string
	Kind        FeedKind
	ListID      string
}

// FeedEntry is one status delivered into one recipient's feed, with the
// viewer's filter annotation computed at fan-out time.
type FeedEntry struct {
	RecipientID string        `json:"recipient_id"`
	StatusID    string        `json:"status_id"`
	Filtered    []FilterMatch `json:"filtered,omitempty"`
}

// Audience is the resolved recipient set for one status. It is ephemeral:
// recomputed from the relationship graph at delivery time, never persisted.
type Audience struct {
	StatusID string
	// Broadcast marks visibilities whose local delivery covers the whole
	// local account population; LocalIDs then holds only the direct targets
	// (author and mentions) and the rest is paged in batches.
	Broadcast bool
	LocalIDs  []string
	Domains   []string
}

// Has reports whether accountID is a direct local recipient.
func (a *Audience) Has(accountID string) bool {
	for _, id := range a.LocalIDs {
		if id == accountID {
			return true
		}
	}
	return false
}
