package service

import (
	"context"
	"strings"
	"time"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
)

// FilterEngine evaluates a viewer's custom filters against a status. A
// match is an annotation, never a hard deny: callers decide whether
// "filtered" means hide, warn or drop from notifications.
type FilterEngine struct {
	filters core.FilterService
}

func NewFilterEngine(filters core.FilterService) *FilterEngine {
	return &FilterEngine{
		filters: filters,
	}
}

// Annotate matches the compiled filter list against the status text in the
// given viewing context. Pure in-memory evaluation, no suspension.
func (e *FilterEngine) Annotate(filters []*model.CompiledFilter, status *model.Status, viewContext string, followingAuthor, authorLocal bool) []model.FilterMatch {
	if len(filters) == 0 {
		return nil
	}
	now := time.Now()
	text := filterText(status)

	var matches []model.FilterMatch
	for _, filter := range filters {
		if filter.Expired(now) {
			continue
		}
		if !filter.AppliesTo(viewContext) {
			continue
		}
		if filter.ExcludeFollows && followingAuthor {
			continue
		}
		if filter.ExcludeLocalusers && authorLocal {
			continue
		}
		if filter.Matches(text) {
			matches = append(matches, model.FilterMatch{
				FilterID: filter.ID,
				Keyword:  filter.Phrase,
			})
		}
	}
	return matches
}

// AnnotateFor fetches the viewer's active filters and evaluates them.
func (e *FilterEngine) AnnotateFor(ctx context.Context, viewerID string, status *model.Status, viewContext string, followingAuthor, authorLocal bool) ([]model.FilterMatch, error) {
	filters, err := e.filters.ActiveFilters(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return e.Annotate(filters, status, viewContext, followingAuthor, authorLocal), nil
}

// filterText is the normalized match target: status text, content warning
// and poll options.
func filterText(status *model.Status) string {
	parts := make([]string, 0, 2+len(status.PollOptions))
	parts = append(parts, status.Content, status.Summary)
	parts = append(parts, status.PollOptions...)
	return strings.Join(parts, "\n")
}
