package model

// RelationKind names one directed relation edge type.
type RelationKind string

const (
	RelationFollowing      RelationKind = "following"
	RelationFollowedBy     RelationKind = "followed_by"
	RelationBlocking       RelationKind = "blocking"
	RelationBlockedBy      RelationKind = "blocked_by"
	RelationMuting         RelationKind = "muting"
	RelationDomainBlocking RelationKind = "domain_blocking"
)

// RelationSnapshot is a batch preload of the relation edges one viewer holds
// against a set of authors, built once per page and handed to the gate so
// list rendering does not pay one lookup per status per viewer. Authors not
// covered by the snapshot must be looked up live; Covers tells them apart
// from a preloaded negative.
type RelationSnapshot struct {
	ViewerID string

	edges   map[RelationKind]map[string]bool
	covered map[string]bool
}

func NewRelationSnapshot(viewerID string) *RelationSnapshot {
	return &RelationSnapshot{
		ViewerID: viewerID,
		edges:    make(map[RelationKind]map[string]bool),
		covered:  make(map[string]bool),
	}
}

// Cover marks an author id (or, for domain edges, a domain) as preloaded so
// a missing edge reads as a definite "no relation".
func (s *RelationSnapshot) Cover(keys ...string) {
	for _, key := range keys {
		s.covered[key] = true
	}
}

func (s *RelationSnapshot) Covers(key string) bool {
	return s.covered[key]
}

func (s *RelationSnapshot) Set(kind RelationKind, key string, val bool) {
	m, ok := s.edges[kind]
	if !ok {
		m = make(map[string]bool)
		s.edges[kind] = m
	}
	m[key] = val
}

func (s *RelationSnapshot) get(kind RelationKind, key string) bool {
	return s.edges[kind][key]
}

func (s *RelationSnapshot) Following(authorID string) bool {
	return s.get(RelationFollowing, authorID)
}

func (s *RelationSnapshot) FollowedBy(authorID string) bool {
	return s.get(RelationFollowedBy, authorID)
}

func (s *RelationSnapshot) Blocking(authorID string) bool {
	return s.get(RelationBlocking, authorID)
}

func (s *RelationSnapshot) BlockedBy(authorID string) bool {
	return s.get(RelationBlockedBy, authorID)
}

func (s *RelationSnapshot) Muting(authorID string) bool {
	return s.get(RelationMuting, authorID)
}

func (s *RelationSnapshot) DomainBlocking(domain string) bool {
	return s.get(RelationDomainBlocking, domain)
}
