package service

import (
	"regexp"
	"strings"

	"fedipush-backend/internal/model"
)

// AudienceInput is the parsed addressing of one incoming status object.
// HasSearchableBy distinguishes an explicit empty searchable-audience from
// an absent one.
type AudienceInput struct {
	To              []string
	Cc              []string
	SearchableBy    []string
	HasSearchableBy bool
	// FollowersURI is the author's followers collection.
	FollowersURI string
	// LimitedScope is set when the object carries an explicit scope marker.
	LimitedScope model.LimitedScope
	// FriendServer marks delivery from a federated friend server, which is
	// the only context where local-public markers are honored.
	FriendServer bool
}

const activityStreamsPublic = "https://www.w3.org/ns/activitystreams#Public"

func containsPublic(uris []string) bool {
	for _, uri := range uris {
		switch uri {
		case activityStreamsPublic, "as:Public", "Public":
			return true
		}
	}
	return false
}

// containsMarker matches extension markers by name, accepting the bare
// name, a prefixed "ns:Name" form, and full URIs ending in #Name or /Name.
func containsMarker(uris []string, name string) bool {
	for _, uri := range uris {
		if uri == name ||
			strings.HasSuffix(uri, ":"+name) ||
			strings.HasSuffix(uri, "#"+name) ||
			strings.HasSuffix(uri, "/"+name) {
			return true
		}
	}
	return false
}

func contains(uris []string, target string) bool {
	if target == "" {
		return false
	}
	for _, uri := range uris {
		if uri == target {
			return true
		}
	}
	return false
}

// ClassifyAudience maps raw addressing to a visibility class, first match
// wins. Malformed or empty audience data lands on Direct: classification
// fails closed, never open.
func ClassifyAudience(in AudienceInput) (model.Visibility, model.LimitedScope) {
	switch {
	case containsPublic(in.To):
		return model.VisibilityPublic, model.LimitedScopeNone
	case containsMarker(in.To, "LocalPublic") && in.FriendServer:
		return model.VisibilityPublicUnlisted, model.LimitedScopeNone
	case containsPublic(in.Cc):
		return model.VisibilityUnlisted, model.LimitedScopeNone
	case containsMarker(in.To, "LoginOnly"):
		return model.VisibilityLogin, model.LimitedScopeNone
	case contains(in.To, in.FollowersURI):
		return model.VisibilityPrivate, model.LimitedScopeNone
	}
	if in.LimitedScope != model.LimitedScopeNone {
		return model.VisibilityLimited, in.LimitedScope
	}
	return model.VisibilityDirect, model.LimitedScopeNone
}

// ClassifySearchability maps an explicit searchable-audience through the
// same ladder. It returns SearchabilityDefault when the status carried no
// directive; DeriveSearchability applies the fallback chain.
func ClassifySearchability(in AudienceInput) model.Searchability {
	if !in.HasSearchableBy {
		return model.SearchabilityDefault
	}
	switch {
	case containsPublic(in.SearchableBy):
		return model.SearchabilityPublic
	case containsMarker(in.SearchableBy, "LocalPublic") && in.FriendServer:
		return model.SearchabilityPublicUnlisted
	case containsMarker(in.SearchableBy, "Limited"):
		return model.SearchabilityLimited
	case contains(in.SearchableBy, in.FollowersURI):
		return model.SearchabilityPrivate
	}
	return model.SearchabilityDirect
}

var bioSearchabilityRe = regexp.MustCompile(`searchable_by_(all_users|followers_only|reacted_users|nobody)`)

// searchabilityFromBio is a legacy compatibility shim: some accounts carry
// a searchability directive as a bio token instead of addressing metadata.
func searchabilityFromBio(bio string) model.Searchability {
	m := bioSearchabilityRe.FindStringSubmatch(bio)
	if m == nil {
		return model.SearchabilityDefault
	}
	switch m[1] {
	case "all_users":
		return model.SearchabilityPublic
	case "followers_only":
		return model.SearchabilityPrivate
	case "reacted_users":
		return model.SearchabilityLimited
	case "nobody":
		return model.SearchabilityDirect
	}
	return model.SearchabilityDefault
}

// DeriveSearchability resolves the effective searchability of a status:
// explicit audience directive, then the bio token shim, then a
// visibility-derived value for software with no searchability concept,
// then absent (the account or system default applies downstream).
func DeriveSearchability(in AudienceInput, author *model.Account, visibility model.Visibility) model.Searchability {
	if s := ClassifySearchability(in); s != model.SearchabilityDefault {
		return s
	}
	if s := searchabilityFromBio(author.Bio); s != model.SearchabilityDefault {
		return s
	}
	if author.NoSearchabilitySoftware {
		switch visibility {
		case model.VisibilityPublic, model.VisibilityUnlisted:
			return model.SearchabilityPublic
		default:
			return model.SearchabilityLimited
		}
	}
	return model.SearchabilityDefault
}
