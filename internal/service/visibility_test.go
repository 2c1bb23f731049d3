package service

import (
	"testing"

	"fedipush-backend/internal/model"
)

const (
	asPublic      = "https://www.w3.org/ns/activitystreams#Public"
	followersURI  = "https://fedi.example.com/users/alice/followers"
	localPublic   = "http://fedibird.com/ns#LocalPublic"
	loginMarker   = "http://fedibird.com/ns#LoginOnly"
	limitedMarker = "http://fedibird.com/ns#Limited"
)

func TestClassifyAudience(t *testing.T) {
	tests := []struct {
		name  string
		in    AudienceInput
		want  model.Visibility
		scope model.LimitedScope
	}{
		{
			name: "public in to",
			in:   AudienceInput{To: []string{asPublic}},
			want: model.VisibilityPublic,
		},
		{
			name: "public short form",
			in:   AudienceInput{To: []string{"as:Public"}},
			want: model.VisibilityPublic,
		},
		{
			name: "public in cc is unlisted",
			in:   AudienceInput{To: []string{followersURI}, Cc: []string{asPublic}, FollowersURI: followersURI},
			want: model.VisibilityUnlisted,
		},
		{
			name: "local public from friend server",
			in:   AudienceInput{To: []string{localPublic}, FriendServer: true},
			want: model.VisibilityPublicUnlisted,
		},
		{
			name: "local public from stranger falls through",
			in:   AudienceInput{To: []string{localPublic}},
			want: model.VisibilityDirect,
		},
		{
			name: "login only",
			in:   AudienceInput{To: []string{loginMarker}, FriendServer: true},
			want: model.VisibilityLogin,
		},
		{
			name: "followers collection is private",
			in:   AudienceInput{To: []string{followersURI}, FollowersURI: followersURI},
			want: model.VisibilityPrivate,
		},
		{
			name:  "limited mutual scope",
			in:    AudienceInput{To: []string{limitedMarker}, LimitedScope: model.LimitedScopeMutual},
			want:  model.VisibilityLimited,
			scope: model.LimitedScopeMutual,
		},
		{
			name: "mentions only is direct",
			in:   AudienceInput{To: []string{"https://other.example/users/bob"}},
			want: model.VisibilityDirect,
		},
		{
			name: "empty addressing fails closed",
			in:   AudienceInput{},
			want: model.VisibilityDirect,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, scope := ClassifyAudience(tt.in)
			if got != tt.want {
				t.Errorf("visibility = %s, want %s", got, tt.want)
			}
			if scope != tt.scope {
				t.Errorf("scope = %s, want %s", scope, tt.scope)
			}
		})
	}
}

func TestClassifySearchability(t *testing.T) {
	tests := []struct {
		name string
		in   AudienceInput
		want model.Searchability
	}{
		{
			name: "absent directive",
			in:   AudienceInput{},
			want: model.SearchabilityDefault,
		},
		{
			name: "public",
			in:   AudienceInput{SearchableBy: []string{asPublic}, HasSearchableBy: true},
			want: model.SearchabilityPublic,
		},
		{
			name: "followers",
			in:   AudienceInput{SearchableBy: []string{followersURI}, HasSearchableBy: true, FollowersURI: followersURI},
			want: model.SearchabilityPrivate,
		},
		{
			name: "explicit empty is direct",
			in:   AudienceInput{SearchableBy: []string{}, HasSearchableBy: true},
			want: model.SearchabilityDirect,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifySearchability(tt.in); got != tt.want {
				t.Errorf("searchability = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDeriveSearchability(t *testing.T) {
	author := &model.Account{ID: "alice"}

	if got := DeriveSearchability(AudienceInput{SearchableBy: []string{asPublic}, HasSearchableBy: true}, author, model.VisibilityPublic); got != model.SearchabilityPublic {
		t.Errorf("explicit directive: got %s", got)
	}

	bioAuthor := &model.Account{ID: "bob", Bio: "hi searchable_by_followers_only"}
	if got := DeriveSearchability(AudienceInput{}, bioAuthor, model.VisibilityPublic); got != model.SearchabilityPrivate {
		t.Errorf("bio fallback: got %s", got)
	}

	legacy := &model.Account{ID: "carol", NoSearchabilitySoftware: true}
	if got := DeriveSearchability(AudienceInput{}, legacy, model.VisibilityPublic); got != model.SearchabilityPublic {
		t.Errorf("legacy public: got %s", got)
	}
	if got := DeriveSearchability(AudienceInput{}, legacy, model.VisibilityPrivate); got != model.SearchabilityLimited {
		t.Errorf("legacy private: got %s", got)
	}

	if got := DeriveSearchability(AudienceInput{}, author, model.VisibilityPublic); got != model.SearchabilityDefault {
		t.Errorf("no signal: got %s", got)
	}
}
