package core

import (
	"fedipush-backend/internal/model"

	"github.com/Masterminds/semver/v3"
)

type (
	Status           = model.Status
	Account          = model.Account
	Audience         = model.Audience
	FeedEntry        = model.FeedEntry
	FeedRef          = model.FeedRef
	CompiledFilter   = model.CompiledFilter
	FilterMatch      = model.FilterMatch
	Notification     = model.Notification
	RelationSnapshot = model.RelationSnapshot
	ConditionsT      = model.ConditionsT
)

const (
	FeedKindHome = model.FeedKindHome
	FeedKindList = model.FeedKindList
)

// VersionInfo identifies a servant implementation at startup.
type VersionInfo interface {
	Name() string
	Version() *semver.Version
}
