package monogo

import (
	"github.com/Masterminds/semver/v3"
	"go.mongodb.org/mongo-driver/mongo"

	"fedipush-backend/internal/conf"
	"fedipush-backend/internal/core"
)

var (
	_ core.DataService = (*dataServant)(nil)
	_ core.VersionInfo = (*dataServant)(nil)
)

type dataServant struct {
	core.StatusService
	core.StatusManageService
	core.AccountService
	core.RelationService
	core.MembershipService
	core.FilterService
}

func NewDataService() (core.DataService, core.VersionInfo) {
	db := conf.MustMongoDB()
	ds := &dataServant{
		StatusService:       newStatusService(db),
		StatusManageService: newStatusManageService(db),
		AccountService:      newAccountService(db),
		RelationService:     newRelationService(db),
		MembershipService:   newMembershipService(db),
		FilterService:       newFilterService(db),
	}
	return ds, ds
}

func NewFilterServiceWith(db *mongo.Database) core.FilterService {
	return newFilterService(db)
}

func (s *dataServant) Name() string {
	return "Mongo"
}

func (s *dataServant) Version() *semver.Version {
	return semver.MustParse("v0.1.0")
}
