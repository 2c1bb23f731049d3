package core

type DataService interface {
	StatusService
	StatusManageService

	AccountService

	RelationService
	MembershipService

	FilterService
}
