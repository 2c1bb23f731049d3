package errcode

var (
	GetStatusFailed    = NewError(30001, "Get Status Failed")
	CreateStatusFailed = NewError(30002, "Create Status Failed")
	DeleteStatusFailed = NewError(30003, "Delete Status Failed")
	StatusGone         = NewError(30004, "Status Gone")
	AuthorGone         = NewError(30005, "Author Gone")

	ResolveAudienceFailed = NewError(40001, "Resolve Audience Failed")
	CircleGone            = NewError(40002, "Circle Gone")

	FeedWriteFailed   = NewError(50001, "Feed Write Failed")
	FeedRemoveFailed  = NewError(50002, "Feed Remove Failed")
	NotifyRaiseFailed = NewError(50003, "Notify Raise Failed")
	FanoutAborted     = NewError(50004, "Fanout Aborted")
	FanoutRateLimited = NewError(50005, "Fanout Rate Limited")

	GetRelationsFailed  = NewError(60001, "Get Relations Failed")
	GetFiltersFailed    = NewError(60002, "Get Filters Failed")
	CompileFilterFailed = NewError(60003, "Compile Filter Failed")
)
