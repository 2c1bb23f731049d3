package model

// Visibility is the coarse access policy of a status. The set is closed:
// dispatching code switches over every variant and treats an unknown value
// as Direct, never as Public.
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityUnlisted
	// VisibilityPublicUnlisted is public for local and friend servers only.
	VisibilityPublicUnlisted
	// VisibilityLogin is readable by any authenticated local account.
	VisibilityLogin
	VisibilityPrivate
	VisibilityLimited
	VisibilityDirect
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityUnlisted:
		return "unlisted"
	case VisibilityPublicUnlisted:
		return "public_unlisted"
	case VisibilityLogin:
		return "login"
	case VisibilityPrivate:
		return "private"
	case VisibilityLimited:
		return "limited"
	case VisibilityDirect:
		return "direct"
	}
	return "unknown"
}

// RequiresMention reports whether only explicitly addressed accounts may
// view the status.
func (v Visibility) RequiresMention() bool {
	return v == VisibilityLimited || v == VisibilityDirect
}

// Broadcast reports whether local delivery targets the whole local account
// population rather than a materialized recipient set.
func (v Visibility) Broadcast() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPublicUnlisted, VisibilityLogin:
		return true
	case VisibilityPrivate, VisibilityLimited, VisibilityDirect:
		return false
	}
	return false
}

// LimitedScope sub-classifies limited visibility and selects the recipient
// resolution strategy.
type LimitedScope uint8

const (
	LimitedScopeNone LimitedScope = iota
	LimitedScopeMutual
	LimitedScopeCircle
	LimitedScopeReply
)

func (s LimitedScope) String() string {
	switch s {
	case LimitedScopeMutual:
		return "mutual"
	case LimitedScopeCircle:
		return "circle"
	case LimitedScopeReply:
		return "reply"
	case LimitedScopeNone:
		return "none"
	}
	return "none"
}

// Searchability governs who can find a status via search, independent of
// who can view it. SearchabilityDefault means the status carried no
// directive and the account or system default applies.
type Searchability uint8

const (
	SearchabilityDefault Searchability = iota
	SearchabilityPublic
	SearchabilityPublicUnlisted
	SearchabilityPrivate
	SearchabilityLimited
	SearchabilityDirect
)

func (s Searchability) String() string {
	switch s {
	case SearchabilityPublic:
		return "public"
	case SearchabilityPublicUnlisted:
		return "public_unlisted"
	case SearchabilityPrivate:
		return "private"
	case SearchabilityLimited:
		return "limited"
	case SearchabilityDirect:
		return "direct"
	case SearchabilityDefault:
		return "default"
	}
	return "default"
}
