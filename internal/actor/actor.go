package actor

import "errors"

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleMember     = "member"
)

// Actor is the authenticated caller. Scope claims carried by the credential
// feed chain resolution without a directory round trip.
type Actor struct {
	AccountID       string
	Role            string
	UserID          string
	TeamIDs         []string
	OrganizationIDs []string
}

func (a *Actor) IsSuperAdmin() bool {
	return a != nil && a.Role == RoleSuperAdmin
}

func (a *Actor) IsAdmin() bool {
	return a != nil && (a.Role == RoleAdmin || a.Role == RoleSuperAdmin)
}

var (
	ErrInvalidToken   = errors.New("invalid_token")
	ErrMissingAccount = errors.New("missing_account")
)
