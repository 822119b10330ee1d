package domain

import (
	"errors"
	"strings"
)

// Type tags a scope. Scopes form a strict hierarchy per account:
// user → team → group → account.
type Type string

const (
	TypeUser    Type = "user"
	TypeTeam    Type = "team"
	TypeGroup   Type = "group"
	TypeAccount Type = "account"
)

// ParseType normalizes a raw scope type. Parsing is case-insensitive and
// accepts "org"/"organization" as synonyms for group.
func ParseType(raw string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(TypeUser):
		return TypeUser, nil
	case string(TypeTeam):
		return TypeTeam, nil
	case string(TypeGroup), "org", "organization":
		return TypeGroup, nil
	case string(TypeAccount):
		return TypeAccount, nil
	default:
		return "", ErrInvalidScopeType
	}
}

// Rank orders scope types from most specific (user) to broadest (account).
func (t Type) Rank() int {
	switch t {
	case TypeUser:
		return 0
	case TypeTeam:
		return 1
	case TypeGroup:
		return 2
	case TypeAccount:
		return 3
	default:
		return -1
	}
}

// Scope is a tagged principal that budgets, entitlements and model visibility
// attach to.
type Scope struct {
	Type Type   `json:"scope_type"`
	ID   string `json:"scope_id"`
}

// Claims carries the calling actor's directory hints. When the resolved user
// is the caller, claim-provided teams and organizations take precedence over
// persisted memberships; the first listed entry wins.
type Claims struct {
	UserID          string
	TeamIDs         []string
	OrganizationIDs []string
}

var (
	ErrInvalidScopeType = errors.New("invalid_scope_type")
	ErrInvalidScopeID   = errors.New("invalid_scope_id")
	ErrInvalidAccount   = errors.New("invalid_account")
	ErrAccountMismatch  = errors.New("account_mismatch")
)
