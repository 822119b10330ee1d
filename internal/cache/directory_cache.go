package cache

import (
	"strings"
	"time"

	directorydomain "github.com/scopeline/scopeline/internal/directory/domain"
)

const (
	defaultTeamTTL = 5 * time.Minute
	defaultUserTTL = 1 * time.Minute
)

// DirectoryCache stores hot-path directory lookups for scope resolution.
type DirectoryCache interface {
	GetTeam(accountID, teamID string) (*directorydomain.TeamInfo, bool)
	SetTeam(accountID, teamID string, team *directorydomain.TeamInfo)
	GetUser(accountID, userID string) (*directorydomain.UserInfo, bool)
	SetUser(accountID, userID string, user *directorydomain.UserInfo)
}

type directoryCache struct {
	teams   Cache[string, *directorydomain.TeamInfo]
	users   Cache[string, *directorydomain.UserInfo]
	teamTTL time.Duration
	userTTL time.Duration
}

// NewDirectoryCache returns an in-memory cache tuned for scope resolution.
func NewDirectoryCache() DirectoryCache {
	return &directoryCache{
		teams:   NewTTLCache[string, *directorydomain.TeamInfo](),
		users:   NewTTLCache[string, *directorydomain.UserInfo](),
		teamTTL: defaultTeamTTL,
		userTTL: defaultUserTTL,
	}
}

func (c *directoryCache) GetTeam(accountID, teamID string) (*directorydomain.TeamInfo, bool) {
	return c.teams.Get(cacheKey(accountID, teamID))
}

func (c *directoryCache) SetTeam(accountID, teamID string, team *directorydomain.TeamInfo) {
	if team == nil {
		return
	}
	c.teams.Set(cacheKey(accountID, teamID), team, c.teamTTL)
}

func (c *directoryCache) GetUser(accountID, userID string) (*directorydomain.UserInfo, bool) {
	return c.users.Get(cacheKey(accountID, userID))
}

func (c *directoryCache) SetUser(accountID, userID string, user *directorydomain.UserInfo) {
	if user == nil {
		return
	}
	c.users.Set(cacheKey(accountID, userID), user, c.userTTL)
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, "|")
}
