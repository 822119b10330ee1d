package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scopeline/scopeline/internal/accountctx"
	auditdomain "github.com/scopeline/scopeline/internal/audit/domain"
)

const dateOnlyLayout = "2006-01-02"

// requestAccount returns the account the request operates on. Regular callers
// are pinned to their own account; super admins may target another account by
// passing an explicit account_id.
func (s *Server) requestAccount(c *gin.Context, override string) (string, error) {
	caller, ok := accountctx.ActorFromContext(c.Request.Context())
	if !ok {
		return "", ErrUnauthorized
	}

	override = strings.TrimSpace(override)
	if override == "" || override == caller.AccountID {
		return caller.AccountID, nil
	}
	if !caller.IsSuperAdmin() {
		return "", ErrForbidden
	}
	return override, nil
}

// audit records an administrative action. Best effort: the append path logs
// its own failures and must never fail the request.
func (s *Server) audit(c *gin.Context, accountID, action, targetType, targetID string, metadata map[string]any) {
	caller, _ := accountctx.ActorFromContext(c.Request.Context())
	req := auditdomain.AppendRequest{
		AccountID:  accountID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
	}
	if caller != nil {
		req.ActorID = caller.UserID
		req.ActorRole = caller.Role
	}
	_ = s.auditSvc.Append(c.Request.Context(), req)
}

func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse(dateOnlyLayout, trimmed)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	}
	return &parsed, nil
}
