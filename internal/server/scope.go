package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/scopeline/scopeline/internal/accountctx"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
)

type resolveScopeRequest struct {
	AccountID string `json:"account_id,omitempty"`
	ScopeType string `json:"scope_type"`
	ScopeID   string `json:"scope_id"`
}

func (s *Server) ResolveScopeChain(c *gin.Context) {
	var req resolveScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var claims *scopedomain.Claims
	if caller, ok := accountctx.ActorFromContext(c.Request.Context()); ok && caller.UserID != "" {
		claims = &scopedomain.Claims{
			UserID:          caller.UserID,
			TeamIDs:         caller.TeamIDs,
			OrganizationIDs: caller.OrganizationIDs,
		}
	}

	chain, err := s.scopeSvc.Resolve(c.Request.Context(), scopedomain.ResolveRequest{
		AccountID: accountID,
		ScopeType: strings.TrimSpace(req.ScopeType),
		ScopeID:   strings.TrimSpace(req.ScopeID),
		Claims:    claims,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": chain})
}
