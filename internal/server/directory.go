package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	directorydomain "github.com/scopeline/scopeline/internal/directory/domain"
)

type upsertTeamRequest struct {
	AccountID      string `json:"account_id,omitempty"`
	TeamID         string `json:"team_id"`
	OrganizationID string `json:"organization_id"`
}

func (s *Server) UpsertDirectoryTeam(c *gin.Context) {
	var req upsertTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	teamID := strings.TrimSpace(req.TeamID)
	if err := s.directorySvc.UpsertTeam(c.Request.Context(), directorydomain.UpsertTeamRequest{
		AccountID:      accountID,
		TeamID:         teamID,
		OrganizationID: strings.TrimSpace(req.OrganizationID),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "directory.team.upsert", "team", teamID, map[string]any{
		"organization_id": strings.TrimSpace(req.OrganizationID),
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"team_id": teamID}})
}

type upsertMembershipRequest struct {
	AccountID      string `json:"account_id,omitempty"`
	UserID         string `json:"user_id"`
	TeamID         string `json:"team_id"`
	OrganizationID string `json:"organization_id"`
}

func (s *Server) UpsertDirectoryMembership(c *gin.Context) {
	var req upsertMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if err := s.directorySvc.UpsertMembership(c.Request.Context(), directorydomain.UpsertMembershipRequest{
		AccountID:      accountID,
		UserID:         userID,
		TeamID:         strings.TrimSpace(req.TeamID),
		OrganizationID: strings.TrimSpace(req.OrganizationID),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "directory.membership.upsert", "membership", userID, map[string]any{
		"team_id":         strings.TrimSpace(req.TeamID),
		"organization_id": strings.TrimSpace(req.OrganizationID),
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user_id": userID}})
}
