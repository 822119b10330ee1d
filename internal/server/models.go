package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/scopeline/scopeline/internal/accountctx"
	modeldomain "github.com/scopeline/scopeline/internal/modelcatalog/domain"
)

func (s *Server) ListModelCatalog(c *gin.Context) {
	models, err := s.modelSvc.ListCatalog(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": models})
}

func (s *Server) UpsertCatalogModel(c *gin.Context) {
	var req modeldomain.UpsertModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ModelID = strings.TrimSpace(c.Param("code"))

	model, err := s.modelSvc.UpsertCatalogModel(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if caller, ok := accountctx.ActorFromContext(c.Request.Context()); ok {
		s.audit(c, caller.AccountID, "models.catalog.upsert", "catalog_model", model.ModelID, map[string]any{
			"display_name": model.DisplayName,
			"enabled":      model.Enabled,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": model})
}

func (s *Server) GetModelSets(c *gin.Context) {
	accountID, err := s.requestAccount(c, c.Query("account_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sets, err := s.modelSvc.GetSets(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sets})
}

type setModelsRequest struct {
	AccountID string   `json:"account_id,omitempty"`
	Models    []string `json:"models"`
}

func (s *Server) SetModelEligibility(c *gin.Context) {
	s.setModelSet(c, s.modelSvc.SetEligibility, "models.eligibility.set")
}

func (s *Server) SetModelSelection(c *gin.Context) {
	s.setModelSet(c, s.modelSvc.SetSelection, "models.selection.set")
}

func (s *Server) setModelSet(
	c *gin.Context,
	apply func(context.Context, modeldomain.SetModelsRequest) (*modeldomain.ModelSetResponse, error),
	action string,
) {
	var req setModelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	set := modeldomain.SetModelsRequest{
		AccountID: accountID,
		Models:    req.Models,
	}
	if caller, ok := accountctx.ActorFromContext(c.Request.Context()); ok {
		set.ActorID = caller.UserID
	}

	resp, err := apply(c.Request.Context(), set)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, action, "model_set", string(resp.Kind), map[string]any{
		"models": resp.Models,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setOverrideRequest struct {
	AccountID string   `json:"account_id,omitempty"`
	ScopeType string   `json:"scope_type"`
	ScopeID   string   `json:"scope_id"`
	Models    []string `json:"models"`
}

func (s *Server) SetModelOverride(c *gin.Context) {
	var req setOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	override := modeldomain.SetOverrideRequest{
		AccountID: accountID,
		ScopeType: strings.TrimSpace(req.ScopeType),
		ScopeID:   strings.TrimSpace(req.ScopeID),
		Models:    req.Models,
	}
	if caller, ok := accountctx.ActorFromContext(c.Request.Context()); ok {
		override.ActorID = caller.UserID
	}

	resp, err := s.modelSvc.SetOverride(c.Request.Context(), override)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "models.override.set", "model_override", string(resp.ScopeType)+":"+resp.ScopeID, map[string]any{
		"models": resp.Models,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteModelOverride(c *gin.Context) {
	accountID, err := s.requestAccount(c, c.Query("account_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	scopeType := strings.TrimSpace(c.Query("scope_type"))
	scopeID := strings.TrimSpace(c.Query("scope_id"))
	if err := s.modelSvc.DeleteOverride(c.Request.Context(), accountID, scopeType, scopeID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "models.override.delete", "model_override", scopeType+":"+scopeID, nil)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ListModelOverrides(c *gin.Context) {
	accountID, err := s.requestAccount(c, c.Query("account_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	overrides, err := s.modelSvc.ListOverrides(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": overrides})
}

func (s *Server) EffectiveModels(c *gin.Context) {
	var query struct {
		AccountID      string `form:"account_id"`
		UserID         string `form:"user_id"`
		TeamID         string `form:"team_id"`
		OrganizationID string `form:"organization_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, query.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := modeldomain.EffectiveModelsRequest{
		AccountID:      accountID,
		UserID:         strings.TrimSpace(query.UserID),
		TeamID:         strings.TrimSpace(query.TeamID),
		OrganizationID: strings.TrimSpace(query.OrganizationID),
	}
	if req.UserID == "" {
		if caller, ok := accountctx.ActorFromContext(c.Request.Context()); ok {
			req.UserID = caller.UserID
		}
	}

	models, err := s.modelSvc.EffectiveModels(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": models})
}
