package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/scopeline/scopeline/internal/accountctx"
	entitlementdomain "github.com/scopeline/scopeline/internal/entitlement/domain"
)

func (s *Server) ListFeatures(c *gin.Context) {
	features, err := s.entitlementSvc.ListFeatures(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": features})
}

func (s *Server) UpsertFeature(c *gin.Context) {
	var req entitlementdomain.UpsertFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	feature, err := s.entitlementSvc.UpsertFeature(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if caller, ok := accountctx.ActorFromContext(c.Request.Context()); ok {
		targetID := feature.ProductCode
		if feature.FeatureCode != nil {
			targetID += ":" + *feature.FeatureCode
		}
		s.audit(c, caller.AccountID, "entitlements.feature.upsert", "feature", targetID, nil)
	}

	c.JSON(http.StatusOK, gin.H{"data": feature})
}

func (s *Server) ListEntitlements(c *gin.Context) {
	accountID, err := s.requestAccount(c, c.Query("account_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entitlements, err := s.entitlementSvc.ListEntitlements(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entitlements})
}

func (s *Server) GrantEntitlement(c *gin.Context) {
	var req entitlementdomain.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	accountID, err := s.requestAccount(c, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.AccountID = accountID
	if caller, ok := accountctx.ActorFromContext(c.Request.Context()); ok {
		req.ActorID = caller.UserID
	}

	entitlement, err := s.entitlementSvc.GrantEntitlement(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "entitlements.grant", "entitlement", entitlement.ID, map[string]any{
		"product_code": entitlement.ProductCode,
		"source":       entitlement.Source,
		"enabled":      entitlement.Enabled,
	})

	c.JSON(http.StatusOK, gin.H{"data": entitlement})
}

func (s *Server) RevokeEntitlement(c *gin.Context) {
	accountID, err := s.requestAccount(c, c.Query("account_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entitlementID := strings.TrimSpace(c.Param("id"))
	if err := s.entitlementSvc.RevokeEntitlement(c.Request.Context(), accountID, entitlementID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, accountID, "entitlements.revoke", "entitlement", entitlementID, nil)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"revoked": true}})
}

func (s *Server) EffectiveEntitlementConfig(c *gin.Context) {
	var query struct {
		AccountID   string `form:"account_id"`
		ProductCode string `form:"product_code"`
		FeatureCode string `form:"feature_code"`
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

	req := entitlementdomain.EffectiveConfigRequest{
		AccountID:   accountID,
		ProductCode: strings.TrimSpace(query.ProductCode),
	}
	if code := strings.TrimSpace(query.FeatureCode); code != "" {
		req.FeatureCode = &code
	}

	resp, err := s.entitlementSvc.EffectiveConfig(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
