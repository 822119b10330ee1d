package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scopeline/scopeline/internal/actor"
	auditdomain "github.com/scopeline/scopeline/internal/audit/domain"
	budgetdomain "github.com/scopeline/scopeline/internal/budget/domain"
	directorydomain "github.com/scopeline/scopeline/internal/directory/domain"
	entitlementdomain "github.com/scopeline/scopeline/internal/entitlement/domain"
	modeldomain "github.com/scopeline/scopeline/internal/modelcatalog/domain"
	scopedomain "github.com/scopeline/scopeline/internal/scope/domain"
	"github.com/scopeline/scopeline/pkg/db"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
)

var validationErrs = []error{
	ErrInvalidRequest,
	scopedomain.ErrInvalidScopeType,
	scopedomain.ErrInvalidScopeID,
	scopedomain.ErrInvalidAccount,
	scopedomain.ErrAccountMismatch,
	budgetdomain.ErrInvalidAccount,
	budgetdomain.ErrInvalidScopeID,
	budgetdomain.ErrAccountScopeNotAllowed,
	budgetdomain.ErrInvalidCredits,
	budgetdomain.ErrInvalidFactor,
	budgetdomain.ErrInvalidCost,
	budgetdomain.ErrInvalidModel,
	budgetdomain.ErrNoUsers,
	budgetdomain.ErrOverAllocated,
	budgetdomain.ErrInvalidThreshold,
	budgetdomain.ErrInvalidID,
	modeldomain.ErrInvalidAccount,
	modeldomain.ErrInvalidModelID,
	modeldomain.ErrInvalidName,
	modeldomain.ErrInvalidScopeID,
	modeldomain.ErrUnknownModel,
	modeldomain.ErrNotEligible,
	entitlementdomain.ErrInvalidAccount,
	entitlementdomain.ErrInvalidSource,
	entitlementdomain.ErrInvalidProductCode,
	entitlementdomain.ErrInvalidFeatureCode,
	entitlementdomain.ErrInvalidConfig,
	entitlementdomain.ErrInvalidWindow,
	entitlementdomain.ErrInvalidID,
	auditdomain.ErrInvalidAccount,
	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidTimeRange,
	directorydomain.ErrInvalidAccount,
	directorydomain.ErrInvalidTeamID,
	directorydomain.ErrInvalidUserID,
}

var notFoundErrs = []error{
	budgetdomain.ErrNotFound,
	modeldomain.ErrNotFound,
	entitlementdomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

// ErrorHandlingMiddleware converts errors attached via c.Error into a JSON
// error response once the handler chain finishes.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	case errors.Is(err, ErrUnauthorized), errors.Is(err, actor.ErrInvalidToken), errors.Is(err, actor.ErrMissingAccount):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "authentication required"}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: "insufficient role"}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{Type: "rate_limited", Message: "too many requests"}
	case matchesAny(err, notFoundErrs):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case matchesAny(err, validationErrs):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}
	case db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: "duplicate resource"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
