package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
	tenantdomain "github.com/smallbiznis/botsense/internal/tenant/domain"
	verificationdomain "github.com/smallbiznis/botsense/internal/verification/domain"
)

var (
	ErrInvalidBody  = errors.New("invalid_body")
	ErrAdminKey     = errors.New("invalid_admin_key")
	ErrMissingToken = errors.New("missing_token")
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

type quotaPayload struct {
	Limit             int64 `json:"limit"`
	Remaining         int64 `json:"remaining"`
	ResetAfterSeconds int64 `json:"reset_after_seconds"`
}

type rateLimitedResponse struct {
	Error errorPayload `json:"error"`
	Quota quotaPayload `json:"quota"`
}

// AbortWithError records err on the gin context so the error handling
// middleware renders a single canonical response for it.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var rl *verificationdomain.RateLimitError
		if errors.As(err, &rl) {
			retryAfter := int64(rl.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.JSON(http.StatusTooManyRequests, rateLimitedResponse{
				Error: errorPayload{Type: "rate_limited", Message: "request rate limit exceeded"},
				Quota: quotaPayload{
					Limit:             rl.Limit,
					Remaining:         rl.Remaining,
					ResetAfterSeconds: retryAfter,
				},
			})
			return
		}

		status, payload := mapError(err)
		c.JSON(status, errorResponse{Error: payload})
	}
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, verificationdomain.ErrUnauthorized),
		errors.Is(err, credentialdomain.ErrInvalidCredential),
		errors.Is(err, credentialdomain.ErrOriginMismatch):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "invalid or expired credential",
		}
	case errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "missing bearer token",
		}
	case errors.Is(err, ErrAdminKey):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "invalid admin key",
		}
	case errors.Is(err, credentialdomain.ErrDuplicateCredential):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "tenant already has a live credential",
		}
	case errors.Is(err, tenantdomain.ErrURLTaken):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "tenant url already registered",
		}
	case errors.Is(err, credentialdomain.ErrTenantNotFound),
		errors.Is(err, tenantdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "tenant not found",
		}
	case errors.Is(err, credentialdomain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "store_unavailable",
			Message: "credential store unavailable",
		}
	case errors.Is(err, tenantdomain.ErrInvalidName),
		errors.Is(err, tenantdomain.ErrInvalidURL),
		errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: fmt.Sprintf("unexpected error: %v", err),
		}
	}
}
