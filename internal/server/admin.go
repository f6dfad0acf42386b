package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
	"github.com/smallbiznis/botsense/internal/ratelimit"
	tenantdomain "github.com/smallbiznis/botsense/internal/tenant/domain"
	verificationdomain "github.com/smallbiznis/botsense/internal/verification/domain"
)

type issueCredentialRequest struct {
	ScriptVariant string `json:"scriptVariant"`
}

func (s *Server) CreateTenant(c *gin.Context) {
	var req tenantdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	tenant, err := s.tenantSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tenant)
}

func (s *Server) IssueCredential(c *gin.Context) {
	var req issueCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	variant := credentialdomain.ScriptVariant(req.ScriptVariant)
	if variant == "" {
		variant = credentialdomain.VariantStandard
	}

	cred, err := s.credentialSvc.Issue(c.Request.Context(), c.Param("id"), variant)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cred)
}

func (s *Server) RevokeCredential(c *gin.Context) {
	existed, err := s.credentialSvc.Revoke(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !existed {
		AbortWithError(c, credentialdomain.ErrTenantNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": true})
}

func (s *Server) GetCredential(c *gin.Context) {
	cred, err := s.credentialSvc.GetByTenant(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if cred == nil {
		AbortWithError(c, credentialdomain.ErrTenantNotFound)
		return
	}

	c.JSON(http.StatusOK, cred)
}

func (s *Server) ListVerifications(c *gin.Context) {
	tenantID := c.Param("id")
	if decision := s.limiter.Admit(c.Request.Context(), tenantID, ratelimit.OpAnalytics); !decision.Allowed {
		AbortWithError(c, &verificationdomain.RateLimitError{
			Limit:      decision.Limit,
			Remaining:  decision.Remaining,
			RetryAfter: decision.ResetAfter,
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := s.verifySvc.RecentRecords(c.Request.Context(), tenantID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}
