package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	verificationdomain "github.com/smallbiznis/botsense/internal/verification/domain"
)

type verifyRequest struct {
	SessionID string         `json:"sessionId"`
	Telemetry map[string]any `json:"telemetry"`
}

// Verify scores one telemetry payload against the tenant's credential.
func (s *Server) Verify(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		AbortWithError(c, ErrMissingToken)
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	result, err := s.verifySvc.Verify(c.Request.Context(), verificationdomain.VerifyRequest{
		SecretToken: token,
		OriginURL:   c.GetHeader("Origin"),
		SessionID:   req.SessionID,
		Telemetry:   req.Telemetry,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
