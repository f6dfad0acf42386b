package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	verificationdomain "github.com/smallbiznis/botsense/internal/verification/domain"
)

type activateRequest struct {
	WebsiteURL string `json:"websiteUrl"`
	SessionID  string `json:"sessionId"`
}

// ActivateScript bootstraps an embedded script session. First call on a
// pending credential flips it active; repeat calls return the same config.
func (s *Server) ActivateScript(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		AbortWithError(c, ErrMissingToken)
		return
	}

	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	activation, err := s.verifySvc.Activate(c.Request.Context(), verificationdomain.ActivateRequest{
		SecretToken: token,
		WebsiteURL:  firstNonEmpty(c.GetHeader("Origin"), req.WebsiteURL),
		SessionID:   req.SessionID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, activation)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
