package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/botsense/internal/liveevents"
	"github.com/smallbiznis/botsense/internal/ratelimit"
	verificationdomain "github.com/smallbiznis/botsense/internal/verification/domain"
)

const sseHeartbeatInterval = 15 * time.Second

// StreamVerificationEvents streams live verification decisions for one tenant
// over SSE. New subscribers first receive the buffered backlog.
func (s *Server) StreamVerificationEvents(c *gin.Context) {
	tenantID := c.Param("tenantID")

	if decision := s.limiter.Admit(c.Request.Context(), tenantID, ratelimit.OpDashboard); !decision.Allowed {
		AbortWithError(c, &verificationdomain.RateLimitError{
			Limit:      decision.Limit,
			Remaining:  decision.Remaining,
			RetryAfter: decision.ResetAfter,
		})
		return
	}

	if s.liveEvents == nil {
		AbortWithError(c, fmt.Errorf("live events unavailable"))
		return
	}

	sub, backlog, err := s.liveEvents.Subscribe(tenantID)
	if err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		return
	}

	fmt.Fprint(c.Writer, "retry: 2000\n\n")
	for _, event := range backlog {
		writeSSEEvent(c, event)
	}
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-sub.Events():
			if !open {
				return
			}
			writeSSEEvent(c, event)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(c *gin.Context, event liveevents.VerificationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
}
