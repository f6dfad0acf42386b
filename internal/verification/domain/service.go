package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service is the verification orchestrator: credential validation, admission,
// feature extraction, scoring, and the audit trail behind one boundary.
type Service interface {
	// Verify runs the classification pipeline for one session. Validation
	// failures collapse into ErrUnauthorized; admission failures return a
	// *RateLimitError carrying the quota snapshot; everything downstream
	// degrades instead of failing the call.
	Verify(ctx context.Context, req VerifyRequest) (*Result, error)

	// Activate handles the script bootstrap call.
	Activate(ctx context.Context, req ActivateRequest) (*Activation, error)

	// RecentRecords reads the newest audit lines for a tenant.
	RecentRecords(ctx context.Context, tenantID string, limit int) ([]VerificationRecord, error)

	// PurgeRecords deletes audit lines older than the cutoff.
	PurgeRecords(ctx context.Context, cutoff time.Time) (int64, error)
}

type VerifyRequest struct {
	SecretToken string
	OriginURL   string
	SessionID   string
	Telemetry   map[string]any
}

type ActivateRequest struct {
	SecretToken string
	WebsiteURL  string
	SessionID   string
}

// Result is the decision returned to the caller.
type Result struct {
	SessionID      string  `json:"sessionId"`
	IsHuman        bool    `json:"isHuman"`
	Confidence     float64 `json:"confidence"`
	RiskScore      float64 `json:"riskScore"`
	ResponseTimeMs int64   `json:"responseTimeMs"`
}

// Activation is the script bootstrap response.
type Activation struct {
	SessionID string         `json:"sessionId"`
	WebsiteID string         `json:"websiteId"`
	Config    map[string]any `json:"config"`
}

var (
	// ErrUnauthorized deliberately hides which validation sub-check failed.
	ErrUnauthorized = errors.New("invalid_or_expired_credential")
	ErrRateLimited  = errors.New("rate_limited")
)

// RateLimitError carries the quota snapshot surfaced with a 429.
type RateLimitError struct {
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate_limited: limit=%d remaining=%d", e.Limit, e.Remaining)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
