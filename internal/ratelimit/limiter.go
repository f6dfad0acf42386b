package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/botsense/internal/clock"
	"github.com/smallbiznis/botsense/internal/config"
	obsmetrics "github.com/smallbiznis/botsense/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Operation classes with independent hourly ceilings.
const (
	OpVerify    = "verify"
	OpAnalytics = "analytics"
	OpDashboard = "dashboard"
)

const keyTenantWindow = "ratelimit:%s:%s"

type window interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*Decision, error)
}

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	Client  *redis.Client       `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// TenantLimiter enforces per-tenant, per-operation-class admission. When the
// backing store is unreachable it fails open: availability of the
// classification path outranks admission-control accuracy.
type TenantLimiter struct {
	enabled bool
	log     *zap.Logger
	metrics *obsmetrics.Metrics
	window  window
	span    time.Duration
	limits  map[string]int64
}

func New(p Params) *TenantLimiter {
	limitCfg := p.Cfg.RateLimit
	if !limitCfg.Enabled {
		return &TenantLimiter{enabled: false}
	}

	var w window
	if p.Client != nil {
		w = NewFixedWindow(p.Client)
	} else {
		w = NewMemoryWindow(p.Clock)
	}

	return &TenantLimiter{
		enabled: true,
		log:     p.Log.Named("ratelimit"),
		metrics: p.Metrics,
		window:  w,
		span:    limitCfg.Window,
		limits: map[string]int64{
			OpVerify:    limitCfg.VerifyLimit,
			OpAnalytics: limitCfg.AnalyticsLimit,
			OpDashboard: limitCfg.DashboardLimit,
		},
	}
}

// Enabled reports whether admission control is active.
func (l *TenantLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Admit increments the tenant's window counter for the operation class and
// reports whether the post-increment count is inside the ceiling.
func (l *TenantLimiter) Admit(ctx context.Context, tenantID, opClass string) *Decision {
	if !l.Enabled() {
		return &Decision{Allowed: true}
	}

	tenantID = strings.TrimSpace(tenantID)
	limit, ok := l.limits[opClass]
	if !ok || limit <= 0 {
		return &Decision{Allowed: true}
	}

	key := fmt.Sprintf(keyTenantWindow, opClass, tenantID)
	decision, err := l.window.Allow(ctx, key, limit, l.span)
	if err != nil {
		// Fail open: a store outage must not block the classification path.
		l.log.Warn("rate limit check failed, admitting",
			zap.String("tenant_id", tenantID),
			zap.String("op_class", opClass),
			zap.Error(err),
		)
		return &Decision{Allowed: true, Limit: limit}
	}

	if decision.Allowed {
		l.metrics.RecordRateLimitAllowed(ctx, tenantID, opClass)
	} else {
		l.metrics.RecordRateLimitDenied(ctx, tenantID, opClass)
		l.log.Warn("rate limit exceeded",
			zap.String("tenant_id", tenantID),
			zap.String("op_class", opClass),
			zap.Int64("limit", limit),
		)
	}
	return decision
}
