package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/botsense/internal/classifier"
	"github.com/smallbiznis/botsense/internal/clock"
	"github.com/smallbiznis/botsense/internal/config"
	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
	"github.com/smallbiznis/botsense/internal/liveevents"
	obsmetrics "github.com/smallbiznis/botsense/internal/observability/metrics"
	"github.com/smallbiznis/botsense/internal/ratelimit"
	"github.com/smallbiznis/botsense/internal/telemetry"
	"github.com/smallbiznis/botsense/internal/tenantctx"
	verificationdomain "github.com/smallbiznis/botsense/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	Clock       clock.Clock
	DB          *gorm.DB
	GenID       *snowflake.Node
	Repo        verificationdomain.Repository
	Credentials credentialdomain.Service
	Limiter     *ratelimit.TenantLimiter
	Classifier  *classifier.Adapter
	Hub         *liveevents.Hub
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	clock       clock.Clock
	db          *gorm.DB
	genID       *snowflake.Node
	repo        verificationdomain.Repository
	credentials credentialdomain.Service
	limiter     *ratelimit.TenantLimiter
	classifier  *classifier.Adapter
	hub         *liveevents.Hub
	metrics     *obsmetrics.Metrics
	scoreBudget time.Duration
}

func New(p Params) verificationdomain.Service {
	return &Service{
		log:         p.Log.Named("verification.service"),
		clock:       p.Clock,
		db:          p.DB,
		genID:       p.GenID,
		repo:        p.Repo,
		credentials: p.Credentials,
		limiter:     p.Limiter,
		classifier:  p.Classifier,
		hub:         p.Hub,
		metrics:     p.Metrics,
		scoreBudget: p.Cfg.Verify.ClassifierTimeout,
	}
}

// Verify runs the pipeline: validate credential, admit, extract, score,
// audit. Steps after admission degrade instead of failing the call; the
// caller always gets a decision once the credential and quota checks pass.
func (s *Service) Verify(ctx context.Context, req verificationdomain.VerifyRequest) (*verificationdomain.Result, error) {
	start := time.Now()

	valid, cred := s.credentials.Validate(ctx, req.SecretToken, req.OriginURL)
	if !valid {
		return nil, verificationdomain.ErrUnauthorized
	}
	tenantID := cred.TenantID.String()
	ctx = tenantctx.WithTenantID(ctx, int64(cred.TenantID))

	decision := s.limiter.Admit(ctx, tenantID, ratelimit.OpVerify)
	if !decision.Allowed {
		return nil, &verificationdomain.RateLimitError{
			Limit:      decision.Limit,
			Remaining:  decision.Remaining,
			RetryAfter: decision.ResetAfter,
		}
	}

	payload := req.Telemetry
	if payload == nil {
		payload = map[string]any{}
	}
	features, err := telemetry.Extract(payload)
	if err != nil {
		// Extraction only rejects non-object payloads, which the transport
		// already filtered; absorb anyway and classify on defaults.
		features, _ = telemetry.Extract(map[string]any{})
	}

	score := s.score(ctx, features)

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	responseTime := time.Since(start).Milliseconds()

	s.persistRecord(ctx, cred, sessionID, features, score, responseTime)

	result := &verificationdomain.Result{
		SessionID:      sessionID,
		IsHuman:        score.IsHuman,
		Confidence:     score.Confidence,
		RiskScore:      1 - score.Confidence,
		ResponseTimeMs: responseTime,
	}

	s.hub.Publish(tenantID, liveevents.VerificationEvent{
		SessionID:      sessionID,
		TenantID:       tenantID,
		IsHuman:        result.IsHuman,
		Confidence:     result.Confidence,
		RiskScore:      result.RiskScore,
		ResponseTimeMs: responseTime,
		Timestamp:      s.clock.Now().Format(time.RFC3339),
	})
	s.metrics.RecordVerification(ctx, tenantID, result.IsHuman, responseTime)

	return result, nil
}

func (s *Service) Activate(ctx context.Context, req verificationdomain.ActivateRequest) (*verificationdomain.Activation, error) {
	s.credentials.Activate(ctx, req.SecretToken, req.WebsiteURL)

	// Re-read after the transition attempt so a repeat bootstrap call from an
	// already-active integration still gets its config back.
	cred, err := s.credentials.GetBySecret(ctx, req.SecretToken)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.State != credentialdomain.StateActive {
		return nil, verificationdomain.ErrUnauthorized
	}
	if !credentialdomain.OriginAllowed(cred.TenantURL, req.WebsiteURL, false) {
		return nil, verificationdomain.ErrUnauthorized
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return &verificationdomain.Activation{
		SessionID: sessionID,
		WebsiteID: cred.TenantID.String(),
		Config:    cred.Config,
	}, nil
}

func (s *Service) RecentRecords(ctx context.Context, tenantID string, limit int) ([]verificationdomain.VerificationRecord, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil {
		return nil, nil
	}
	return s.repo.ListByTenant(ctx, s.db, parsed, limit)
}

func (s *Service) PurgeRecords(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, s.db, cutoff)
}

// score bounds the classifier step. Timeouts and classifier faults both fall
// back to the neutral default decision rather than failing the caller.
func (s *Service) score(ctx context.Context, features map[string]float64) classifier.Score {
	neutral := classifier.Score{IsHuman: true, Confidence: 0.5}

	type outcome struct {
		score classifier.Score
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		sc, err := s.classifier.Score(features)
		ch <- outcome{sc, err}
	}()

	budget := s.scoreBudget
	if budget <= 0 {
		budget = 300 * time.Millisecond
	}
	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			s.metrics.RecordClassifierDegraded(ctx, "fault")
			s.log.Warn("classifier fault, using neutral default", zap.Error(out.err))
			return neutral
		}
		return out.score
	case <-timer.C:
		s.metrics.RecordClassifierDegraded(ctx, "timeout")
		s.log.Warn("classifier timed out, using neutral default")
		return neutral
	}
}

func (s *Service) persistRecord(ctx context.Context, cred *credentialdomain.Credential, sessionID string, features map[string]float64, score classifier.Score, responseTime int64) {
	vector := make(datatypes.JSONMap, len(features))
	for name, value := range features {
		vector[name] = value
	}

	record := &verificationdomain.VerificationRecord{
		ID:             s.genID.Generate(),
		SessionID:      sessionID,
		TenantID:       cred.TenantID,
		Timestamp:      s.clock.Now(),
		FeatureVector:  vector,
		IsHuman:        score.IsHuman,
		Confidence:     score.Confidence,
		ResponseTimeMs: responseTime,
	}

	// Best effort: the caller already has a valid decision, so an audit
	// write failure is logged, not surfaced.
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		s.log.Error("verification record persist failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}
