package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botsense/internal/clock"
	"github.com/smallbiznis/botsense/internal/config"
	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
	obsmetrics "github.com/smallbiznis/botsense/internal/observability/metrics"
	tenantdomain "github.com/smallbiznis/botsense/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	secretTokenPrefix    = "bot_live_"
	integrationKeyPrefix = "bot_int_"
	secretTokenBytes     = 32
	integrationKeyBytes  = 16
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Repo    credentialdomain.Repository
	Tenants tenantdomain.Service
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	clock        clock.Clock
	genID        *snowflake.Node
	repo         credentialdomain.Repository
	tenants      tenantdomain.Service
	metrics      *obsmetrics.Metrics
	strictOrigin bool
	defaultTTL   time.Duration
}

func New(p Params) credentialdomain.Service {
	return &Service{
		log:          p.Log.Named("credential.service"),
		clock:        p.Clock,
		genID:        p.GenID,
		repo:         p.Repo,
		tenants:      p.Tenants,
		metrics:      p.Metrics,
		strictOrigin: p.Cfg.Credential.StrictOrigin,
		defaultTTL:   p.Cfg.Credential.DefaultTTL,
	}
}

func (s *Service) Issue(ctx context.Context, tenantID string, variant credentialdomain.ScriptVariant) (*credentialdomain.Credential, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, credentialdomain.ErrTenantNotFound
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, credentialdomain.ErrTenantNotFound
	}

	now := s.clock.Now()
	secret, err := randomToken(secretTokenPrefix, secretTokenBytes)
	if err != nil {
		return nil, err
	}
	integrationKey, err := randomToken(integrationKeyPrefix, integrationKeyBytes)
	if err != nil {
		return nil, err
	}

	if variant == "" {
		variant = credentialdomain.VariantStandard
	}

	cred := &credentialdomain.Credential{
		CredentialID:   s.genID.Generate(),
		TenantID:       tenant.ID,
		TenantName:     tenant.Name,
		TenantURL:      tenant.URL,
		SecretToken:    secret,
		IntegrationKey: integrationKey,
		State:          credentialdomain.StatePending,
		ScriptVariant:  variant,
		CreatedAt:      now,
		Config:         credentialdomain.DefaultConfig(variant),
	}
	if s.defaultTTL > 0 {
		expires := now.Add(s.defaultTTL)
		cred.ExpiresAt = &expires
	}

	// The live-credential check commits in the same atomic step as the
	// write, so two concurrent Issue calls for one tenant cannot both win.
	err = s.repo.Insert(ctx, cred, func(existing *credentialdomain.Credential) error {
		if existing.Live(now) {
			return credentialdomain.ErrDuplicateCredential
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCredentialEvent(ctx, tenantID, "issued")
	s.log.Info("credential issued",
		zap.String("tenant_id", tenantID),
		zap.String("credential_id", cred.CredentialID.String()),
		zap.String("variant", string(variant)),
	)
	return cred, nil
}

func (s *Service) Activate(ctx context.Context, secretToken, originURL string) bool {
	hash := credentialdomain.HashSecretToken(secretToken)
	now := s.clock.Now()

	var activated bool
	_, _, err := s.repo.Mutate(ctx, hash, func(cred *credentialdomain.Credential) (bool, error) {
		if cred.State != credentialdomain.StatePending || cred.TimeExpired(now) {
			return false, nil
		}
		if !credentialdomain.OriginAllowed(cred.TenantURL, originURL, s.strictOrigin) {
			return false, nil
		}
		cred.State = credentialdomain.StateActive
		stamp := now
		cred.ActivatedAt = &stamp
		cred.LastUsedAt = &stamp
		activated = true
		return true, nil
	})
	if err != nil {
		s.log.Warn("credential activation failed", zap.Error(err))
		return false
	}
	if activated {
		s.metrics.RecordCredentialEvent(ctx, "", "activated")
	}
	return activated
}

// Validate is the verification hot path. A Pending credential auto-activates
// on its first successful validated call; expiry is applied lazily; the whole
// read-validate-write runs as one atomic mutation. When the backing store is
// unreachable the call fails closed.
func (s *Service) Validate(ctx context.Context, secretToken, originURL string) (bool, *credentialdomain.Credential) {
	hash := credentialdomain.HashSecretToken(secretToken)
	now := s.clock.Now()

	var valid bool
	result, _, err := s.repo.Mutate(ctx, hash, func(cred *credentialdomain.Credential) (bool, error) {
		if !cred.Validatable() {
			return false, nil
		}
		if cred.TimeExpired(now) {
			cred.State = credentialdomain.StateExpired
			return true, nil
		}
		if !credentialdomain.OriginAllowed(cred.TenantURL, originURL, s.strictOrigin) {
			return false, nil
		}
		if cred.State == credentialdomain.StatePending {
			cred.State = credentialdomain.StateActive
			stamp := now
			cred.ActivatedAt = &stamp
		}
		stamp := now
		cred.LastUsedAt = &stamp
		cred.UsageCount++
		valid = true
		return true, nil
	})
	if err != nil {
		s.log.Warn("credential validation store error", zap.Error(err))
		return false, nil
	}
	if !valid {
		return false, nil
	}
	return true, result
}

func (s *Service) Revoke(ctx context.Context, tenantID string) (bool, error) {
	tenantID = strings.TrimSpace(tenantID)

	var existed bool
	result, _, err := s.repo.MutateByTenant(ctx, tenantID, func(cred *credentialdomain.Credential) (bool, error) {
		existed = true
		if cred.State == credentialdomain.StateRevoked {
			return false, nil
		}
		cred.State = credentialdomain.StateRevoked
		return true, nil
	})
	if err != nil {
		return false, err
	}
	if result == nil || !existed {
		return false, nil
	}

	s.metrics.RecordCredentialEvent(ctx, tenantID, "revoked")
	s.log.Info("credential revoked", zap.String("tenant_id", tenantID))
	return true, nil
}

func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	tenantIDs, err := s.repo.TenantIDs(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	swept := 0
	for _, tenantID := range tenantIDs {
		_, changed, err := s.repo.MutateByTenant(ctx, tenantID, func(cred *credentialdomain.Credential) (bool, error) {
			if cred.State.Terminal() || !cred.TimeExpired(now) {
				return false, nil
			}
			cred.State = credentialdomain.StateExpired
			return true, nil
		})
		if err != nil {
			return swept, err
		}
		if changed {
			swept++
		}
	}

	if swept > 0 {
		s.log.Info("expired credentials swept", zap.Int("count", swept))
	}
	return swept, nil
}

func (s *Service) GetByTenant(ctx context.Context, tenantID string) (*credentialdomain.Credential, error) {
	return s.repo.GetByTenant(ctx, strings.TrimSpace(tenantID))
}

func (s *Service) GetBySecret(ctx context.Context, secretToken string) (*credentialdomain.Credential, error) {
	return s.repo.GetBySecretHash(ctx, credentialdomain.HashSecretToken(secretToken))
}

func randomToken(prefix string, size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(buf), nil
}
