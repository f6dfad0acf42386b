package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botsense/internal/clock"
	"github.com/smallbiznis/botsense/internal/config"
	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
	"github.com/smallbiznis/botsense/internal/credential/repository"
	tenantdomain "github.com/smallbiznis/botsense/internal/tenant/domain"
	"go.uber.org/zap"
)

type tenantStub struct {
	tenants map[string]*tenantdomain.Tenant
}

func (s *tenantStub) Create(ctx context.Context, req tenantdomain.CreateRequest) (*tenantdomain.Tenant, error) {
	return nil, errors.New("not implemented")
}

func (s *tenantStub) GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error) {
	return s.tenants[id], nil
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

type fixture struct {
	svc    credentialdomain.Service
	repo   *repository.MemoryRepository
	clock  *clock.FakeClock
	tenant *tenantdomain.Tenant
}

func setup(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	node := mustNode(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	repo := repository.NewMemoryRepository()

	tenant := &tenantdomain.Tenant{
		ID:     node.Generate(),
		Name:   "Shop",
		URL:    "https://shop.example",
		Status: tenantdomain.StatusActive,
	}
	tenants := &tenantStub{tenants: map[string]*tenantdomain.Tenant{
		tenant.ID.String(): tenant,
	}}

	svc := New(Params{
		Cfg:     cfg,
		Log:     zap.NewNop(),
		Clock:   fake,
		GenID:   node,
		Repo:    repo,
		Tenants: tenants,
	})
	return &fixture{svc: svc, repo: repo, clock: fake, tenant: tenant}
}

func TestIssueUnknownTenant(t *testing.T) {
	f := setup(t, config.Config{})

	_, err := f.svc.Issue(context.Background(), "999999", credentialdomain.VariantStandard)
	if !errors.Is(err, credentialdomain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestIssueRejectsSecondLiveCredential(t *testing.T) {
	f := setup(t, config.Config{})
	ctx := context.Background()
	tenantID := f.tenant.ID.String()

	first, err := f.svc.Issue(ctx, tenantID, credentialdomain.VariantStandard)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	if first.State != credentialdomain.StatePending {
		t.Fatalf("expected pending, got %s", first.State)
	}

	if _, err := f.svc.Issue(ctx, tenantID, credentialdomain.VariantStandard); !errors.Is(err, credentialdomain.ErrDuplicateCredential) {
		t.Fatalf("expected ErrDuplicateCredential, got %v", err)
	}

	if existed, err := f.svc.Revoke(ctx, tenantID); err != nil || !existed {
		t.Fatalf("revoke: existed=%v err=%v", existed, err)
	}

	second, err := f.svc.Issue(ctx, tenantID, credentialdomain.VariantFull)
	if err != nil {
		t.Fatalf("issue after revoke: %v", err)
	}
	if second.SecretToken == first.SecretToken {
		t.Fatal("expected new secret token after reissue")
	}
}

func TestReissueAfterExpiryKeepsTenantIndexOnLiveCredential(t *testing.T) {
	f := setup(t, config.Config{
		Credential: config.CredentialConfig{DefaultTTL: time.Hour},
	})
	ctx := context.Background()
	tenantID := f.tenant.ID.String()

	stale, err := f.svc.Issue(ctx, tenantID, credentialdomain.VariantStandard)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}

	f.clock.Advance(2 * time.Hour)

	live, err := f.svc.Issue(ctx, tenantID, credentialdomain.VariantStandard)
	if err != nil {
		t.Fatalf("issue after expiry: %v", err)
	}

	if ok, _ := f.svc.Validate(ctx, live.SecretToken, "https://shop.example"); !ok {
		t.Fatal("expected live credential to validate")
	}
	// A stale client still holding the old secret trips the lazy expiry
	// transition; that write must not re-capture the tenant index.
	if ok, _ := f.svc.Validate(ctx, stale.SecretToken, "https://shop.example"); ok {
		t.Fatal("expected expired secret to be rejected")
	}

	head, err := f.svc.GetByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if head.CredentialID != live.CredentialID {
		t.Fatalf("tenant index points at %s (state %s), want live %s",
			head.CredentialID, head.State, live.CredentialID)
	}

	if existed, err := f.svc.Revoke(ctx, tenantID); err != nil || !existed {
		t.Fatalf("revoke: existed=%v err=%v", existed, err)
	}
	if ok, _ := f.svc.Validate(ctx, live.SecretToken, "https://shop.example"); ok {
		t.Fatal("revoke must reach the live credential")
	}
}

func TestConcurrentIssueSingleWinner(t *testing.T) {
	f := setup(t, config.Config{})
	ctx := context.Background()
	tenantID := f.tenant.ID.String()

	const callers = 20
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		issued     int
		duplicates int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Issue(ctx, tenantID, credentialdomain.VariantStandard)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				issued++
			case errors.Is(err, credentialdomain.ErrDuplicateCredential):
				duplicates++
			default:
				t.Errorf("issue: %v", err)
			}
		}()
	}
	wg.Wait()

	if issued != 1 || duplicates != callers-1 {
		t.Fatalf("issued=%d duplicates=%d, want exactly one winner", issued, duplicates)
	}
}

func TestRevokeIdempotent(t *testing.T) {
	f := setup(t, config.Config{})
	ctx := context.Background()
	tenantID := f.tenant.ID.String()

	if _, err := f.svc.Issue(ctx, tenantID, credentialdomain.VariantStandard); err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 3; i++ {
		existed, err := f.svc.Revoke(ctx, tenantID)
		if err != nil {
			t.Fatalf("revoke %d: %v", i, err)
		}
		if !existed {
			t.Fatalf("revoke %d: expected existed", i)
		}
	}

	cred, err := f.svc.GetByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cred.State != credentialdomain.StateRevoked {
		t.Fatalf("expected revoked, got %s", cred.State)
	}

	if existed, _ := f.svc.Revoke(ctx, "424242"); existed {
		t.Fatal("expected existed=false for unknown tenant")
	}
}

func TestValidateAutoActivatesExactlyOnce(t *testing.T) {
	f := setup(t, config.Config{})
	ctx := context.Background()
	tenantID := f.tenant.ID.String()

	cred, err := f.svc.Issue(ctx, tenantID, credentialdomain.VariantStandard)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const callers = 50
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, _ := f.svc.Validate(ctx, cred.SecretToken, "https://shop.example")
			results[i] = ok
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		if !ok {
			t.Fatalf("caller %d: expected valid", i)
		}
	}

	stored, err := f.svc.GetByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != credentialdomain.StateActive {
		t.Fatalf("expected active, got %s", stored.State)
	}
	if stored.UsageCount != callers {
		t.Fatalf("expected usage count %d, got %d", callers, stored.UsageCount)
	}
	if stored.ActivatedAt == nil {
		t.Fatal("expected activation timestamp")
	}
}

func TestValidateOriginMatching(t *testing.T) {
	f := setup(t, config.Config{})
	ctx := context.Background()

	cred, err := f.svc.Issue(ctx, f.tenant.ID.String(), credentialdomain.VariantStandard)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if ok, _ := f.svc.Validate(ctx, cred.SecretToken, "https://evil.example"); ok {
		t.Fatal("expected mismatch for unrelated origin")
	}
	if ok, _ := f.svc.Validate(ctx, cred.SecretToken, "https://www.shop.example"); !ok {
		t.Fatal("expected subdomain origin to validate")
	}
	if ok, _ := f.svc.Validate(ctx, cred.SecretToken, "https://notshop.example"); ok {
		t.Fatal("expected suffix-overlap origin to be rejected")
	}
}

func TestValidateStrictOrigin(t *testing.T) {
	f := setup(t, config.Config{
		Credential: config.CredentialConfig{StrictOrigin: true},
	})
	ctx := context.Background()

	cred, err := f.svc.Issue(ctx, f.tenant.ID.String(), credentialdomain.VariantStandard)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if ok, _ := f.svc.Validate(ctx, cred.SecretToken, "https://www.shop.example"); ok {
		t.Fatal("strict mode must reject subdomain origins")
	}
	if ok, _ := f.svc.Validate(ctx, cred.SecretToken, "https://shop.example"); !ok {
		t.Fatal("strict mode must accept the exact host")
	}
}

func TestValidateLazyExpiry(t *testing.T) {
	f := setup(t, config.Config{
		Credential: config.CredentialConfig{DefaultTTL: time.Hour},
	})
	ctx := context.Background()
	tenantID := f.tenant.ID.String()

	cred, err := f.svc.Issue(ctx, tenantID, credentialdomain.VariantStandard)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if cred.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}

	f.clock.Advance(2 * time.Hour)

	if ok, _ := f.svc.Validate(ctx, cred.SecretToken, "https://shop.example"); ok {
		t.Fatal("expected expired credential to fail validation")
	}

	stored, err := f.svc.GetByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != credentialdomain.StateExpired {
		t.Fatalf("expected lazy transition to expired, got %s", stored.State)
	}
	if stored.UsageCount != 0 {
		t.Fatalf("expired validation must not count usage, got %d", stored.UsageCount)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	f := setup(t, config.Config{})

	if ok, cred := f.svc.Validate(context.Background(), "bot_live_nope", "https://shop.example"); ok || cred != nil {
		t.Fatalf("expected invalid, got ok=%v cred=%v", ok, cred)
	}
}

func TestSweepExpired(t *testing.T) {
	f := setup(t, config.Config{
		Credential: config.CredentialConfig{DefaultTTL: time.Hour},
	})
	ctx := context.Background()
	tenantID := f.tenant.ID.String()

	if _, err := f.svc.Issue(ctx, tenantID, credentialdomain.VariantStandard); err != nil {
		t.Fatalf("issue: %v", err)
	}

	f.clock.Advance(3 * time.Hour)

	swept, err := f.svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept, got %d", swept)
	}

	stored, err := f.svc.GetByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != credentialdomain.StateExpired {
		t.Fatalf("expected expired, got %s", stored.State)
	}

	// Second sweep is a no-op on terminal states.
	swept, err = f.svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep again: %v", err)
	}
	if swept != 0 {
		t.Fatalf("expected 0 swept, got %d", swept)
	}
}
