package domain

import "context"

// Service owns the credential state machine. It is the only writer to the
// credential repository.
type Service interface {
	// Issue creates a Pending credential for the tenant. Fails with
	// ErrDuplicateCredential while a live credential exists and with
	// ErrTenantNotFound for unknown tenants.
	Issue(ctx context.Context, tenantID string, variant ScriptVariant) (*Credential, error)

	// Activate transitions a Pending credential to Active when the calling
	// origin matches the registered tenant URL. Fails silently.
	Activate(ctx context.Context, secretToken, originURL string) bool

	// Validate is the hot path: lazy expiry, idempotent auto-activation for
	// Pending credentials, then usage bookkeeping. Returns (false, nil) on
	// any failure without leaking which check failed.
	Validate(ctx context.Context, secretToken, originURL string) (bool, *Credential)

	// Revoke transitions the tenant's credential to Revoked regardless of
	// prior state. Idempotent; false only when no credential exists. The
	// error is non-nil only when the backing store is unreachable.
	Revoke(ctx context.Context, tenantID string) (bool, error)

	// SweepExpired bulk-transitions time-expired credentials.
	SweepExpired(ctx context.Context) (int, error)

	// GetByTenant exposes the tenant-keyed record to administrative callers.
	GetByTenant(ctx context.Context, tenantID string) (*Credential, error)

	// GetBySecret resolves a credential through the secret-hash index.
	GetBySecret(ctx context.Context, secretToken string) (*Credential, error)
}
