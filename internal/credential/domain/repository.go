package domain

import "context"

// MutateFunc inspects and optionally updates a credential. Returning false
// means no write; the repository persists the write when true.
type MutateFunc func(*Credential) (bool, error)

// InsertGuard inspects the tenant's current credential (nil when the tenant
// has none) in the same atomic step as the insert. Returning an error aborts
// the write and surfaces unchanged to the caller.
type InsertGuard func(existing *Credential) error

// Repository is the dual-indexed credential store. Records are addressable
// by tenant ID and by the sha256 hash of the secret token. Insert writes
// both keys and runs its guard atomically with the write, so concurrent
// inserts for one tenant cannot both pass the guard. Mutate runs the
// read-validate-write sequence for a single credential atomically so
// concurrent validations cannot double-activate or lose a usage increment;
// a mutation reached through the secret-hash index updates the tenant key
// only while that key still names the same credential, so a superseded
// record never re-captures its tenant's index.
type Repository interface {
	GetByTenant(ctx context.Context, tenantID string) (*Credential, error)
	GetBySecretHash(ctx context.Context, secretHash string) (*Credential, error)
	Insert(ctx context.Context, cred *Credential, guard InsertGuard) error
	Mutate(ctx context.Context, secretHash string, fn MutateFunc) (*Credential, bool, error)
	MutateByTenant(ctx context.Context, tenantID string, fn MutateFunc) (*Credential, bool, error)
	TenantIDs(ctx context.Context) ([]string, error)
}
