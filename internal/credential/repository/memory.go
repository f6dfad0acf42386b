package repository

import (
	"context"
	"sync"
	"time"

	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
)

// MemoryRepository is an in-process credential store used for tests and
// redis-less deployments. A single mutex serializes every read-validate-write
// sequence, which is stricter than the per-key serialization the contract
// requires.
type MemoryRepository struct {
	mu       sync.RWMutex
	byHash   map[string]*credentialdomain.Credential
	byTenant map[string]string // tenantID -> secretHash
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byHash:   make(map[string]*credentialdomain.Credential),
		byTenant: make(map[string]string),
	}
}

func (r *MemoryRepository) GetByTenant(ctx context.Context, tenantID string) (*credentialdomain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hash, ok := r.byTenant[tenantID]
	if !ok {
		return nil, nil
	}
	return cloneCredential(r.byHash[hash]), nil
}

func (r *MemoryRepository) GetBySecretHash(ctx context.Context, secretHash string) (*credentialdomain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneCredential(r.byHash[secretHash]), nil
}

func (r *MemoryRepository) Insert(ctx context.Context, cred *credentialdomain.Credential, guard credentialdomain.InsertGuard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tenantID := cred.TenantID.String()
	if guard != nil {
		var existing *credentialdomain.Credential
		if hash, ok := r.byTenant[tenantID]; ok {
			existing = cloneCredential(r.byHash[hash])
		}
		if err := guard(existing); err != nil {
			return err
		}
	}
	hash := credentialdomain.HashSecretToken(cred.SecretToken)
	r.byHash[hash] = cloneCredential(cred)
	r.byTenant[tenantID] = hash
	return nil
}

func (r *MemoryRepository) Mutate(ctx context.Context, secretHash string, fn credentialdomain.MutateFunc) (*credentialdomain.Credential, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byHash[secretHash]
	if !ok {
		return nil, false, nil
	}
	return r.applyLocked(current, secretHash, fn)
}

func (r *MemoryRepository) MutateByTenant(ctx context.Context, tenantID string, fn credentialdomain.MutateFunc) (*credentialdomain.Credential, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash, ok := r.byTenant[tenantID]
	if !ok {
		return nil, false, nil
	}
	return r.applyLocked(r.byHash[hash], hash, fn)
}

func (r *MemoryRepository) TenantIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byTenant))
	for id := range r.byTenant {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *MemoryRepository) applyLocked(current *credentialdomain.Credential, secretHash string, fn credentialdomain.MutateFunc) (*credentialdomain.Credential, bool, error) {
	working := cloneCredential(current)
	changed, err := fn(working)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return working, false, nil
	}
	r.byHash[secretHash] = cloneCredential(working)
	// The tenant index maps tenant -> secret hash, so the update above is
	// already visible through it when it still names this credential. A
	// reissue may have re-pointed the tenant index at a newer secret; leaving
	// it alone keeps the superseded record off the tenant key.
	return working, true, nil
}

func cloneCredential(src *credentialdomain.Credential) *credentialdomain.Credential {
	if src == nil {
		return nil
	}
	out := *src
	out.ActivatedAt = cloneTime(src.ActivatedAt)
	out.LastUsedAt = cloneTime(src.LastUsedAt)
	out.ExpiresAt = cloneTime(src.ExpiresAt)
	if src.Config != nil {
		out.Config = make(map[string]any, len(src.Config))
		for k, v := range src.Config {
			out.Config[k] = v
		}
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	value := *t
	return &value
}
