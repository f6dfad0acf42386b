package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
)

func seedCredential(t *testing.T, repo *MemoryRepository) *credentialdomain.Credential {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	cred := &credentialdomain.Credential{
		CredentialID: node.Generate(),
		TenantID:     node.Generate(),
		SecretToken:  "bot_live_test",
		State:        credentialdomain.StatePending,
	}
	if err := repo.Insert(context.Background(), cred, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return cred
}

func TestDualIndexLookup(t *testing.T) {
	repo := NewMemoryRepository()
	cred := seedCredential(t, repo)
	ctx := context.Background()

	byTenant, err := repo.GetByTenant(ctx, cred.TenantID.String())
	if err != nil {
		t.Fatalf("get by tenant: %v", err)
	}
	byHash, err := repo.GetBySecretHash(ctx, credentialdomain.HashSecretToken(cred.SecretToken))
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}

	if byTenant == nil || byHash == nil {
		t.Fatal("expected credential under both indexes")
	}
	if byTenant.CredentialID != byHash.CredentialID {
		t.Fatal("indexes returned different credentials")
	}
}

func TestMutateUpdatesBothIndexes(t *testing.T) {
	repo := NewMemoryRepository()
	cred := seedCredential(t, repo)
	ctx := context.Background()
	hash := credentialdomain.HashSecretToken(cred.SecretToken)

	updated, changed, err := repo.Mutate(ctx, hash, func(c *credentialdomain.Credential) (bool, error) {
		c.State = credentialdomain.StateActive
		c.UsageCount++
		return true, nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if !changed || updated.State != credentialdomain.StateActive {
		t.Fatalf("changed=%v state=%s", changed, updated.State)
	}

	byTenant, _ := repo.GetByTenant(ctx, cred.TenantID.String())
	if byTenant.State != credentialdomain.StateActive || byTenant.UsageCount != 1 {
		t.Fatalf("tenant index stale: %+v", byTenant)
	}
	byHash, _ := repo.GetBySecretHash(ctx, hash)
	if byHash.State != credentialdomain.StateActive || byHash.UsageCount != 1 {
		t.Fatalf("hash index stale: %+v", byHash)
	}
}

func TestMutateStaleHashLeavesTenantIndex(t *testing.T) {
	repo := NewMemoryRepository()
	old := seedCredential(t, repo)
	ctx := context.Background()

	// Same tenant, fresh secret: the tenant index now names the new record.
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	fresh := &credentialdomain.Credential{
		CredentialID: node.Generate(),
		TenantID:     old.TenantID,
		SecretToken:  "bot_live_fresh",
		State:        credentialdomain.StatePending,
	}
	if err := repo.Insert(ctx, fresh, nil); err != nil {
		t.Fatalf("insert fresh: %v", err)
	}

	oldHash := credentialdomain.HashSecretToken(old.SecretToken)
	_, changed, err := repo.Mutate(ctx, oldHash, func(c *credentialdomain.Credential) (bool, error) {
		c.State = credentialdomain.StateExpired
		return true, nil
	})
	if err != nil || !changed {
		t.Fatalf("mutate old: changed=%v err=%v", changed, err)
	}

	byTenant, err := repo.GetByTenant(ctx, old.TenantID.String())
	if err != nil {
		t.Fatalf("get by tenant: %v", err)
	}
	if byTenant.CredentialID != fresh.CredentialID {
		t.Fatalf("tenant index points at %s, want %s", byTenant.CredentialID, fresh.CredentialID)
	}
	byHash, err := repo.GetBySecretHash(ctx, oldHash)
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if byHash.State != credentialdomain.StateExpired {
		t.Fatalf("old record state = %s, want expired", byHash.State)
	}
}

func TestInsertGuardAborts(t *testing.T) {
	repo := NewMemoryRepository()
	first := seedCredential(t, repo)
	ctx := context.Background()

	second := &credentialdomain.Credential{
		CredentialID: first.CredentialID + 1,
		TenantID:     first.TenantID,
		SecretToken:  "bot_live_second",
		State:        credentialdomain.StatePending,
	}
	wantErr := errors.New("occupied")
	err := repo.Insert(ctx, second, func(existing *credentialdomain.Credential) error {
		if existing == nil {
			t.Fatal("guard expected the tenant's current credential")
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("insert err = %v, want guard error", err)
	}

	byTenant, _ := repo.GetByTenant(ctx, first.TenantID.String())
	if byTenant.CredentialID != first.CredentialID {
		t.Fatal("aborted insert must not touch the tenant index")
	}
	if byHash, _ := repo.GetBySecretHash(ctx, credentialdomain.HashSecretToken(second.SecretToken)); byHash != nil {
		t.Fatal("aborted insert must not write the hash index")
	}
}

func TestMutateNoWriteOnFalse(t *testing.T) {
	repo := NewMemoryRepository()
	cred := seedCredential(t, repo)
	ctx := context.Background()
	hash := credentialdomain.HashSecretToken(cred.SecretToken)

	_, changed, err := repo.Mutate(ctx, hash, func(c *credentialdomain.Credential) (bool, error) {
		c.State = credentialdomain.StateRevoked // discarded
		return false, nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if changed {
		t.Fatal("expected no write")
	}

	stored, _ := repo.GetBySecretHash(ctx, hash)
	if stored.State != credentialdomain.StatePending {
		t.Fatalf("state = %s, want pending", stored.State)
	}
}

func TestMutateUnknownKey(t *testing.T) {
	repo := NewMemoryRepository()

	cred, changed, err := repo.Mutate(context.Background(), "missing", func(c *credentialdomain.Credential) (bool, error) {
		t.Fatal("mutate func must not run for missing keys")
		return false, nil
	})
	if err != nil || changed || cred != nil {
		t.Fatalf("unexpected result: cred=%v changed=%v err=%v", cred, changed, err)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	repo := NewMemoryRepository()
	cred := seedCredential(t, repo)
	ctx := context.Background()

	read, _ := repo.GetByTenant(ctx, cred.TenantID.String())
	read.State = credentialdomain.StateRevoked
	read.UsageCount = 99

	again, _ := repo.GetByTenant(ctx, cred.TenantID.String())
	if again.State != credentialdomain.StatePending || again.UsageCount != 0 {
		t.Fatalf("caller mutation leaked into store: %+v", again)
	}
}

func TestTenantIDs(t *testing.T) {
	repo := NewMemoryRepository()
	first := seedCredential(t, repo)

	ids, err := repo.TenantIDs(context.Background())
	if err != nil {
		t.Fatalf("tenant ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != first.TenantID.String() {
		t.Fatalf("ids = %v", ids)
	}
}
