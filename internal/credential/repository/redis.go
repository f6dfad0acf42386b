package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
)

const (
	keyTenantPrefix     = "credential:tenant:"
	keySecretHashPrefix = "credential:secrethash:"

	mutateRetries = 5
)

// RedisRepository stores credential records under both index keys in the
// shared store. Mutations run inside an optimistic WATCH transaction over the
// two keys, so concurrent validations of the same credential serialize on the
// conditional write instead of racing it.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) GetByTenant(ctx context.Context, tenantID string) (*credentialdomain.Credential, error) {
	return r.get(ctx, keyTenantPrefix+tenantID)
}

func (r *RedisRepository) GetBySecretHash(ctx context.Context, secretHash string) (*credentialdomain.Credential, error) {
	return r.get(ctx, keySecretHashPrefix+secretHash)
}

func (r *RedisRepository) Insert(ctx context.Context, cred *credentialdomain.Credential, guard credentialdomain.InsertGuard) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	tenantKey := keyTenantPrefix + cred.TenantID.String()
	hashKey := keySecretHashPrefix + credentialdomain.HashSecretToken(cred.SecretToken)

	var guardErr error
	txn := func(tx *redis.Tx) error {
		guardErr = nil
		if guard != nil {
			var existing *credentialdomain.Credential
			raw, err := tx.Get(ctx, tenantKey).Bytes()
			if err != nil && err != redis.Nil {
				return err
			}
			if err == nil {
				existing = &credentialdomain.Credential{}
				if err := json.Unmarshal(raw, existing); err != nil {
					return err
				}
			}
			if err := guard(existing); err != nil {
				guardErr = err
				return nil
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tenantKey, payload, 0)
			pipe.Set(ctx, hashKey, payload, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < mutateRetries; attempt++ {
		err := r.client.Watch(ctx, txn, tenantKey)
		if err == nil {
			return guardErr
		}
		if err == redis.TxFailedErr {
			continue
		}
		return storeErr(err)
	}
	return fmt.Errorf("%w: insert retries exhausted", credentialdomain.ErrStoreUnavailable)
}

func (r *RedisRepository) Mutate(ctx context.Context, secretHash string, fn credentialdomain.MutateFunc) (*credentialdomain.Credential, bool, error) {
	return r.mutateKey(ctx, keySecretHashPrefix+secretHash, fn)
}

func (r *RedisRepository) MutateByTenant(ctx context.Context, tenantID string, fn credentialdomain.MutateFunc) (*credentialdomain.Credential, bool, error) {
	return r.mutateKey(ctx, keyTenantPrefix+tenantID, fn)
}

func (r *RedisRepository) TenantIDs(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		ids    []string
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyTenantPrefix+"*", 100).Result()
		if err != nil {
			return nil, storeErr(err)
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, keyTenantPrefix))
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}

func (r *RedisRepository) get(ctx context.Context, key string) (*credentialdomain.Credential, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	var cred credentialdomain.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *RedisRepository) mutateKey(ctx context.Context, key string, fn credentialdomain.MutateFunc) (*credentialdomain.Credential, bool, error) {
	var (
		result  *credentialdomain.Credential
		changed bool
	)

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			result, changed = nil, false
			return nil
		}
		if err != nil {
			return err
		}

		var cred credentialdomain.Credential
		if err := json.Unmarshal(raw, &cred); err != nil {
			return err
		}

		apply, err := fn(&cred)
		if err != nil {
			return err
		}
		result = &cred
		if !apply {
			changed = false
			return nil
		}

		payload, err := json.Marshal(&cred)
		if err != nil {
			return err
		}
		hashKey := keySecretHashPrefix + credentialdomain.HashSecretToken(cred.SecretToken)
		tenantKey := keyTenantPrefix + cred.TenantID.String()
		writeTenant := key == tenantKey
		if !writeTenant {
			// Reached through the secret-hash index. The tenant key is
			// rewritten only while it still names this credential; a reissue
			// may have re-pointed it, and writing here would put the
			// superseded record back under the tenant key.
			if err := tx.Watch(ctx, tenantKey).Err(); err != nil {
				return err
			}
			headRaw, err := tx.Get(ctx, tenantKey).Bytes()
			if err != nil && err != redis.Nil {
				return err
			}
			if err == nil {
				var head credentialdomain.Credential
				if err := json.Unmarshal(headRaw, &head); err != nil {
					return err
				}
				writeTenant = head.CredentialID == cred.CredentialID
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if writeTenant {
				pipe.Set(ctx, tenantKey, payload, 0)
			}
			pipe.Set(ctx, hashKey, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		changed = true
		return nil
	}

	for attempt := 0; attempt < mutateRetries; attempt++ {
		err := r.client.Watch(ctx, txn, key)
		if err == nil {
			return result, changed, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, false, storeErr(err)
	}
	return nil, false, fmt.Errorf("%w: mutation retries exhausted", credentialdomain.ErrStoreUnavailable)
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", credentialdomain.ErrStoreUnavailable, err)
}
