package repository

import (
	redis "github.com/redis/go-redis/v9"
	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
)

// Provide selects the credential store backend: the shared redis store when a
// client is configured, otherwise the in-process store.
func Provide(client *redis.Client) credentialdomain.Repository {
	if client == nil {
		return NewMemoryRepository()
	}
	return NewRedisRepository(client)
}
