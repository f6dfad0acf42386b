package domain

import (
	"context"
	"errors"
)

// Service is the tenant registry consumed by credential issuance. The full
// tenant CRUD surface lives with the admin dashboard; this registry carries
// only what the token lifecycle needs.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Tenant, error)
	GetByID(ctx context.Context, id string) (*Tenant, error)
}

type CreateRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidURL  = errors.New("invalid_url")
	ErrNotFound    = errors.New("tenant_not_found")
	ErrURLTaken    = errors.New("tenant_url_exists")
)
