package domain

import "errors"

var (
	ErrTenantNotFound      = errors.New("tenant_not_found")
	ErrDuplicateCredential = errors.New("duplicate_credential")
	ErrInvalidCredential   = errors.New("invalid_credential")
	ErrOriginMismatch      = errors.New("origin_mismatch")
	ErrStoreUnavailable    = errors.New("store_unavailable")
)
