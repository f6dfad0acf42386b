package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// State is the lifecycle state of a script credential.
type State string

const (
	StatePending  State = "pending"
	StateActive   State = "active"
	StateInactive State = "inactive"
	StateExpired  State = "expired"
	StateRevoked  State = "revoked"
)

// Terminal reports whether no further transition is allowed out of the state.
func (s State) Terminal() bool {
	return s == StateExpired || s == StateRevoked
}

// ScriptVariant selects which telemetry-collection options the embedded script enables.
type ScriptVariant string

const (
	VariantMinimal  ScriptVariant = "minimal"
	VariantStandard ScriptVariant = "standard"
	VariantFull     ScriptVariant = "full"
)

// Credential is the script token issued to one tenant integration.
// The record lives under both index keys; the tenant key always names the
// tenant's current credential, while superseded records remain reachable
// by secret hash until they age out.
type Credential struct {
	CredentialID   snowflake.ID   `json:"credential_id"`
	TenantID       snowflake.ID   `json:"tenant_id"`
	TenantName     string         `json:"tenant_name"`
	TenantURL      string         `json:"tenant_url"`
	SecretToken    string         `json:"secret_token"`
	IntegrationKey string         `json:"integration_key"`
	State          State          `json:"state"`
	ScriptVariant  ScriptVariant  `json:"script_variant"`
	CreatedAt      time.Time      `json:"created_at"`
	ActivatedAt    *time.Time     `json:"activated_at,omitempty"`
	LastUsedAt     *time.Time     `json:"last_used_at,omitempty"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	UsageCount     int64          `json:"usage_count"`
	Config         map[string]any `json:"config"`
}

// Live reports whether the credential still counts against the
// one-live-credential-per-tenant invariant.
func (c *Credential) Live(now time.Time) bool {
	if c == nil {
		return false
	}
	if c.State == StateRevoked || c.State == StateExpired {
		return false
	}
	return !c.TimeExpired(now)
}

// TimeExpired reports whether ExpiresAt is set and in the past.
func (c *Credential) TimeExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Validatable reports whether the state admits the validation hot path.
func (c *Credential) Validatable() bool {
	return c.State == StatePending || c.State == StateActive
}

// DefaultConfig returns the collection-option flags for a script variant.
func DefaultConfig(variant ScriptVariant) map[string]any {
	cfg := map[string]any{
		"collect_mouse":    true,
		"collect_keyboard": true,
		"collect_scroll":   true,
		"collect_timing":   true,
		"collect_device":   false,
		"sample_rate":      1.0,
	}
	switch variant {
	case VariantMinimal:
		cfg["collect_keyboard"] = false
		cfg["collect_scroll"] = false
		cfg["sample_rate"] = 0.25
	case VariantFull:
		cfg["collect_device"] = true
	}
	return cfg
}
