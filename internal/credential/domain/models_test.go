package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHashSecretTokenStable(t *testing.T) {
	first := HashSecretToken("bot_live_abc")
	second := HashSecretToken("bot_live_abc")
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.NotEqual(t, first, HashSecretToken("bot_live_abd"))
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateActive.Terminal())
	assert.False(t, StateInactive.Terminal())
	assert.True(t, StateExpired.Terminal())
	assert.True(t, StateRevoked.Terminal())
}

func TestCredentialLive(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	var nilCred *Credential
	assert.False(t, nilCred.Live(now))

	cred := &Credential{State: StatePending}
	assert.True(t, cred.Live(now))

	cred.State = StateRevoked
	assert.False(t, cred.Live(now))

	past := now.Add(-time.Minute)
	cred = &Credential{State: StateActive, ExpiresAt: &past}
	assert.False(t, cred.Live(now))

	future := now.Add(time.Minute)
	cred = &Credential{State: StateActive, ExpiresAt: &future}
	assert.True(t, cred.Live(now))
}

func TestValidatable(t *testing.T) {
	assert.True(t, (&Credential{State: StatePending}).Validatable())
	assert.True(t, (&Credential{State: StateActive}).Validatable())
	assert.False(t, (&Credential{State: StateInactive}).Validatable())
	assert.False(t, (&Credential{State: StateExpired}).Validatable())
	assert.False(t, (&Credential{State: StateRevoked}).Validatable())
}

func TestDefaultConfigVariants(t *testing.T) {
	standard := DefaultConfig(VariantStandard)
	assert.Equal(t, true, standard["collect_mouse"])
	assert.Equal(t, true, standard["collect_keyboard"])
	assert.Equal(t, false, standard["collect_device"])
	assert.Equal(t, 1.0, standard["sample_rate"])

	minimal := DefaultConfig(VariantMinimal)
	assert.Equal(t, false, minimal["collect_keyboard"])
	assert.Equal(t, false, minimal["collect_scroll"])
	assert.Equal(t, 0.25, minimal["sample_rate"])

	full := DefaultConfig(VariantFull)
	assert.Equal(t, true, full["collect_device"])
}
