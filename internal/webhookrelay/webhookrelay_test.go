package webhookrelay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSign_DeterministicPerSecret(t *testing.T) {
	body := []byte(`{"eventId":"evt_1","eventType":"invoice.paid"}`)

	sig1 := sign("secret-a", body)
	sig2 := sign("secret-a", body)
	sig3 := sign("secret-b", body)

	assert.Equal(t, sig1, sig2)
	assert.NotEqual(t, sig1, sig3)
	assert.Regexp(t, "^sha256=[0-9a-f]{64}$", sig1)
}

func TestBackoffDelay_DoublesPerAttempt(t *testing.T) {
	base := 30 * time.Second

	assert.Equal(t, 30*time.Second, backoffDelay(base, 0))
	assert.Equal(t, 60*time.Second, backoffDelay(base, 1))
	assert.Equal(t, 120*time.Second, backoffDelay(base, 2))
	assert.Equal(t, 240*time.Second, backoffDelay(base, 3))
}
