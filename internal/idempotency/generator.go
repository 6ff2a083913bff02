package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Scope represents the domain the idempotency key is unique within.
type Scope string

const (
	// ScopeTask dedups task enqueue attempts - paired with a deterministic
	// task_key, two enqueue calls for the same logical unit of work collapse
	// onto the same row instead of creating a duplicate.
	ScopeTask Scope = "task"

	// ScopePaymentAttempt dedups charge calls made against a payment
	// provider - keyed on invoice + attempt number so a retried task never
	// double-charges.
	ScopePaymentAttempt Scope = "payment_attempt"

	// ScopeOrder dedups order-creation calls made against a commerce
	// provider for a single delivery.
	ScopeOrder Scope = "order"
)

// Generator generates idempotency keys
type Generator struct{}

// NewGenerator creates a new idempotency key generator
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey generates an idempotency key from a scope and parameters
func (g *Generator) GenerateKey(scope Scope, params map[string]interface{}) string {
	// Sort params for consistent hashing
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Build hash input
	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	// Generate SHA-256 hash
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s-%s", scope, hex.EncodeToString(hash[:8])) // First 8 bytes for readability
}

// ValidateKey validates if an idempotency key matches expected parameters
func (g *Generator) ValidateKey(scope Scope, params map[string]interface{}, key string) bool {
	generated := g.GenerateKey(scope, params)
	return generated == key
}

// PaymentAttemptKey builds the idempotency key passed to the payment
// adapter for a given charge attempt. It is stable across retries of the
// same attempt and changes when a new attempt is recorded.
func PaymentAttemptKey(invoiceID string, attemptNumber int) string {
	return fmt.Sprintf("%s:%d", invoiceID, attemptNumber)
}

// OrderIdempotencyKey builds the idempotency key passed to the commerce
// adapter when creating an order for a delivery.
func OrderIdempotencyKey(deliveryID string) string {
	return fmt.Sprintf("%s:%s", ScopeOrder, deliveryID)
}

// TaskKey builds the deterministic dedup key for a task of the given type
// acting on the given domain keys, e.g. TaskKey("payment", invoiceID) ->
// "payment_<invoiceID>".
func TaskKey(kind string, domainKeys ...string) string {
	parts := append([]string{kind}, domainKeys...)
	return strings.Join(parts, "_")
}
