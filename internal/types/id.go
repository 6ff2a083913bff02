package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateID returns a k-sortable unique identifier. ULIDs keep primary
// keys roughly insertion-ordered, which matters for the keyset pagination
// the renewal sweeper (C8) does over subscriptions and for the FIFO
// ordering the outbox/webhook delivery polling loops rely on.
func GenerateID() string {
	return ulid.Make().String()
}

// GenerateIDWithPrefix returns a k-sortable identifier with a human prefix,
// e.g. "inv_01J...".
func GenerateIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateID())
}

var (
	sidGenerator *shortid.Shortid
	sidOnce      sync.Once
)

func initShortID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortCode returns a short, URL-safe random code for values that
// don't need to sort.
func GenerateShortCode(n int) string {
	sidOnce.Do(initShortID)
	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > n {
		id = id[:n]
	}
	return id
}

// ID prefixes for every core entity. Kept centralized so every repository
// generates keys the same way.
const (
	IDPrefixTenant             = "tenant"
	IDPrefixCustomer           = "cust"
	IDPrefixPlan               = "plan"
	IDPrefixSubscription       = "sub"
	IDPrefixSubscriptionItem   = "subitem"
	IDPrefixInvoice            = "inv"
	IDPrefixInvoiceLine        = "invline"
	IDPrefixPaymentAttempt     = "pay"
	IDPrefixDelivery           = "del"
	IDPrefixEntitlement        = "ent"
	IDPrefixTask               = "task"
	IDPrefixOutboxEvent        = "obx"
	IDPrefixWebhookEndpoint    = "whe"
	IDPrefixWebhookDelivery    = "whd"
	IDPrefixSubscriptionHistory = "hist"
)
