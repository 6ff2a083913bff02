package api

import (
	v1 "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/api/v1"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/subscription"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/webhook"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/taskqueue"
)

// Handlers bundles every admin-surface handler the router mounts. It is
// assembled once at startup from the repositories and cores the rest of
// the process wires.
type Handlers struct {
	Health       *v1.HealthHandler
	Task         *v1.TaskHandler
	Webhook      *v1.WebhookHandler
	Subscription *v1.SubscriptionHandler
}

func NewHandlers(queue *taskqueue.Queue, endpoints webhook.EndpointRepository, subs subscription.Repository, log *logger.Logger) Handlers {
	return Handlers{
		Health:       v1.NewHealthHandler(),
		Task:         v1.NewTaskHandler(queue, log),
		Webhook:      v1.NewWebhookHandler(endpoints, log),
		Subscription: v1.NewSubscriptionHandler(subs, log),
	}
}
