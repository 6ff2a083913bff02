package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/api"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/billing"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/cache"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/config"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/dispatcher"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/outbox"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/scheduledtask"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/subscription"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/webhook"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/fulfillment"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/httpclient"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/lifecycle"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/outboxsvc"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/provider/commerce"
	ppayment "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/provider/payment"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/pyroscope"
	repo "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/repository/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/sentry"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/sweeper"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/taskqueue"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/utils"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/webhookrelay"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			postgres.NewDB,
			cache.NewInMemoryCache,
			provideHTTPClient,
		),
		sentry.Module(),
		pyroscope.Module(),
		fx.Provide(
			repo.NewTenantRepository,
			repo.NewCustomerRepository,
			repo.NewPlanRepository,
			repo.NewSubscriptionRepository,
			repo.NewInvoiceRepository,
			repo.NewPaymentRepository,
			repo.NewDeliveryRepository,
			repo.NewEntitlementRepository,
			repo.NewScheduledTaskRepository,
			repo.NewOutboxRepository,
			repo.NewWebhookEndpointRepository,
			repo.NewWebhookDeliveryRepository,
		),
		fx.Provide(
			provideTaskQueue,
			outboxsvc.New,
			provideDispatcher,
			providePaymentProvider,
			provideCommerceProvider,
			billing.New,
			fulfillment.New,
			lifecycle.New,
			provideSweeper,
			provideWebhookRelay,
		),
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			runMigrations,
			registerTaskHandlers,
			runBackgroundLoops,
			startServer,
		),
	)

	app.Run()
}

// runMigrations applies pending schema migrations before anything else
// touches the database, when postgres.auto_migrate is set. Operators who
// run migrations as a separate deploy step (cmd/migrate) leave it off.
func runMigrations(cfg *config.Configuration, log *logger.Logger, _ *postgres.DB) error {
	if !cfg.Postgres.AutoMigrate {
		return nil
	}
	return postgres.Migrate(cfg, log, "migrations")
}

func provideHTTPClient(cfg *config.Configuration, log *logger.Logger) httpclient.Client {
	return httpclient.NewRetryingClient(httpclient.ClientConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}, log)
}

func provideTaskQueue(store scheduledtask.Repository, cfg *config.Configuration) *taskqueue.Queue {
	return taskqueue.New(store, cfg.Task.DefaultMaxAttempts, cfg.Task.BackoffBaseSeconds)
}

func provideDispatcher(queue *taskqueue.Queue, log *logger.Logger, sentrySvc *sentry.Service, cfg *config.Configuration) *dispatcher.Dispatcher {
	return dispatcher.New(queue, log, sentrySvc, dispatcher.Config{
		LeaseSeconds: cfg.Task.LeaseSeconds,
		BatchSize:    cfg.Task.BatchSize,
		Workers:      cfg.Task.Workers,
	})
}

// providePaymentProvider selects the payment provider the dispatcher's
// billing handlers charge through. The sandbox provider is the default so
// the engine runs end to end with no external account configured; Stripe
// is opt-in via payment.provider_name.
func providePaymentProvider(cfg *config.Configuration, log *logger.Logger) ppayment.Provider {
	if cfg.Payment.ProviderName == "stripe" {
		return ppayment.NewStripeProvider(cfg.Payment.StripeAPIKey, log)
	}
	return ppayment.NewSandboxProvider()
}

// provideCommerceProvider mirrors providePaymentProvider for the
// fulfillment side's order-placement calls.
func provideCommerceProvider(cfg *config.Configuration, client httpclient.Client) commerce.Provider {
	if cfg.Commerce.ProviderName == "http" {
		return commerce.NewHTTPProvider(cfg.Commerce.BaseURL, client)
	}
	return commerce.NewSandboxProvider()
}

func provideSweeper(subs subscription.Repository, queue *taskqueue.Queue, log *logger.Logger, cfg *config.Configuration) *sweeper.Sweeper {
	return sweeper.New(subs, queue, log, sweeper.Config{BatchSize: cfg.Sweeper.BatchSize})
}

func provideWebhookRelay(
	db *postgres.DB,
	outboxStore outbox.Repository,
	endpoints webhook.EndpointRepository,
	deliveries webhook.DeliveryRepository,
	client httpclient.Client,
	log *logger.Logger,
	cfg *config.Configuration,
) *webhookrelay.Relay {
	return webhookrelay.New(db, outboxStore, endpoints, deliveries, client, log, webhookrelay.Config{
		FanOutBatchSize:    cfg.Webhook.FanOutBatchSize,
		DispatchBatch:      cfg.Webhook.DispatchBatchSize,
		DefaultMaxAttempts: cfg.Webhook.MaxAttempts,
		BackoffBase:        time.Duration(cfg.Webhook.RetryBackoffBaseSeconds) * time.Second,
	})
}

func provideHandlers(queue *taskqueue.Queue, endpoints webhook.EndpointRepository, subs subscription.Repository, log *logger.Logger) api.Handlers {
	return api.NewHandlers(queue, endpoints, subs, log)
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, log)
}

// registerTaskHandlers wires every scheduled_task type the sweeper,
// billing and fulfillment cores can enqueue to the dispatcher that will
// run it. This is the one place that knows the full task_type -> handler
// map; billing/fulfillment/lifecycle stay unaware of the dispatcher.
type subscriptionRefPayload struct {
	SubscriptionID string `json:"subscription_id"`
}

type invoiceRefPayload struct {
	InvoiceID string `json:"invoice_id"`
}

type deliveryRefPayload struct {
	DeliveryID string `json:"delivery_id"`
}

func registerTaskHandlers(d *dispatcher.Dispatcher, b *billing.Core, f *fulfillment.Core, l *lifecycle.Core, log *logger.Logger) {
	d.Register(types.TaskTypeSubscriptionRenewal, func(ctx context.Context, t *scheduledtask.Task) error {
		in, err := utils.ToStruct[subscriptionRefPayload](t.Payload)
		if err != nil {
			return err
		}
		return b.RenewSubscription(ctx, in.SubscriptionID)
	})
	d.Register(types.TaskTypeProductRenewal, func(ctx context.Context, t *scheduledtask.Task) error {
		in, err := utils.ToStruct[billing.RenewProductInput](t.Payload)
		if err != nil {
			return err
		}
		return b.RenewProduct(ctx, in)
	})
	d.Register(types.TaskTypeChargePayment, func(ctx context.Context, t *scheduledtask.Task) error {
		in, err := utils.ToStruct[invoiceRefPayload](t.Payload)
		if err != nil {
			return err
		}
		return b.ChargePayment(ctx, in.InvoiceID)
	})
	d.Register(types.TaskTypeCreateDelivery, func(ctx context.Context, t *scheduledtask.Task) error {
		in, err := utils.ToStruct[invoiceRefPayload](t.Payload)
		if err != nil {
			return err
		}
		return f.CreateDelivery(ctx, in.InvoiceID)
	})
	d.Register(types.TaskTypeCreateOrder, func(ctx context.Context, t *scheduledtask.Task) error {
		in, err := utils.ToStruct[deliveryRefPayload](t.Payload)
		if err != nil {
			return err
		}
		return f.CreateOrder(ctx, in.DeliveryID)
	})
	d.Register(types.TaskTypeGrantEntitlement, func(ctx context.Context, t *scheduledtask.Task) error {
		in, err := utils.ToStruct[invoiceRefPayload](t.Payload)
		if err != nil {
			return err
		}
		return f.GrantEntitlement(ctx, in.InvoiceID)
	})
	d.Register(types.TaskTypeTrialEnd, func(ctx context.Context, t *scheduledtask.Task) error {
		in, err := utils.ToStruct[subscriptionRefPayload](t.Payload)
		if err != nil {
			return err
		}
		return l.TrialEnd(ctx, in.SubscriptionID)
	})

	d.RegisterTerminalHook(types.TaskTypeChargePayment, func(ctx context.Context, t *scheduledtask.Task) {
		in, err := utils.ToStruct[invoiceRefPayload](t.Payload)
		if err != nil {
			return
		}
		if err := b.EmitPaymentExhausted(ctx, in.InvoiceID); err != nil {
			log.Errorw("failed to emit payment.exhausted", "task_id", t.ID, "invoice_id", in.InvoiceID, "error", err)
		}
	})
}

// runBackgroundLoops starts the dispatcher's claim loop and the sweeper's
// and webhook relay's periodic ticks on process start, and stops them in
// reverse dependency order on shutdown.
func runBackgroundLoops(
	lc fx.Lifecycle,
	d *dispatcher.Dispatcher,
	s *sweeper.Sweeper,
	relay *webhookrelay.Relay,
	queue *taskqueue.Queue,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Run(ctx)
			go runTicker(ctx, time.Duration(cfg.Sweeper.IntervalSeconds)*time.Second, func() {
				result := s.Run(context.Background(), time.Now().UTC())
				log.Infow("sweeper run complete", "found", result.Found, "processed", result.Processed, "tasks_created", result.TasksCreated, "errors", result.Errors)
			})
			go runTicker(ctx, time.Duration(cfg.Webhook.FanOutIntervalSeconds)*time.Second, func() {
				if _, err := relay.FanOut(context.Background(), time.Now().UTC()); err != nil {
					log.Errorw("webhook fan-out failed", "error", err)
				}
			})
			go runTicker(ctx, time.Duration(cfg.Webhook.DispatchIntervalSeconds)*time.Second, func() {
				if _, err := relay.Dispatch(context.Background(), time.Now().UTC()); err != nil {
					log.Errorw("webhook dispatch failed", "error", err)
				}
			})
			go runTicker(ctx, time.Duration(cfg.Task.LeaseSeconds)*time.Second, func() {
				if _, err := queue.Reap(context.Background(), time.Now().UTC()); err != nil {
					log.Errorw("task reap failed", "error", err)
				}
			})
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			d.Stop()
			return nil
		},
	})
}

func runTicker(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// startServer runs the admin/ops HTTP surface on its own goroutine,
// stopping it on shutdown via the underlying net/http server's graceful
// shutdown.
func startServer(lc fx.Lifecycle, router *gin.Engine, cfg *config.Configuration, log *logger.Logger) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorw("server stopped", "error", err)
				}
			}()
			log.Infow("server started", "address", cfg.Server.Address)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
