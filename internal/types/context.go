package types

import "context"

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxTenantID  ContextKey = "ctx_tenant_id"
	CtxUserID    ContextKey = "ctx_user_id"
	CtxJWT       ContextKey = "ctx_jwt"
	CtxWorkerID  ContextKey = "ctx_worker_id"
)

// WithTenantID returns a new context carrying the given tenant id. The
// dispatcher calls this before invoking a handler.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, CtxTenantID, tenantID)
}

// WithoutTenant strips tenant and worker identity from the context. The
// dispatcher calls this after a task finishes, even on failure, so a
// worker goroutine never carries stale tenant state into its next claim.
func WithoutTenant(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, CtxTenantID, "")
	ctx = context.WithValue(ctx, CtxWorkerID, "")
	return ctx
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

func WithWorkerID(ctx context.Context, workerID string) context.Context {
	return context.WithValue(ctx, CtxWorkerID, workerID)
}

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(CtxTenantID).(string); ok {
		return tenantID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetWorkerID(ctx context.Context) string {
	if workerID, ok := ctx.Value(CtxWorkerID).(string); ok {
		return workerID
	}
	return ""
}
