package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
	"github.com/gin-gonic/gin"
)

// RequestIDMiddleware stamps every request with a request id, honoring
// one supplied by the caller, and echoes it back on the response so an
// operator can correlate a client-side report with server logs.
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx := context.WithValue(c.Request.Context(), types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Request-ID", requestID)

	c.Next()
}
