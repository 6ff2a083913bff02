package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/subscription"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
)

type SubscriptionHandler struct {
	subs   subscription.Repository
	logger *logger.Logger
}

func NewSubscriptionHandler(subs subscription.Repository, logger *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, logger: logger}
}

// @Summary Get a subscription's history
// @Description Returns the append-only audit trail of lifecycle transitions and modifications
// @Tags Subscriptions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Subscription ID"
// @Success 200 {array} subscription.History
// @Failure 404 {object} ierr.ErrorResponse
// @Router /v1/subscriptions/{id}/history [get]
func (h *SubscriptionHandler) ListHistory(c *gin.Context) {
	id := c.Param("id")

	history, err := h.subs.ListHistory(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorw("failed to list subscription history", "subscription_id", id, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, history)
}
