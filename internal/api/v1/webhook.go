package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/webhook"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/validator"
)

type WebhookHandler struct {
	endpoints webhook.EndpointRepository
	logger    *logger.Logger
}

func NewWebhookHandler(endpoints webhook.EndpointRepository, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{endpoints: endpoints, logger: logger}
}

type CreateWebhookEndpointRequest struct {
	URL                  string   `json:"url" validate:"required,url"`
	Secret               string   `json:"secret" validate:"required"`
	SubscribedEventTypes []string `json:"subscribed_event_types"`
}

type UpdateWebhookEndpointRequest struct {
	URL                  *string  `json:"url" validate:"omitempty,url"`
	SubscribedEventTypes []string `json:"subscribed_event_types"`
}

// @Summary Register a webhook endpoint
// @Tags Webhooks
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param endpoint body CreateWebhookEndpointRequest true "Endpoint"
// @Success 201 {object} webhook.Endpoint
// @Failure 400 {object} ierr.ErrorResponse
// @Router /v1/webhook-endpoints [post]
func (h *WebhookHandler) Create(c *gin.Context) {
	var req CreateWebhookEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid request format").Mark(ierr.ErrValidation))
		return
	}
	if err := validator.ValidateRequest(&req); err != nil {
		c.Error(err)
		return
	}

	now := time.Now().UTC()
	e := &webhook.Endpoint{
		BaseModel: types.BaseModel{
			TenantID:  types.GetTenantID(c.Request.Context()),
			Status:    types.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: types.GetUserID(c.Request.Context()),
			UpdatedBy: types.GetUserID(c.Request.Context()),
		},
		ID:                   types.GenerateIDWithPrefix(types.IDPrefixWebhookEndpoint),
		URL:                  req.URL,
		Secret:               req.Secret,
		SubscribedEventTypes: types.StringSlice(req.SubscribedEventTypes),
	}

	if err := h.endpoints.Create(c.Request.Context(), e); err != nil {
		h.logger.Errorw("failed to create webhook endpoint", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, e)
}

// @Summary List webhook endpoints
// @Tags Webhooks
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} webhook.Endpoint
// @Router /v1/webhook-endpoints [get]
func (h *WebhookHandler) List(c *gin.Context) {
	endpoints, err := h.endpoints.List(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to list webhook endpoints", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, endpoints)
}

// @Summary Get a webhook endpoint
// @Tags Webhooks
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Endpoint ID"
// @Success 200 {object} webhook.Endpoint
// @Failure 404 {object} ierr.ErrorResponse
// @Router /v1/webhook-endpoints/{id} [get]
func (h *WebhookHandler) Get(c *gin.Context) {
	e, err := h.endpoints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// @Summary Update a webhook endpoint
// @Tags Webhooks
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Endpoint ID"
// @Param endpoint body UpdateWebhookEndpointRequest true "Endpoint"
// @Success 200 {object} webhook.Endpoint
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /v1/webhook-endpoints/{id} [put]
func (h *WebhookHandler) Update(c *gin.Context) {
	var req UpdateWebhookEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid request format").Mark(ierr.ErrValidation))
		return
	}
	if err := validator.ValidateRequest(&req); err != nil {
		c.Error(err)
		return
	}

	e, err := h.endpoints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	if req.URL != nil {
		e.URL = *req.URL
	}
	if req.SubscribedEventTypes != nil {
		e.SubscribedEventTypes = types.StringSlice(req.SubscribedEventTypes)
	}
	e.UpdatedAt = time.Now().UTC()
	e.UpdatedBy = types.GetUserID(c.Request.Context())

	if err := h.endpoints.Update(c.Request.Context(), e); err != nil {
		h.logger.Errorw("failed to update webhook endpoint", "id", e.ID, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, e)
}

// @Summary Delete a webhook endpoint
// @Tags Webhooks
// @Security ApiKeyAuth
// @Param id path string true "Endpoint ID"
// @Success 204
// @Failure 404 {object} ierr.ErrorResponse
// @Router /v1/webhook-endpoints/{id} [delete]
func (h *WebhookHandler) Delete(c *gin.Context) {
	if err := h.endpoints.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Errorw("failed to delete webhook endpoint", "id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
