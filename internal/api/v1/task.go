package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/taskqueue"
)

type TaskHandler struct {
	queue  *taskqueue.Queue
	logger *logger.Logger
}

func NewTaskHandler(queue *taskqueue.Queue, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{queue: queue, logger: logger}
}

// @Summary Cancel a scheduled task
// @Description Cancels a READY task immediately; a CLAIMED task is marked
// @Description CANCELLED but its in-flight handler is left to finish.
// @Tags Tasks
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} ierr.ErrorResponse
// @Router /v1/tasks/{id}/cancel [post]
func (h *TaskHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").WithHint("Task ID must be provided").Mark(ierr.ErrValidation))
		return
	}

	if err := h.queue.Cancel(c.Request.Context(), id); err != nil {
		h.logger.Errorw("failed to cancel task", "task_id", id, "error", err)
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
