package routes

import (
	"net/http"

	"github.com/inboxgraph/backend/internal/queue"
	"github.com/inboxgraph/backend/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// CreateAnalyzeJobHandler enqueues an asynchronous re-analysis of the
// emails already persisted for a run. The worker consumes the job and
// regenerates profiles and relationships without re-fetching mail.
func CreateAnalyzeJobHandler(c echo.Context) error {
	type createJobRequest struct {
		RunID string `json:"run_id" validate:"required"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req createJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request: run_id is required"})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if err := queue.PublishAnalyzeJob(ch, req.RunID); err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"status": "queued",
		"run_id": req.RunID,
	})
}
