package routes

import (
	"errors"
	"net/http"

	"github.com/inboxgraph/backend/internal/server/middleware"
	serverutil "github.com/inboxgraph/backend/internal/server/util"
	"github.com/inboxgraph/backend/internal/storage"
	"github.com/inboxgraph/backend/internal/util"
	"github.com/inboxgraph/backend/pkg/graph"
	"github.com/inboxgraph/backend/pkg/logger"
	"github.com/inboxgraph/backend/pkg/mail"
	"github.com/inboxgraph/backend/pkg/mail/gmail"
	pgxstore "github.com/inboxgraph/backend/pkg/store/pgx"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// RunPipelineHandler fetches the user's messages for a date range, runs the
// analysis pipeline over them, and streams progress as server-sent events.
// Failures before the stream opens are plain JSON errors; once streaming,
// a terminal error event reports run-level failures.
func RunPipelineHandler(c echo.Context) error {
	type runPipelineRequest struct {
		StartDate   string `json:"startDate" validate:"required"`
		EndDate     string `json:"endDate" validate:"required"`
		MaxMessages int    `json:"maxMessages"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req runPipelineRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Start date and end date are required"})
	}

	providerToken := middleware.ProviderToken(c)
	if providerToken == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	mailClient := gmail.NewClient(ctx, gmail.NewClientParams{
		AccessToken: providerToken,
	})

	maxMessages := req.MaxMessages
	if maxMessages <= 0 {
		maxMessages = int(util.GetEnvNumeric("PIPELINE_MAX_MESSAGES", 100))
	}

	messages, err := mail.FetchAll(ctx, mailClient, mail.Query{
		After:    req.StartDate,
		Before:   req.EndDate,
		PageSize: 10,
	}, maxMessages)
	if err != nil {
		if errors.Is(err, mail.ErrUnauthenticated) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		}
		logger.Error("[Routes][Pipeline] Mail fetch failed", "user", user.Email, "err", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to fetch messages"})
	}

	runID, err := gonanoid.New()
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		BatchSize:        int(util.GetEnvNumeric("PIPELINE_BATCH_SIZE", 5)),
		ChunkSize:        int(util.GetEnvNumeric("PIPELINE_CHUNK_SIZE", 5)),
		ParallelProfiles: int(util.GetEnvNumeric("PIPELINE_PARALLEL_PROFILES", 4)),
		ParallelPairs:    int(util.GetEnvNumeric("PIPELINE_PARALLEL_PAIRS", 4)),
		Embeddings:       util.GetEnvBool("PIPELINE_EMBEDDINGS", true),
	})
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	var archiver graph.Archiver
	if app.S3 != nil {
		archiver = storage.NewS3Archive(app.S3)
	}

	logger.Info("[Routes][Pipeline] Starting run",
		"run", runID, "user", user.Email, "messages", len(messages))

	serverutil.PrepareSSE(c)

	events := graphClient.Run(ctx, graph.RunParams{
		RunID:    runID,
		Messages: messages,
		AI:       app.AiClient,
		Store:    pgxstore.NewMailDBStorageWithConnection(app.DBConn),
		Archiver: archiver,
	})

	for event := range events {
		if err := serverutil.WriteSSEEvent(c, event.Type, event.Data()); err != nil {
			logger.Warn("[Routes][Pipeline] Client disconnected", "run", runID, "err", err)
			return nil
		}
	}
	return nil
}
