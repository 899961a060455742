package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inboxgraph/backend/internal/util"
	"github.com/inboxgraph/backend/pkg/ai"
	"github.com/inboxgraph/backend/pkg/graph"
	"github.com/inboxgraph/backend/pkg/logger"
	pgxstore "github.com/inboxgraph/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
)

// AnalyzeJobMsg asks the worker to re-run profiling and relationship
// analysis over the emails already persisted for a run.
type AnalyzeJobMsg struct {
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

// PublishAnalyzeJob enqueues a re-analysis job for the given run.
func PublishAnalyzeJob(ch *amqp091.Channel, runID string) error {
	msg := AnalyzeJobMsg{
		Message: "Re-analyze persisted run",
		RunID:   runID,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal analyze job: %w", err)
	}
	return PublishFIFO(ch, AnalyzeQueue, data)
}

// ProcessAnalyzeMessage handles one re-analysis job from the queue.
func ProcessAnalyzeMessage(
	ctx context.Context,
	aiClient ai.MailAIClient,
	pgConn *pgxpool.Pool,
	body string,
) error {
	var msg AnalyzeJobMsg
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("failed to unmarshal analyze job: %w", err)
	}
	if msg.RunID == "" {
		return fmt.Errorf("analyze job has no run_id")
	}

	logger.Info("[Queue][Analyze] Re-analyzing run", "run", msg.RunID)

	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
		BatchSize:        int(util.GetEnvNumeric("PIPELINE_BATCH_SIZE", 5)),
		ChunkSize:        int(util.GetEnvNumeric("PIPELINE_CHUNK_SIZE", 5)),
		ParallelProfiles: int(util.GetEnvNumeric("PIPELINE_PARALLEL_PROFILES", 4)),
		ParallelPairs:    int(util.GetEnvNumeric("PIPELINE_PARALLEL_PAIRS", 4)),
		Embeddings:       util.GetEnvBool("PIPELINE_EMBEDDINGS", true),
	})
	if err != nil {
		return fmt.Errorf("failed to create graph client: %w", err)
	}

	storage := pgxstore.NewMailDBStorageWithConnection(pgConn)
	if err := client.Reanalyze(ctx, msg.RunID, aiClient, storage); err != nil {
		return fmt.Errorf("re-analysis for run %s failed: %w", msg.RunID, err)
	}

	logger.Info("[Queue][Analyze] Run re-analyzed", "run", msg.RunID)
	return nil
}
