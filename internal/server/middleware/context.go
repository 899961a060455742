package middleware

import (
	"github.com/inboxgraph/backend/internal/util"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/inboxgraph/backend/pkg/ai"
	oai "github.com/inboxgraph/backend/pkg/ai/ollama"
	gai "github.com/inboxgraph/backend/pkg/ai/openai"
	"github.com/inboxgraph/backend/pkg/logger"
)

type AppUser struct {
	Email string
	Name  string
}

type App struct {
	DBConn          *pgxpool.Pool
	Queue           *amqp091.Channel
	Key             *keyfunc.Keyfunc
	S3              *s3.Client
	AiClient        ai.MailAIClient
	MasterAPIKey    string
	MasterUserEmail string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	key *keyfunc.Keyfunc,
	s3 *s3.Client,
	masterAPIKey string,
	masterUserEmail string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			adapter := util.GetEnv("AI_ADAPTER")
			var aiClient ai.MailAIClient

			switch adapter {
			case "ollama":
				client, err := oai.NewMailOllamaClient(oai.NewMailOllamaClientParams{
					AnalysisModel:  util.GetEnv("AI_CHAT_MODEL"),
					EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

					BaseURL: util.GetEnv("AI_CHAT_URL"),
					ApiKey:  util.GetEnv("AI_CHAT_KEY"),

					RequestTimeoutMin:     int64(util.GetEnvNumeric("AI_TIMEOUT_MIN", 5)),
					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
				})
				if err != nil {
					logger.Fatal("Failed to create Ollama client", "err", err)
				}
				aiClient = client
			default:
				aiClient = gai.NewMailOpenAIClient(gai.NewMailOpenAIClientParams{
					AnalysisModel:  util.GetEnv("AI_CHAT_MODEL"),
					EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

					EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
					EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
					ChatURL:      util.GetEnv("AI_CHAT_URL"),
					ChatKey:      util.GetEnv("AI_CHAT_KEY"),

					RequestTimeoutMin:     int64(util.GetEnvNumeric("AI_TIMEOUT_MIN", 2)),
					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
				})
			}

			app := &App{
				DBConn:          db,
				Queue:           queue,
				Key:             key,
				S3:              s3,
				AiClient:        aiClient,
				MasterAPIKey:    masterAPIKey,
				MasterUserEmail: masterUserEmail,
			}
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
