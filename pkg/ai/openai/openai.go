package openai

import (
	"sync"

	"github.com/inboxgraph/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// MailOpenAIClient is an OpenAI-backed client for mailbox analysis. It manages
// separate clients for embeddings and chat/completion tasks, limits concurrent
// requests through an internal semaphore, and accumulates usage metrics.
//
// A MailOpenAIClient should be created using NewMailOpenAIClient.
type MailOpenAIClient struct {
	analysisModel  string
	embeddingModel string

	chatURL      string
	chatKey      string
	embeddingURL string
	embeddingKey string

	timeoutMin int64
	reqLock    *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewMailOpenAIClientParams defines the configuration parameters for creating
// a new MailOpenAIClient.
//
// AnalysisModel specifies the model used for profiling and relationship
// analysis. EmbeddingModel specifies the model used for embeddings.
// ChatURL/ChatKey and EmbeddingURL/EmbeddingKey configure the API endpoints;
// an empty URL means the default OpenAI endpoint.
type NewMailOpenAIClientParams struct {
	AnalysisModel  string
	EmbeddingModel string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	RequestTimeoutMin     int64
	MaxConcurrentRequests int64
}

// NewMailOpenAIClient creates and returns a new MailOpenAIClient configured
// with the provided parameters.
//
// Example:
//
//	params := openai.NewMailOpenAIClientParams{
//		AnalysisModel:         "gpt-4o-mini",
//		EmbeddingModel:        "text-embedding-3-small",
//		ChatKey:               os.Getenv("OPENAI_API_KEY"),
//		EmbeddingKey:          os.Getenv("OPENAI_API_KEY"),
//		RequestTimeoutMin:     2,
//		MaxConcurrentRequests: 4,
//	}
//	client := openai.NewMailOpenAIClient(params)
func NewMailOpenAIClient(
	params NewMailOpenAIClientParams,
) *MailOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedClient := newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey)

	timeoutMin := params.RequestTimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 2
	}
	maxReq := params.MaxConcurrentRequests
	if maxReq <= 0 {
		maxReq = 4
	}

	return &MailOpenAIClient{
		analysisModel:  params.AnalysisModel,
		embeddingModel: params.EmbeddingModel,

		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,
		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,

		timeoutMin: timeoutMin,
		reqLock:    semaphore.NewWeighted(maxReq),

		metricsLock: sync.Mutex{},
		metrics: ai.ModelMetrics{
			InputTokens:  0,
			OutputTokens: 0,
			TotalTokens:  0,
			DurationMs:   0,
		},

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
