package graph

import "time"

// GraphClient runs the mailbox analysis pipeline: normalization, thread
// deduplication, participant extraction, profiling, and pairwise
// relationship analysis. It bounds prompt sizes and concurrent AI requests.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	batchSize        int
	chunkSize        int
	sampleSize       int
	parallelProfiles int
	parallelPairs    int
	maxRetries       int
	callTimeout      time.Duration
	embeddings       bool
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// BatchSize controls how many raw messages are normalized per progress
// event. ChunkSize bounds the number of emails per profiling prompt.
// SampleSize bounds the interactions quoted per relationship prompt.
// ParallelProfiles and ParallelPairs cap concurrent AI calls for the
// profiling and pairwise stages. CallTimeout bounds each model call;
// a timed-out call degrades to the fallback result. Embeddings toggles
// best-effort embedding generation for relationship records.
type NewGraphClientParams struct {
	BatchSize        int
	ChunkSize        int
	SampleSize       int
	ParallelProfiles int
	ParallelPairs    int
	MaxRetries       int
	CallTimeout      time.Duration
	Embeddings       bool
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters. Non-positive values fall back to defaults.
//
// Example:
//
//	params := graph.NewGraphClientParams{
//		BatchSize:        5,
//		ParallelProfiles: 4,
//		ParallelPairs:    4,
//		Embeddings:       true,
//	}
//	client, err := graph.NewGraphClient(params)
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	chunkSize := params.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 5
	}
	sampleSize := params.SampleSize
	if sampleSize <= 0 {
		sampleSize = 3
	}
	parallelProfiles := params.ParallelProfiles
	if parallelProfiles <= 0 {
		parallelProfiles = 4
	}
	parallelPairs := params.ParallelPairs
	if parallelPairs <= 0 {
		parallelPairs = 4
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	callTimeout := params.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 2 * time.Minute
	}

	g := &GraphClient{
		batchSize:        batchSize,
		chunkSize:        chunkSize,
		sampleSize:       sampleSize,
		parallelProfiles: parallelProfiles,
		parallelPairs:    parallelPairs,
		maxRetries:       maxRetries,
		callTimeout:      callTimeout,
		embeddings:       params.Embeddings,
	}

	return g, nil
}
