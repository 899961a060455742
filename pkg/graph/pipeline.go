package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/inboxgraph/backend/pkg/ai"
	"github.com/inboxgraph/backend/pkg/common"
	"github.com/inboxgraph/backend/pkg/logger"
	"github.com/inboxgraph/backend/pkg/mail"
	"github.com/inboxgraph/backend/pkg/store"

	"golang.org/x/sync/errgroup"
)

// Archiver persists raw provider messages for audit and later re-analysis.
// Archiving is best-effort; a failure never aborts a run.
type Archiver interface {
	ArchiveMessage(ctx context.Context, runID string, msg mail.RawMessage) (string, error)
}

// RunParams bundles the inputs of one pipeline run.
//
// Archiver may be nil, in which case raw messages are not archived.
type RunParams struct {
	RunID    string
	Messages []mail.RawMessage
	AI       ai.MailAIClient
	Store    store.MailStorage
	Archiver Archiver
}

// Run executes the full pipeline over a batch of raw messages and returns
// a channel of progress events. The channel is closed when the run
// completes; a terminal error event precedes the close when the run cannot
// continue. Per-item model failures degrade to placeholders and do not
// produce a terminal error. Canceling ctx aborts the remaining work.
func (g *GraphClient) Run(ctx context.Context, params RunParams) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		emit := func(event Event) bool {
			select {
			case events <- event:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if err := g.run(ctx, params, emit); err != nil {
			logger.Error("[Graph][Run] Pipeline failed", "run", params.RunID, "err", err)
			emit(Event{Type: EventError, Error: &ErrorData{Message: err.Error()}})
		}
	}()

	return events
}

func (g *GraphClient) run(ctx context.Context, params RunParams, emit func(Event) bool) error {
	normalized, err := g.ingest(ctx, params, emit)
	if err != nil {
		return err
	}

	deduped := DedupeThreads(normalized)
	participants := ExtractParticipants(deduped)
	logger.Info("[Graph][Run] Extracted participants",
		"run", params.RunID, "emails", len(deduped), "participants", len(participants))

	profiles, err := g.generateProfiles(ctx, params, participants, deduped)
	if err != nil {
		return err
	}

	return g.analyzePairs(ctx, params, profiles, deduped, emit)
}

// ingest normalizes raw messages in fixed-size batches, persists each batch,
// and reports cumulative progress after every batch. The processed count
// covers raw messages, including those filtered out as invalid.
func (g *GraphClient) ingest(
	ctx context.Context,
	params RunParams,
	emit func(Event) bool,
) ([]common.NormalizedEmail, error) {
	total := len(params.Messages)
	var all []common.NormalizedEmail

	for start := 0; start < total; start += g.batchSize {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		end := start + g.batchSize
		if end > total {
			end = total
		}
		rawBatch := params.Messages[start:end]

		batch := NormalizeBatch(rawBatch)
		g.archiveBatch(ctx, params, rawBatch, batch)

		if err := params.Store.SaveEmails(ctx, params.RunID, batch); err != nil {
			return nil, fmt.Errorf("persist emails: %w", err)
		}
		all = append(all, batch...)

		ok := emit(Event{Type: EventEmails, Emails: &EmailsProgress{
			Processed:   end,
			Total:       total,
			LatestBatch: batch,
		}})
		if !ok {
			return nil, ctx.Err()
		}
	}

	return all, nil
}

// archiveBatch stores the raw provider messages and records the archive key
// on the matching normalized emails. Best-effort only.
func (g *GraphClient) archiveBatch(
	ctx context.Context,
	params RunParams,
	raw []mail.RawMessage,
	normalized []common.NormalizedEmail,
) {
	if params.Archiver == nil {
		return
	}

	keys := make(map[string]string, len(raw))
	for _, msg := range raw {
		key, err := params.Archiver.ArchiveMessage(ctx, params.RunID, msg)
		if err != nil {
			logger.Warn("[Graph][Ingest] Raw archive failed", "run", params.RunID, "message", msg.ID, "err", err)
			continue
		}
		keys[msg.ID] = key
	}
	for i := range normalized {
		normalized[i].RawKey = keys[normalized[i].MessageID]
	}
}

// generateProfiles profiles every participant concurrently, bounded by the
// configured parallelism, and upserts results. A store failure is fatal;
// model failures degrade per participant.
func (g *GraphClient) generateProfiles(
	ctx context.Context,
	params RunParams,
	participants []common.Participant,
	emails []common.NormalizedEmail,
) (map[string]common.Profile, error) {
	profiles := make(map[string]common.Profile, len(participants))
	var profilesLock sync.Mutex

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelProfiles)

	for _, participant := range participants {
		participant := participant
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}

			involved := emailsInvolving(emails, participant.Email)
			profile, ok := g.GenerateProfile(gCtx, params.AI, participant, involved)
			if !ok {
				return nil
			}

			if err := params.Store.UpsertProfile(gCtx, profile); err != nil {
				return fmt.Errorf("persist profile %s: %w", participant.Email, err)
			}

			profilesLock.Lock()
			profiles[participant.Email] = profile
			profilesLock.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// analyzePairs enumerates all unordered participant pairs, analyzes the
// interacting ones concurrently under the configured cap, and emits a
// progress event per pair in completion order. Disconnected pairs count
// toward progress but produce no edge.
func (g *GraphClient) analyzePairs(
	ctx context.Context,
	params RunParams,
	profiles map[string]common.Profile,
	emails []common.NormalizedEmail,
	emit func(Event) bool,
) error {
	addresses := make([]string, 0, len(profiles))
	for email := range profiles {
		addresses = append(addresses, email)
	}

	n := len(addresses)
	totalPairs := n * (n - 1) / 2

	var (
		processed     int
		processedLock sync.Mutex
	)
	report := func(latest *common.Relationship) bool {
		processedLock.Lock()
		processed++
		progress := &RelationshipProgress{
			Processed: processed,
			Total:     totalPairs,
			Latest:    latest,
		}
		processedLock.Unlock()
		return emit(Event{Type: EventRelationship, Relationship: progress})
	}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelPairs)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := addresses[i], addresses[j]
			eg.Go(func() error {
				select {
				case <-gCtx.Done():
					return gCtx.Err()
				default:
				}

				interactions := interactionsBetween(emails, a, b)
				rel, ok := g.AnalyzeRelationship(gCtx, params.AI, profiles[a], profiles[b], interactions)
				if !ok {
					if !report(nil) {
						return gCtx.Err()
					}
					return nil
				}

				if err := params.Store.UpsertRelationship(gCtx, rel); err != nil {
					return fmt.Errorf("persist relationship %s/%s: %w", rel.Source, rel.Target, err)
				}

				if !report(&rel) {
					return gCtx.Err()
				}
				return nil
			})
		}
	}

	return eg.Wait()
}

// Reanalyze re-runs profiling and pairwise analysis over the emails already
// persisted for a run, without re-ingesting. It is the worker-side path for
// asynchronous re-analysis jobs.
func (g *GraphClient) Reanalyze(
	ctx context.Context,
	runID string,
	aiClient ai.MailAIClient,
	storage store.MailStorage,
) error {
	emails, err := storage.EmailsByRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load emails for run %s: %w", runID, err)
	}
	if len(emails) == 0 {
		logger.Warn("[Graph][Reanalyze] No emails for run", "run", runID)
		return nil
	}

	deduped := DedupeThreads(emails)
	participants := ExtractParticipants(deduped)

	params := RunParams{RunID: runID, AI: aiClient, Store: storage}
	profiles, err := g.generateProfiles(ctx, params, participants, deduped)
	if err != nil {
		return err
	}

	emit := func(Event) bool { return true }
	return g.analyzePairs(ctx, params, profiles, deduped, emit)
}
