package store

import (
	"context"

	"github.com/inboxgraph/backend/pkg/common"
)

// MailStorage defines the interface for persisting and querying analyzed
// mailbox data: normalized emails, participant profiles, and pairwise
// relationships.
type MailStorage interface {
	SaveEmails(ctx context.Context, runID string, emails []common.NormalizedEmail) error
	EmailsByRun(ctx context.Context, runID string) ([]common.NormalizedEmail, error)
	RecentEmails(ctx context.Context, limit int) ([]common.NormalizedEmail, error)
	DistinctParticipants(ctx context.Context) ([]common.Participant, error)

	UpsertProfile(ctx context.Context, profile common.Profile) error
	ListProfiles(ctx context.Context) ([]common.Profile, error)

	UpsertRelationship(ctx context.Context, rel common.Relationship) error
	ListRelationships(ctx context.Context) ([]common.Relationship, error)
}

// ChunkRange invokes fn over [start,end) index windows of at most chunkSize
// elements, stopping at the first error.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}
