package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inboxgraph/backend/internal/util"
	"github.com/inboxgraph/backend/pkg/common"

	"github.com/pgvector/pgvector-go"
)

// UpsertRelationship stores the analyzed connection between a pair of
// participants. Source and target are stored in canonical order so
// re-analysis of the same pair replaces the previous row instead of
// creating a duplicate.
func (s *MailDBStorage) UpsertRelationship(ctx context.Context, rel common.Relationship) error {
	source, target := common.PairKey(rel.Source, rel.Target)

	sharedInterests, err := json.Marshal(rel.SharedInterests)
	if err != nil {
		return fmt.Errorf("marshal shared interests for %s/%s: %w", source, target, err)
	}
	connectionPoints, err := json.Marshal(rel.ConnectionPoints)
	if err != nil {
		return fmt.Errorf("marshal connection points for %s/%s: %w", source, target, err)
	}

	var embedding any
	if len(rel.Embedding) > 0 {
		embedding = pgvector.NewVector(rel.Embedding)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO relationships (
			source, target, shared_interests, connection_points,
			strength_score, strength_reasoning,
			email_count, last_interaction, embedding, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (source, target) DO UPDATE SET
			shared_interests = EXCLUDED.shared_interests,
			connection_points = EXCLUDED.connection_points,
			strength_score = EXCLUDED.strength_score,
			strength_reasoning = EXCLUDED.strength_reasoning,
			email_count = EXCLUDED.email_count,
			last_interaction = EXCLUDED.last_interaction,
			embedding = COALESCE(EXCLUDED.embedding, relationships.embedding),
			updated_at = now()
	`,
		source,
		target,
		sharedInterests,
		connectionPoints,
		rel.Strength.Score,
		util.SanitizePostgresText(rel.Strength.Reasoning),
		rel.EmailCount,
		rel.LastInteraction,
		embedding,
	)
	if err != nil {
		return fmt.Errorf("upsert relationship %s/%s: %w", source, target, err)
	}
	return nil
}

// ListRelationships returns all stored relationships ordered by pair.
func (s *MailDBStorage) ListRelationships(ctx context.Context) ([]common.Relationship, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT source, target, shared_interests, connection_points,
			strength_score, strength_reasoning,
			email_count, last_interaction, updated_at
		FROM relationships
		ORDER BY source ASC, target ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.Relationship
	for rows.Next() {
		var (
			rel              common.Relationship
			sharedInterests  []byte
			connectionPoints []byte
		)
		err := rows.Scan(
			&rel.Source,
			&rel.Target,
			&sharedInterests,
			&connectionPoints,
			&rel.Strength.Score,
			&rel.Strength.Reasoning,
			&rel.EmailCount,
			&rel.LastInteraction,
			&rel.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(sharedInterests) > 0 {
			if err := json.Unmarshal(sharedInterests, &rel.SharedInterests); err != nil {
				return nil, fmt.Errorf("unmarshal shared interests for %s/%s: %w", rel.Source, rel.Target, err)
			}
		}
		if len(connectionPoints) > 0 {
			if err := json.Unmarshal(connectionPoints, &rel.ConnectionPoints); err != nil {
				return nil, fmt.Errorf("unmarshal connection points for %s/%s: %w", rel.Source, rel.Target, err)
			}
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}
