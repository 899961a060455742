package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inboxgraph/backend/internal/util"
	"github.com/inboxgraph/backend/pkg/common"
	"github.com/inboxgraph/backend/pkg/logger"
	"github.com/inboxgraph/backend/pkg/store"
)

// SaveEmails persists a batch of normalized emails within a single
// transaction per chunk. Emails are append-only; re-ingesting the same
// message ID for a run replaces the stored copy.
func (s *MailDBStorage) SaveEmails(ctx context.Context, runID string, emails []common.NormalizedEmail) error {
	if len(emails) == 0 {
		return nil
	}

	logger.Debug("[Store][SaveEmails] Bulk upserting emails", "run", runID, "emails", len(emails))

	const chunkSize = 500
	return store.ChunkRange(len(emails), chunkSize, func(start, end int) error {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		for _, email := range emails[start:end] {
			recipients, err := json.Marshal(email.Recipients)
			if err != nil {
				return fmt.Errorf("marshal recipients for %s: %w", email.MessageID, err)
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO emails (
					run_id, message_id, thread_id,
					sender_name, sender_email, recipients,
					subject, body, sent_at, raw_key
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (run_id, message_id) DO UPDATE SET
					thread_id = EXCLUDED.thread_id,
					sender_name = EXCLUDED.sender_name,
					sender_email = EXCLUDED.sender_email,
					recipients = EXCLUDED.recipients,
					subject = EXCLUDED.subject,
					body = EXCLUDED.body,
					sent_at = EXCLUDED.sent_at,
					raw_key = EXCLUDED.raw_key
			`,
				runID,
				email.MessageID,
				email.ThreadID,
				util.SanitizePostgresText(email.Sender.Name),
				email.Sender.Email,
				recipients,
				util.SanitizePostgresText(email.Subject),
				util.SanitizePostgresText(email.Body),
				email.Date,
				email.RawKey,
			)
			if err != nil {
				return fmt.Errorf("upsert email %s: %w", email.MessageID, err)
			}
		}

		return tx.Commit(ctx)
	})
}

const emailColumns = `
	message_id, thread_id, sender_name, sender_email,
	recipients, subject, body, sent_at, COALESCE(raw_key, '')
`

func scanEmails(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]common.NormalizedEmail, error) {
	var out []common.NormalizedEmail
	for rows.Next() {
		var (
			email      common.NormalizedEmail
			recipients []byte
		)
		err := rows.Scan(
			&email.MessageID,
			&email.ThreadID,
			&email.Sender.Name,
			&email.Sender.Email,
			&recipients,
			&email.Subject,
			&email.Body,
			&email.Date,
			&email.RawKey,
		)
		if err != nil {
			return nil, err
		}
		if len(recipients) > 0 {
			if err := json.Unmarshal(recipients, &email.Recipients); err != nil {
				return nil, fmt.Errorf("unmarshal recipients for %s: %w", email.MessageID, err)
			}
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

// EmailsByRun returns all emails ingested under the given run ID, oldest first.
func (s *MailDBStorage) EmailsByRun(ctx context.Context, runID string) ([]common.NormalizedEmail, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+emailColumns+`
		FROM emails
		WHERE run_id = $1
		ORDER BY sent_at ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEmails(rows)
}

// RecentEmails returns the most recently ingested emails, newest first,
// capped at limit.
func (s *MailDBStorage) RecentEmails(ctx context.Context, limit int) ([]common.NormalizedEmail, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.conn.Query(ctx, `
		SELECT `+emailColumns+`
		FROM emails
		ORDER BY sent_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEmails(rows)
}

// DistinctParticipants returns every unique address that appears as a sender
// or recipient across all stored emails, with the most recent known display
// name.
func (s *MailDBStorage) DistinctParticipants(ctx context.Context) ([]common.Participant, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT ON (email) email, name FROM (
			SELECT sender_email AS email, sender_name AS name, sent_at
			FROM emails
			WHERE sender_email <> ''
			UNION ALL
			SELECT r->>'email' AS email, COALESCE(r->>'name', '') AS name, sent_at
			FROM emails, jsonb_array_elements(recipients) AS r
			WHERE r->>'email' IS NOT NULL AND r->>'email' <> ''
		) participants
		ORDER BY email, sent_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.Participant
	for rows.Next() {
		var p common.Participant
		if err := rows.Scan(&p.Email, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
