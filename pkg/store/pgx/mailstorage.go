package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// MailDBStorage implements the store.MailStorage interface using PostgreSQL
// with pgvector for relationship embeddings.
type MailDBStorage struct {
	conn pgxIConn
}

// NewMailDBStorageWithConnection creates a new MailDBStorage using an
// existing database connection or pool.
func NewMailDBStorageWithConnection(conn pgxIConn) *MailDBStorage {
	return &MailDBStorage{
		conn: conn,
	}
}
