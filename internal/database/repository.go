package database

import (
	"context"
	"fmt"
	"time"

	"go-hh-autoapply/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	// Poolers in transaction mode do not support prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Ping to ensure connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS vacancy_outcomes (
	identity     TEXT PRIMARY KEY,
	partition    TEXT NOT NULL CHECK (partition IN ('processed', 'skipped')),
	title        TEXT NOT NULL,
	status       TEXT NOT NULL,
	cover_letter BOOLEAN NOT NULL DEFAULT FALSE,
	recorded_at  TIMESTAMPTZ NOT NULL,
	run_id       TEXT NOT NULL DEFAULT '',
	exported_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS vacancy_outcomes_partition_idx ON vacancy_outcomes (partition, status);
`

// EnsureSchema creates the outcome table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ---------------- OUTCOME OPERATIONS ----------------

// UpsertOutcomes mirrors ledger entries in one transaction. The newest
// recorded_at wins, so re-exporting an older ledger never rolls a row back.
func (r *Repository) UpsertOutcomes(ctx context.Context, outcomes []models.VacancyOutcome) (int, error) {
	if len(outcomes) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin export: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, o := range outcomes {
		batch.Queue(`
			INSERT INTO vacancy_outcomes (identity, partition, title, status, cover_letter, recorded_at, run_id, exported_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (identity)
			DO UPDATE SET partition = EXCLUDED.partition, title = EXCLUDED.title, status = EXCLUDED.status,
				cover_letter = EXCLUDED.cover_letter, recorded_at = EXCLUDED.recorded_at,
				run_id = EXCLUDED.run_id, exported_at = now()
			WHERE vacancy_outcomes.recorded_at <= EXCLUDED.recorded_at`,
			o.Identity, string(o.Partition), o.Title, o.Status, o.CoverLetter, o.RecordedAt, o.RunID)
	}

	br := tx.SendBatch(ctx, batch)
	written := 0
	for i := range outcomes {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("failed to upsert outcome %s: %w", outcomes[i].Identity, err)
		}
		written += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("batch close: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit export: %w", err)
	}
	return written, nil
}

// CountByStatus returns exported rows grouped by partition and status.
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT partition || ':' || status, count(*) FROM vacancy_outcomes GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
