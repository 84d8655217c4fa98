package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mailshield/mailshield/internal/core"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore is a PostgreSQL TrustStore and HITLQueue for
// deployments where the review dashboard and several filter instances
// share one database.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore creates a new PostgreSQL feedback store
func NewPostgresStore(dsn string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_feedback (
			id SERIAL PRIMARY KEY,
			domain TEXT NOT NULL,
			verdict TEXT NOT NULL,
			actor TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sender_feedback table: %w", err)
	}
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_feedback_domain_created
		ON sender_feedback (domain, created_at DESC)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create feedback index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS hitl_queue (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			created_ts TIMESTAMPTZ NOT NULL,
			verdict TEXT NOT NULL,
			risk INT NOT NULL,
			has_phi BOOLEAN NOT NULL,
			intent TEXT,
			from_addr TEXT,
			from_domain TEXT,
			subject TEXT,
			blob_key TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create hitl_queue table: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// TrustFor derives the trust tier for a domain from its recent verdicts
func (s *PostgresStore) TrustFor(ctx context.Context, domain string) (core.TrustFeedback, error) {
	recent, err := s.RecentVerdicts(ctx, domain, trustWindow)
	if err != nil {
		return core.TrustFeedback{}, err
	}
	return deriveTier(recent), nil
}

// RecordVerdict inserts a human verdict
func (s *PostgresStore) RecordVerdict(ctx context.Context, rec core.VerdictRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sender_feedback (domain, verdict, actor, created_at)
		VALUES ($1, $2, $3, $4)
	`, rec.Domain, rec.Verdict, rec.Actor, createdAt)
	if err != nil {
		return fmt.Errorf("failed to record verdict: %w", err)
	}
	return nil
}

// RecentVerdicts returns up to limit verdicts for a domain, newest first
func (s *PostgresStore) RecentVerdicts(ctx context.Context, domain string, limit int) ([]core.VerdictRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, verdict, COALESCE(actor, ''), created_at
		FROM sender_feedback
		WHERE domain = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, domain, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var out []core.VerdictRecord
	for rows.Next() {
		var rec core.VerdictRecord
		if err := rows.Scan(&rec.Domain, &rec.Verdict, &rec.Actor, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verdict row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verdict rows: %w", err)
	}
	return out, nil
}

// Enqueue inserts a HITL item; re-evaluating the same message updates
// the existing row instead of duplicating it.
func (s *PostgresStore) Enqueue(ctx context.Context, item core.HITLItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hitl_queue
			(id, status, created_ts, verdict, risk, has_phi, intent,
			 from_addr, from_domain, subject, blob_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			created_ts = EXCLUDED.created_ts,
			verdict = EXCLUDED.verdict,
			risk = EXCLUDED.risk,
			blob_key = EXCLUDED.blob_key
	`, item.ID, item.Status, item.CreatedTS, string(item.Verdict), item.Risk,
		item.HasPHI, item.Intent, item.FromAddr, item.FromDomain, item.Subject, item.BlobKey)
	if err != nil {
		return fmt.Errorf("failed to enqueue HITL item: %w", err)
	}
	return nil
}

// Stop closes the database connection
func (s *PostgresStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close PostgreSQL database", zap.Error(err))
	}
}
