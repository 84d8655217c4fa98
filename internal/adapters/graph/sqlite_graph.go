package graph

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mailshield/mailshield/internal/core"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteGraph is a persistent implementation of the SenderGraph port.
// The upsert increments the counter and the follow-up read runs in the
// same transaction, so concurrent observations never lose updates.
type SQLiteGraph struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteGraph creates a new SQLite sender graph
func NewSQLiteGraph(dbPath string, logger *zap.Logger) (*SQLiteGraph, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_observations (
			kind TEXT NOT NULL,
			key TEXT NOT NULL,
			seen_count INTEGER NOT NULL DEFAULT 0,
			first_seen TIMESTAMP,
			last_seen TIMESTAMP,
			PRIMARY KEY (kind, key)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sender_observations table: %w", err)
	}

	return &SQLiteGraph{db: db, logger: logger}, nil
}

// Observe increments the domain and address counters and returns the
// post-increment view.
func (g *SQLiteGraph) Observe(ctx context.Context, domain, addr string) (core.GraphStats, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return core.GraphStats{}, fmt.Errorf("failed to begin graph transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	domainSeen, err := bumpTx(ctx, tx, "domain", domain, now)
	if err != nil {
		return core.GraphStats{}, err
	}

	// An empty sender address would pool every malformed envelope under
	// one "" row; leave the address signal unknown instead.
	var firstAddr *bool
	if addr != "" {
		addrSeen, err := bumpTx(ctx, tx, "addr", addr, now)
		if err != nil {
			return core.GraphStats{}, err
		}
		fa := addrSeen == 1
		firstAddr = &fa
	}

	if err := tx.Commit(); err != nil {
		return core.GraphStats{}, fmt.Errorf("failed to commit graph transaction: %w", err)
	}

	firstDomain := domainSeen == 1
	return core.GraphStats{
		FirstTimeDomain: &firstDomain,
		FirstTimeAddr:   firstAddr,
		DomainSeen:      &domainSeen,
	}, nil
}

func bumpTx(ctx context.Context, tx *sql.Tx, kind, key, now string) (int, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sender_observations (kind, key, seen_count, first_seen, last_seen)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (kind, key) DO UPDATE SET
			seen_count = seen_count + 1,
			last_seen = excluded.last_seen
	`, kind, key, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert observation: %w", err)
	}

	var seen int
	err = tx.QueryRowContext(ctx, `
		SELECT seen_count FROM sender_observations WHERE kind = ? AND key = ?
	`, kind, key).Scan(&seen)
	if err != nil {
		return 0, fmt.Errorf("failed to read observation count: %w", err)
	}
	return seen, nil
}

// Stop closes the database connection
func (g *SQLiteGraph) Stop() {
	if err := g.db.Close(); err != nil {
		g.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
