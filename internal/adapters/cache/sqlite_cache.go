package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mailshield/mailshield/internal/core"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the FeatureCache port.
// Nullable columns preserve the unknown/measured distinction of the
// snapshot pointer fields across a round trip.
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteCache creates a new SQLite feature cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create tables if they don't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_intel (
			domain TEXT PRIMARY KEY,
			registered_iso TEXT,
			registrant_name TEXT,
			securitytxt_present BOOLEAN,
			crtsh_count INTEGER,
			web_presence BOOLEAN,
			web_presence_url TEXT,
			urlscan_total INTEGER,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create domain_intel table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ip_intel (
			ip TEXT PRIMARY KEY,
			abuse_score INTEGER,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ip_intel table: %w", err)
	}

	// Create indexes on expires_at for faster cleanup
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_domain_expires_at ON domain_intel(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ip_expires_at ON ip_intel(expires_at)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	cache := &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go cache.startCleanupTask()

	return cache, nil
}

// GetDomain retrieves a cached domain snapshot
func (c *SQLiteCache) GetDomain(ctx context.Context, domain string) (*core.DomainSnapshot, error) {
	var (
		registeredISO  sql.NullString
		registrantName sql.NullString
		securityTxt    sql.NullBool
		crtshCount     sql.NullInt64
		webPresence    sql.NullBool
		webPresenceURL sql.NullString
		urlscanTotal   sql.NullInt64
		expiresAt      string
	)

	err := c.db.QueryRowContext(ctx, `
		SELECT registered_iso, registrant_name, securitytxt_present, crtsh_count,
		       web_presence, web_presence_url, urlscan_total, expires_at
		FROM domain_intel
		WHERE domain = ? AND expires_at > ?
	`, domain, time.Now().UTC().Format(time.RFC3339)).Scan(
		&registeredISO, &registrantName, &securityTxt, &crtshCount,
		&webPresence, &webPresenceURL, &urlscanTotal, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query domain cache: %w", err)
	}

	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		c.logger.Error("Failed to parse expires_at timestamp", zap.Error(err))
		return nil, ErrNotFound
	}

	snap := &core.DomainSnapshot{
		Domain:         domain,
		RegisteredISO:  registeredISO.String,
		RegistrantName: registrantName.String,
		WebPresenceURL: webPresenceURL.String,
		ExpiresAt:      expiry,
	}
	if securityTxt.Valid {
		v := securityTxt.Bool
		snap.SecurityTxtPresent = &v
	}
	if crtshCount.Valid {
		v := int(crtshCount.Int64)
		snap.CertificateCount = &v
	}
	if webPresence.Valid {
		v := webPresence.Bool
		snap.WebPresence = &v
	}
	if urlscanTotal.Valid {
		v := int(urlscanTotal.Int64)
		snap.URLScanTotal = &v
	}
	return snap, nil
}

// PutDomain stores a domain snapshot
func (c *SQLiteCache) PutDomain(ctx context.Context, snap *core.DomainSnapshot) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO domain_intel
			(domain, registered_iso, registrant_name, securitytxt_present, crtsh_count,
			 web_presence, web_presence_url, urlscan_total, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.Domain, snap.RegisteredISO, snap.RegistrantName,
		nullBool(snap.SecurityTxtPresent), nullInt(snap.CertificateCount),
		nullBool(snap.WebPresence), snap.WebPresenceURL, nullInt(snap.URLScanTotal),
		snap.ExpiresAt.UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert domain cache entry: %w", err)
	}
	return nil
}

// GetIP retrieves a cached IP snapshot
func (c *SQLiteCache) GetIP(ctx context.Context, ip string) (*core.IPSnapshot, error) {
	var (
		abuseScore sql.NullInt64
		expiresAt  string
	)

	err := c.db.QueryRowContext(ctx, `
		SELECT abuse_score, expires_at
		FROM ip_intel
		WHERE ip = ? AND expires_at > ?
	`, ip, time.Now().UTC().Format(time.RFC3339)).Scan(&abuseScore, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query ip cache: %w", err)
	}

	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		c.logger.Error("Failed to parse expires_at timestamp", zap.Error(err))
		return nil, ErrNotFound
	}

	snap := &core.IPSnapshot{IP: ip, ExpiresAt: expiry}
	if abuseScore.Valid {
		v := int(abuseScore.Int64)
		snap.AbuseScore = &v
	}
	return snap, nil
}

// PutIP stores an IP snapshot
func (c *SQLiteCache) PutIP(ctx context.Context, snap *core.IPSnapshot) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO ip_intel (ip, abuse_score, expires_at)
		VALUES (?, ?, ?)
	`, snap.IP, nullInt(snap.AbuseScore), snap.ExpiresAt.UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert ip cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var total int64

	for _, table := range []string{"domain_intel", "ip_intel"} {
		result, err := c.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= ?`, table), now)
		if err != nil {
			return fmt.Errorf("failed to clean up expired entries: %w", err)
		}
		if rows, err := result.RowsAffected(); err == nil {
			total += rows
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", total))
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLiteCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}

func nullBool(v *bool) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
