package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the FeatureCache port for
// deployments where several filter instances share one cache.
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLCache creates a new MySQL feature cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_intel (
			domain VARCHAR(255) PRIMARY KEY,
			registered_iso VARCHAR(64),
			registrant_name VARCHAR(255),
			securitytxt_present BOOLEAN,
			crtsh_count INT,
			web_presence BOOLEAN,
			web_presence_url VARCHAR(512),
			urlscan_total INT,
			expires_at DATETIME,
			INDEX idx_domain_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create domain_intel table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ip_intel (
			ip VARCHAR(64) PRIMARY KEY,
			abuse_score INT,
			expires_at DATETIME,
			INDEX idx_ip_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ip_intel table: %w", err)
	}

	cache := &MySQLCache{
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
func (c *MySQLCache) GetDomain(ctx context.Context, domain string) (*core.DomainSnapshot, error) {
	var (
		registeredISO  sql.NullString
		registrantName sql.NullString
		securityTxt    sql.NullBool
		crtshCount     sql.NullInt64
		webPresence    sql.NullBool
		webPresenceURL sql.NullString
		urlscanTotal   sql.NullInt64
		expiresAt      time.Time
	)

	err := c.db.QueryRowContext(ctx, `
		SELECT registered_iso, registrant_name, securitytxt_present, crtsh_count,
		       web_presence, web_presence_url, urlscan_total, expires_at
		FROM domain_intel
		WHERE domain = ? AND expires_at > UTC_TIMESTAMP()
	`, domain).Scan(
		&registeredISO, &registrantName, &securityTxt, &crtshCount,
		&webPresence, &webPresenceURL, &urlscanTotal, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query domain cache: %w", err)
	}

	snap := &core.DomainSnapshot{
		Domain:         domain,
		RegisteredISO:  registeredISO.String,
		RegistrantName: registrantName.String,
		WebPresenceURL: webPresenceURL.String,
		ExpiresAt:      expiresAt,
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
func (c *MySQLCache) PutDomain(ctx context.Context, snap *core.DomainSnapshot) error {
	_, err := c.db.ExecContext(ctx, `
		REPLACE INTO domain_intel
			(domain, registered_iso, registrant_name, securitytxt_present, crtsh_count,
			 web_presence, web_presence_url, urlscan_total, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.Domain, snap.RegisteredISO, snap.RegistrantName,
		nullBool(snap.SecurityTxtPresent), nullInt(snap.CertificateCount),
		nullBool(snap.WebPresence), snap.WebPresenceURL, nullInt(snap.URLScanTotal),
		snap.ExpiresAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to insert domain cache entry: %w", err)
	}
	return nil
}

// GetIP retrieves a cached IP snapshot
func (c *MySQLCache) GetIP(ctx context.Context, ip string) (*core.IPSnapshot, error) {
	var (
		abuseScore sql.NullInt64
		expiresAt  time.Time
	)

	err := c.db.QueryRowContext(ctx, `
		SELECT abuse_score, expires_at
		FROM ip_intel
		WHERE ip = ? AND expires_at > UTC_TIMESTAMP()
	`, ip).Scan(&abuseScore, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query ip cache: %w", err)
	}

	snap := &core.IPSnapshot{IP: ip, ExpiresAt: expiresAt}
	if abuseScore.Valid {
		v := int(abuseScore.Int64)
		snap.AbuseScore = &v
	}
	return snap, nil
}

// PutIP stores an IP snapshot
func (c *MySQLCache) PutIP(ctx context.Context, snap *core.IPSnapshot) error {
	_, err := c.db.ExecContext(ctx, `
		REPLACE INTO ip_intel (ip, abuse_score, expires_at)
		VALUES (?, ?, ?)
	`, snap.IP, nullInt(snap.AbuseScore), snap.ExpiresAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to insert ip cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	var total int64

	for _, table := range []string{"domain_intel", "ip_intel"} {
		result, err := c.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= UTC_TIMESTAMP()`, table))
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
func (c *MySQLCache) startCleanupTask() {
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
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
