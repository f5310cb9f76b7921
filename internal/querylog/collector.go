// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package querylog records every resolution attempt to SQLite so operators
// can see what users ask and which tier answered. Logging is best-effort:
// a disabled or broken collector never blocks resolution.
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"
)

// Entry is one logged resolution attempt.
type Entry struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Query      string    `json:"query"`
	Lang       string    `json:"lang"`
	Source     string    `json:"source"` // local, semantic, internet, none
	Confidence int       `json:"confidence"`
	LatencyMs  int64     `json:"latency_ms"`
	Answered   bool      `json:"answered"`
}

// Stats aggregates the resolution log.
type Stats struct {
	TotalQueries       int64            `json:"total_queries"`
	AnswerRate         float64          `json:"answer_rate"`
	SourceDistribution map[string]int64 `json:"source_distribution"`
	AvgLatencyMs       float64          `json:"avg_latency_ms"`
}

// Collector stores resolution entries in SQLite.
type Collector struct {
	db            *sql.DB
	dbPath        string
	retentionDays int
	enabled       bool
	mu            sync.RWMutex
}

// NewCollector creates a collector for the given database file. retentionDays
// <= 0 selects the 90-day default. The collector stays disabled until
// Initialize succeeds.
func NewCollector(dbPath string, retentionDays int) (*Collector, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Collector{
		dbPath:        dbPath,
		retentionDays: retentionDays,
	}, nil
}

// Initialize opens the database and creates the schema.
func (c *Collector) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", c.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS resolutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		query TEXT NOT NULL,
		lang TEXT NOT NULL,
		source TEXT NOT NULL,
		confidence INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL,
		answered INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_resolutions_timestamp ON resolutions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_resolutions_source ON resolutions(source);
	CREATE INDEX IF NOT EXISTS idx_resolutions_created_at ON resolutions(created_at);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	c.db = db
	c.enabled = true
	log.Infof("Query log initialized (db: %s, retention: %d days)", c.dbPath, c.retentionDays)

	go c.cleanupOldEntries(context.Background())
	return nil
}

// IsEnabled returns whether the collector is active.
func (c *Collector) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Record stores an entry. A disabled collector is a silent no-op and insert
// failures are logged, never propagated.
func (c *Collector) Record(ctx context.Context, entry *Entry) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled || entry == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	result, err := c.db.ExecContext(ctx, `
	INSERT INTO resolutions (timestamp, query, lang, source, confidence, latency_ms, answered)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp,
		entry.Query,
		entry.Lang,
		entry.Source,
		entry.Confidence,
		entry.LatencyMs,
		boolToInt(entry.Answered),
	)
	if err != nil {
		log.Warnf("Failed to record resolution: %v", err)
		return
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
}

// Recent retrieves the most recent entries, newest first.
func (c *Collector) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled {
		return nil, fmt.Errorf("query log not enabled")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := c.db.QueryContext(ctx, `
	SELECT id, timestamp, query, lang, source, confidence, latency_ms, answered
	FROM resolutions
	ORDER BY timestamp DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var answered int
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Query, &e.Lang, &e.Source, &e.Confidence, &e.LatencyMs, &answered); err != nil {
			log.Warnf("Failed to scan resolution entry: %v", err)
			continue
		}
		e.Answered = answered == 1
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolution entries: %w", err)
	}
	return entries, nil
}

// GetStats returns aggregated resolution statistics.
func (c *Collector) GetStats(ctx context.Context) (*Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled {
		return nil, fmt.Errorf("query log not enabled")
	}

	stats := &Stats{SourceDistribution: make(map[string]int64)}

	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resolutions").Scan(&stats.TotalQueries); err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	var answeredCount int64
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resolutions WHERE answered = 1").Scan(&answeredCount); err != nil {
		return nil, fmt.Errorf("failed to get answered count: %w", err)
	}
	if stats.TotalQueries > 0 {
		stats.AnswerRate = float64(answeredCount) / float64(stats.TotalQueries)
	}

	rows, err := c.db.QueryContext(ctx, "SELECT source, COUNT(*) FROM resolutions GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to get source distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			continue
		}
		stats.SourceDistribution[source] = count
	}

	var avgLatency sql.NullFloat64
	if err := c.db.QueryRowContext(ctx, "SELECT AVG(latency_ms) FROM resolutions").Scan(&avgLatency); err != nil {
		return nil, fmt.Errorf("failed to get average latency: %w", err)
	}
	stats.AvgLatencyMs = avgLatency.Float64

	return stats, nil
}

// cleanupOldEntries removes entries older than the retention period.
// Called without holding the collector lock.
func (c *Collector) cleanupOldEntries(ctx context.Context) {
	if !c.IsEnabled() {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -c.retentionDays)
	result, err := c.db.ExecContext(ctx, "DELETE FROM resolutions WHERE created_at < ?", cutoff)
	if err != nil {
		log.Warnf("Failed to cleanup old resolution entries: %v", err)
		return
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		log.Infof("Cleaned up %d old resolution entries (older than %d days)", n, c.retentionDays)
	}
}

// Shutdown runs a final cleanup and closes the database.
func (c *Collector) Shutdown(ctx context.Context) error {
	if c.IsEnabled() {
		c.cleanupOldEntries(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	c.enabled = false
	log.Info("Query log shut down")
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
