// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package querylog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewCollector tests collector creation.
func TestNewCollector(t *testing.T) {
	tests := []struct {
		name          string
		dbPath        string
		retentionDays int
		wantErr       bool
	}{
		{
			name:          "valid parameters",
			dbPath:        "/tmp/test.db",
			retentionDays: 90,
			wantErr:       false,
		},
		{
			name:          "empty db path",
			dbPath:        "",
			retentionDays: 90,
			wantErr:       true,
		},
		{
			name:          "zero retention days defaults to 90",
			dbPath:        "/tmp/test.db",
			retentionDays: 0,
			wantErr:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector, err := NewCollector(tt.dbPath, tt.retentionDays)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCollector() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && collector == nil {
				t.Error("NewCollector() returned nil collector")
			}
		})
	}
}

// TestCollectorInitialize tests collector initialization.
func TestCollectorInitialize(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_querylog.db")

	collector, err := NewCollector(dbPath, 90)
	if err != nil {
		t.Fatalf("NewCollector() failed: %v", err)
	}

	ctx := context.Background()
	if err := collector.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	defer collector.Shutdown(ctx)

	if !collector.IsEnabled() {
		t.Error("Collector should be enabled after initialization")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

// TestCollectorRecordAndRecent tests recording and retrieving entries.
func TestCollectorRecordAndRecent(t *testing.T) {
	tmpDir := t.TempDir()
	collector, err := NewCollector(filepath.Join(tmpDir, "q.db"), 90)
	if err != nil {
		t.Fatalf("NewCollector() failed: %v", err)
	}

	ctx := context.Background()
	if err := collector.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	defer collector.Shutdown(ctx)

	entries := []*Entry{
		{Query: "wifi not working", Lang: "en", Source: "local", Confidence: 100, LatencyMs: 2, Answered: true, Timestamp: time.Now().Add(-2 * time.Second)},
		{Query: "pritner jam", Lang: "en", Source: "local", Confidence: 91, LatencyMs: 4, Answered: true, Timestamp: time.Now().Add(-time.Second)},
		{Query: "quantum flux", Lang: "en", Source: "none", Confidence: 0, LatencyMs: 1, Answered: false, Timestamp: time.Now()},
	}
	for _, e := range entries {
		collector.Record(ctx, e)
		if e.ID == 0 {
			t.Errorf("Record() did not assign an ID for query %q", e.Query)
		}
	}

	recent, err := collector.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Recent() returned %d entries, want 3", len(recent))
	}
	// Newest first.
	if recent[0].Query != "quantum flux" {
		t.Errorf("Recent()[0].Query = %q, want %q", recent[0].Query, "quantum flux")
	}
	if recent[0].Answered {
		t.Error("unanswered entry round-tripped as answered")
	}
	if !recent[1].Answered {
		t.Error("answered entry round-tripped as unanswered")
	}
}

// TestCollectorRecordDisabledIsNoOp tests that an uninitialized collector
// silently drops entries.
func TestCollectorRecordDisabledIsNoOp(t *testing.T) {
	collector, err := NewCollector("/tmp/never-created.db", 90)
	if err != nil {
		t.Fatalf("NewCollector() failed: %v", err)
	}

	entry := &Entry{Query: "wifi", Lang: "en", Source: "local", Answered: true}
	collector.Record(context.Background(), entry)

	if entry.ID != 0 {
		t.Error("disabled collector should not assign IDs")
	}
	if _, err := collector.Recent(context.Background(), 10); err == nil {
		t.Error("Recent() on disabled collector should return an error")
	}
}

// TestCollectorGetStats tests the aggregate view.
func TestCollectorGetStats(t *testing.T) {
	tmpDir := t.TempDir()
	collector, err := NewCollector(filepath.Join(tmpDir, "s.db"), 90)
	if err != nil {
		t.Fatalf("NewCollector() failed: %v", err)
	}

	ctx := context.Background()
	if err := collector.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	defer collector.Shutdown(ctx)

	collector.Record(ctx, &Entry{Query: "a", Lang: "en", Source: "local", LatencyMs: 10, Answered: true})
	collector.Record(ctx, &Entry{Query: "b", Lang: "en", Source: "internet", LatencyMs: 30, Answered: true})
	collector.Record(ctx, &Entry{Query: "c", Lang: "np", Source: "none", LatencyMs: 20, Answered: false})

	stats, err := collector.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() failed: %v", err)
	}
	if stats.TotalQueries != 3 {
		t.Errorf("TotalQueries = %d, want 3", stats.TotalQueries)
	}
	if stats.AnswerRate < 0.66 || stats.AnswerRate > 0.67 {
		t.Errorf("AnswerRate = %f, want ~0.667", stats.AnswerRate)
	}
	if stats.SourceDistribution["local"] != 1 || stats.SourceDistribution["internet"] != 1 || stats.SourceDistribution["none"] != 1 {
		t.Errorf("SourceDistribution = %v, want one of each", stats.SourceDistribution)
	}
	if stats.AvgLatencyMs != 20 {
		t.Errorf("AvgLatencyMs = %f, want 20", stats.AvgLatencyMs)
	}
}

// TestCollectorShutdown tests shutdown idempotence.
func TestCollectorShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	collector, err := NewCollector(filepath.Join(tmpDir, "x.db"), 90)
	if err != nil {
		t.Fatalf("NewCollector() failed: %v", err)
	}

	ctx := context.Background()
	if err := collector.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	if err := collector.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}
	if collector.IsEnabled() {
		t.Error("collector should be disabled after shutdown")
	}
	if err := collector.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() failed: %v", err)
	}
}
