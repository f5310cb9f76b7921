// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package semantic provides embedding-similarity fallback matching over the
// knowledge base. Availability of the embedding backend is absorbed here:
// without one, every call is a cheap miss and callers never branch on it.
package semantic

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/techsewa/techsewaCore/internal/knowledge"
)

// DefaultThreshold is the minimum cosine similarity for a semantic match.
const DefaultThreshold = 0.60

// Engine is the embedding backend the matcher runs on.
type Engine interface {
	Embed(text string) ([]float32, error)
	BatchEmbed(texts []string) ([][]float32, error)
	CosineSimilarity(a, b []float32) float64
	IsEnabled() bool
}

// Matcher matches queries against pre-computed embeddings of every English
// answer text. Construct with New; a nil or disabled engine yields a no-op
// matcher whose Search always misses.
type Matcher struct {
	engine    Engine
	threshold float64

	mu         sync.RWMutex
	records    []knowledge.Record
	embeddings [][]float32
	enabled    bool
}

// New builds a matcher over records. threshold <= 0 selects the default.
// When engine is nil or not ready the matcher is permanently disabled.
func New(engine Engine, records []knowledge.Record, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	m := &Matcher{engine: engine, threshold: threshold}

	if engine == nil || !engine.IsEnabled() {
		return m
	}

	if err := m.Refresh(records); err != nil {
		log.Warnf("Semantic matcher disabled: %v", err)
		return m
	}
	return m
}

// Enabled reports whether semantic matching is operational.
func (m *Matcher) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Refresh re-encodes the answer corpus. Called at construction and after a
// teach so learned answers become semantically findable.
func (m *Matcher) Refresh(records []knowledge.Record) error {
	if m.engine == nil || !m.engine.IsEnabled() {
		return nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.AnswerEn
	}

	embeddings, err := m.engine.BatchEmbed(texts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.records = records
	m.embeddings = embeddings
	m.enabled = true
	m.mu.Unlock()

	log.Debugf("Semantic matcher refreshed: %d answers encoded", len(records))
	return nil
}

// Search returns the best-matching answer for lang when its cosine
// similarity reaches threshold (<= 0 selects the matcher default). A
// disabled matcher always returns ("", false).
func (m *Matcher) Search(query, lang string, threshold float64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.enabled || len(m.embeddings) == 0 {
		return "", false
	}
	if threshold <= 0 {
		threshold = m.threshold
	}

	queryVec, err := m.engine.Embed(query)
	if err != nil {
		log.Debugf("Semantic query embedding failed: %v", err)
		return "", false
	}

	bestIdx := -1
	bestScore := 0.0
	for i, vec := range m.embeddings {
		if len(vec) == 0 {
			continue
		}
		score := m.engine.CosineSimilarity(queryVec, vec)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore < threshold {
		return "", false
	}
	return m.records[bestIdx].Answer(lang), true
}
