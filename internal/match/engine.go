// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package match implements exact-token and fuzzy-similarity matching against
// the knowledge base, with a bounded memoization cache.
package match

import (
	"fmt"
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/techsewa/techsewaCore/internal/knowledge"
)

// DefaultMinConfidence is the fuzzy score (0-100) required to accept a
// non-exact match when the caller does not override it.
const DefaultMinConfidence = 75

// DefaultCacheSize bounds the memoization cache.
const DefaultCacheSize = 500

// \p{L} keeps Devanagari query tokens intact; \w alone would split them.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Answer is a successful match outcome.
type Answer struct {
	// Text is the answer in the requested language (English fallback).
	Text string

	// RecordID identifies the matched record.
	RecordID string

	// Score is 100 for exact token hits, the token-set ratio otherwise.
	Score int

	// Exact reports whether the match came from the exact token path.
	Exact bool
}

// Engine matches queries against a knowledge store. Match behaves as a pure
// function of (query, lang, minConfidence) for a given store version, so
// outcomes are memoized and invalidated wholesale when the store mutates.
type Engine struct {
	store         *knowledge.Store
	cache         *lruCache
	minConfidence int
}

// NewEngine creates a match engine over store. minConfidence <= 0 and
// cacheSize <= 0 select the defaults.
func NewEngine(store *knowledge.Store, minConfidence, cacheSize int) *Engine {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Engine{
		store:         store,
		cache:         newLRUCache(cacheSize),
		minConfidence: minConfidence,
	}
}

// Match resolves query against the lang alias index. Exact token hits always
// win regardless of fuzzy scores; the fuzzy fallback accepts the single
// best-scoring alias at or above minConfidence (<= 0 selects the engine
// default). Equal fuzzy scores resolve to the first-inserted alias.
func (e *Engine) Match(query, lang string, minConfidence int) (Answer, bool) {
	if strings.TrimSpace(query) == "" {
		return Answer{}, false
	}
	if minConfidence <= 0 {
		minConfidence = e.minConfidence
	}

	version := e.store.Version()
	key := cacheKey(query, lang, minConfidence)
	if answer, ok, cached := e.cache.get(key, version); cached {
		return answer, ok
	}

	answer, ok := e.lookup(query, lang, minConfidence)
	e.cache.put(key, answer, ok, version)
	return answer, ok
}

// CacheSize returns the number of memoized outcomes, for stats reporting.
func (e *Engine) CacheSize() int {
	return e.cache.size()
}

func (e *Engine) lookup(query, lang string, minConfidence int) (Answer, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	index := e.store.Index(lang)

	// Exact token path: O(tokens), a hard override over any fuzzy score.
	for _, token := range tokenPattern.FindAllString(q, -1) {
		if idx, ok := index.Lookup(token); ok {
			if rec, found := index.Record(idx); found {
				return Answer{
					Text:     rec.Answer(lang),
					RecordID: rec.ID,
					Score:    100,
					Exact:    true,
				}, true
			}
		}
	}

	// Fuzzy fallback: token-set ratio of the whole query against every
	// alias, best score wins. Strictly-greater comparison over the stable
	// entry order makes the first-inserted alias win ties.
	bestScore := 0
	bestIdx := -1
	for _, entry := range index.Entries() {
		score := fuzzy.TokenSetRatio(q, entry.Alias)
		if score > bestScore {
			bestScore = score
			bestIdx = entry.Index
		}
	}

	if bestIdx < 0 || bestScore < minConfidence {
		return Answer{}, false
	}

	rec, found := index.Record(bestIdx)
	if !found {
		return Answer{}, false
	}
	return Answer{
		Text:     rec.Answer(lang),
		RecordID: rec.ID,
		Score:    bestScore,
	}, true
}

func cacheKey(query, lang string, minConfidence int) string {
	return fmt.Sprintf("%s\x00%s\x00%d", query, lang, minConfidence)
}
