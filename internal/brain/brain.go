// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package brain orchestrates query resolution through a three-tier cascade:
// local knowledge-base matching, semantic similarity, then internet search.
// Each tier is tried in order and the first hit wins.
package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/techsewa/techsewaCore/internal/knowledge"
	"github.com/techsewa/techsewaCore/internal/match"
	"github.com/techsewa/techsewaCore/internal/querylog"
	"github.com/techsewa/techsewaCore/internal/semantic"
	"github.com/techsewa/techsewaCore/internal/web"
)

// Resolution sources, in cascade order.
const (
	SourceLocal    = "local"
	SourceSemantic = "semantic"
	SourceInternet = "internet"
	SourceNone     = "none"
)

// DefaultHistorySize is how many resolutions the brain remembers.
const DefaultHistorySize = 20

// Unresolvable-query apologies, per language.
const (
	noAnswerEn = "Sorry, I don't know how to fix that yet. You can teach me the answer."
	noAnswerNp = "माफ गर्नुहोस्, मलाई यो समस्या समाधान गर्न आउँदैन। तपाईं मलाई सिकाउन सक्नुहुन्छ।"
)

// Resolution is the outcome of a single Solve call.
type Resolution struct {
	Query      string    `json:"query"`
	Lang       string    `json:"lang"`
	Answer     string    `json:"answer"`
	Source     string    `json:"source"`
	Confidence int       `json:"confidence"`
	RecordID   string    `json:"record_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Answered reports whether any tier produced an answer.
func (r Resolution) Answered() bool {
	return r.Source != SourceNone
}

// Stats is a point-in-time view of the brain. Reading it never mutates
// state.
type Stats struct {
	TotalProblems   int  `json:"total_problems"`
	CacheSize       int  `json:"cache_size"`
	SemanticEnabled bool `json:"semantic_enabled"`
	InternetEnabled bool `json:"internet_enabled"`
}

// Brain wires the resolution tiers together.
type Brain struct {
	store    *knowledge.Store
	matcher  *match.Engine
	semantic *semantic.Matcher
	web      *web.Fallback // nil disables the internet tier
	qlog     *querylog.Collector
	history  *historyRing
}

// Options tunes optional Brain behavior.
type Options struct {
	HistorySize int
}

// New assembles a brain. semanticMatcher must be non-nil (use a disabled
// matcher to skip the tier); webFallback and qlog may be nil.
func New(store *knowledge.Store, matcher *match.Engine, semanticMatcher *semantic.Matcher, webFallback *web.Fallback, qlog *querylog.Collector, opts Options) *Brain {
	return &Brain{
		store:    store,
		matcher:  matcher,
		semantic: semanticMatcher,
		web:      webFallback,
		qlog:     qlog,
		history:  newHistoryRing(opts.HistorySize),
	}
}

// Solve resolves a query through the cascade. minConfidence <= 0 selects the
// matcher default. It always returns a resolution and always records it in
// the history; Source "none" (an apology in the requested language) is only
// reachable for blank queries or with the internet tier disabled.
func (b *Brain) Solve(ctx context.Context, query, lang string, minConfidence int) Resolution {
	start := time.Now()
	lang = normalizeLang(lang)

	resolution := Resolution{
		Query:     query,
		Lang:      lang,
		Source:    SourceNone,
		Timestamp: start,
	}

	if strings.TrimSpace(query) != "" {
		if answer, ok := b.matcher.Match(query, lang, minConfidence); ok {
			resolution.Answer = answer.Text
			resolution.Source = SourceLocal
			resolution.Confidence = answer.Score
			resolution.RecordID = answer.RecordID
		} else if answer, ok := b.semantic.Search(query, lang, 0); ok {
			resolution.Answer = answer
			resolution.Source = SourceSemantic
		} else if b.web != nil {
			// The internet tier always resolves. Its no-results sentinel
			// is a normal answer, not a miss: "none" is reachable only
			// when the tier is disabled.
			resolution.Answer = b.web.Search(ctx, query, lang)
			resolution.Source = SourceInternet
		}
	}

	if resolution.Source == SourceNone {
		resolution.Answer = noAnswer(lang)
	}

	latency := time.Since(start)
	log.Infof("Query resolved | source=%s confidence=%d latency=%s", resolution.Source, resolution.Confidence, latency)

	b.history.add(resolution)
	if b.qlog != nil {
		b.qlog.Record(ctx, &querylog.Entry{
			Timestamp:  start,
			Query:      query,
			Lang:       lang,
			Source:     resolution.Source,
			Confidence: resolution.Confidence,
			LatencyMs:  latency.Milliseconds(),
			Answered:   resolution.Answered(),
		})
	}

	return resolution
}

// Teach adds a learned record to the knowledge base and makes it findable by
// both the local and semantic tiers. The match cache invalidates itself on
// the store version bump.
func (b *Brain) Teach(query, answerEn, answerNp string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query cannot be empty", knowledge.ErrFormat)
	}
	if strings.TrimSpace(answerEn) == "" {
		return fmt.Errorf("%w: answer cannot be empty", knowledge.ErrFormat)
	}

	record := knowledge.NewLearnedRecord(query, answerEn, answerNp)
	appendErr := b.store.Append(record)
	if appendErr != nil && !errors.Is(appendErr, knowledge.ErrPersistence) {
		return appendErr
	}

	// A persistence failure keeps the record in memory, so the semantic
	// tier still has to learn it.
	if err := b.semantic.Refresh(b.store.Records()); err != nil {
		log.Warnf("Semantic refresh after teach failed: %v", err)
	}

	if appendErr != nil {
		return appendErr
	}

	log.Infof("Learned new record | id=%s query=%q", record.ID, query)
	return nil
}

// Stats returns a snapshot of the brain. It is a pure read: calling it any
// number of times yields the same result absent other activity.
func (b *Brain) Stats() Stats {
	return Stats{
		TotalProblems:   b.store.Len(),
		CacheSize:       b.matcher.CacheSize(),
		SemanticEnabled: b.semantic.Enabled(),
		InternetEnabled: b.web != nil,
	}
}

// History returns the most recent resolutions, oldest first.
func (b *Brain) History() []Resolution {
	return b.history.snapshot()
}

func normalizeLang(lang string) string {
	if lang == knowledge.LangNepali {
		return knowledge.LangNepali
	}
	return knowledge.LangEnglish
}

func noAnswer(lang string) string {
	if lang == knowledge.LangNepali {
		return noAnswerNp
	}
	return noAnswerEn
}
