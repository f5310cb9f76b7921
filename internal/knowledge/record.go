// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package knowledge owns the mutable list of problem records and the
// per-language alias index the resolution engine matches against.
package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Language codes supported by the knowledge base. English is the fallback
// source whenever a language-specific answer is absent.
const (
	LangEnglish = "en"
	LangNepali  = "np"
)

// Record is a single knowledge-base entry: trigger phrases per language and
// the remediation answer per language.
type Record struct {
	// ID is a short content-derived identifier, unique across the store.
	ID string `json:"id"`

	// Aliases are the English trigger phrases for this record.
	Aliases []string `json:"aliases"`

	// NpAliases are the Nepali trigger phrases, optional.
	NpAliases []string `json:"np_aliases,omitempty"`

	// AnswerEn is the English answer text.
	AnswerEn string `json:"en"`

	// AnswerNp is the Nepali answer text; empty means fall back to English.
	AnswerNp string `json:"np,omitempty"`

	// AutoFix marks records with an associated remediation action.
	AutoFix bool `json:"auto_fix,omitempty"`

	// Learned is true for records added at runtime via teach.
	Learned bool `json:"learned,omitempty"`
}

// Answer returns the answer for lang, falling back to English when the
// language-specific answer is absent.
func (r *Record) Answer(lang string) string {
	if lang == LangNepali && r.AnswerNp != "" {
		return r.AnswerNp
	}
	return r.AnswerEn
}

// AliasesFor returns the trigger phrases registered for lang.
func (r *Record) AliasesFor(lang string) []string {
	if lang == LangNepali {
		return r.NpAliases
	}
	return r.Aliases
}

// Valid reports whether the record carries at least one alias in at least
// one language. Records failing this are skipped during index build.
func (r *Record) Valid() bool {
	return len(r.Aliases) > 0 || len(r.NpAliases) > 0
}

// NewLearnedRecord builds a runtime-taught record for query. The ID is
// derived from the query content so re-teaching the same phrase is
// detectable as a duplicate.
func NewLearnedRecord(query, answerEn, answerNp string) Record {
	if answerNp == "" {
		answerNp = answerEn
	}
	return Record{
		ID:       RecordID(query),
		Aliases:  []string{query},
		AnswerEn: answerEn,
		AnswerNp: answerNp,
		Learned:  true,
	}
}

// RecordID derives the short content hash used as a record identifier.
func RecordID(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(strings.ToLower(content))))
	return hex.EncodeToString(sum[:])[:8]
}
