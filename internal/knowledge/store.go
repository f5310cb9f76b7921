// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package knowledge

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/techsewa/techsewaCore/internal/util"
)

var (
	// ErrNotFound indicates the knowledge-base source file is missing.
	ErrNotFound = errors.New("knowledge base not found")

	// ErrFormat indicates the persisted payload is not a list of records.
	ErrFormat = errors.New("knowledge base format invalid")

	// ErrPersistence indicates a write failure while persisting a record.
	// The in-memory append is retained; the caller decides whether to retry.
	ErrPersistence = errors.New("knowledge base persistence failed")

	// ErrDuplicateID indicates an append would violate ID uniqueness.
	ErrDuplicateID = errors.New("record id already exists")
)

// AliasEntry binds one alias phrase to a record position, in first-insertion
// order. The ordered scan gives fuzzy matching its deterministic tie-break:
// on equal scores the first-inserted alias wins.
type AliasEntry struct {
	Alias string
	Index int
}

// LangIndex is the alias index for one language. It is immutable once built;
// mutations build a fresh index and swap it in, so readers see either the
// pre- or post-mutation index, never a partially rebuilt one. The index
// carries the record list it was built from: resolving a position through
// the same snapshot can never observe a concurrent reload.
type LangIndex struct {
	exact   map[string]int
	ordered []AliasEntry
	records []Record
}

// Lookup returns the record position for an exact lowercase alias token.
func (li *LangIndex) Lookup(alias string) (int, bool) {
	idx, ok := li.exact[alias]
	return idx, ok
}

// Record returns the record at position idx within this index snapshot.
func (li *LangIndex) Record(idx int) (Record, bool) {
	if idx < 0 || idx >= len(li.records) {
		return Record{}, false
	}
	return li.records[idx], true
}

// Entries returns the alias entries in stable first-insertion order.
func (li *LangIndex) Entries() []AliasEntry {
	return li.ordered
}

// Len returns the number of distinct aliases in the index.
func (li *LangIndex) Len() int {
	return len(li.exact)
}

// Store owns the record list, the per-language alias indexes, and the JSON
// persistence of both. All mutations go through a single-writer mutex.
type Store struct {
	path string

	mu      sync.RWMutex
	records []Record
	indexes map[string]*LangIndex
	version uint64
}

// Load reads the knowledge base from path. It returns ErrNotFound when the
// file is missing and ErrFormat when the payload is not a JSON array of
// records. Individual records without any alias are skipped with a warning;
// they do not abort the load.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the knowledge base file and atomically replaces the record
// list and alias indexes. Used at load time and by the file watcher when the
// knowledge base is edited externally.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return fmt.Errorf("failed to read knowledge base %s: %w", s.path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}

	kept := records[:0]
	for _, r := range records {
		if !r.Valid() {
			log.Warnf("Skipping record %q: no alias in any language", r.ID)
			continue
		}
		kept = append(kept, r)
	}

	s.mu.Lock()
	s.records = kept
	s.rebuildIndexesLocked()
	s.version++
	s.mu.Unlock()

	log.Infof("Knowledge base loaded: %d problems (%s)", len(kept), s.path)
	return nil
}

// Append inserts a record, rebuilds the alias indexes, and persists the
// store synchronously. A write failure returns an error wrapping
// ErrPersistence, but the in-memory append is retained: losing an already
// accepted teach is worse than a transient duplicate on disk.
func (s *Store) Append(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == record.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, record.ID)
		}
	}

	s.records = append(s.records, record)
	s.rebuildIndexesLocked()
	s.version++

	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Records returns a copy of the current record list.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Index returns the alias index snapshot for lang. The returned index is
// immutable; it stays coherent even while a concurrent Append rebuilds.
func (s *Store) Index(lang string) *LangIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if li, ok := s.indexes[lang]; ok {
		return li
	}
	return &LangIndex{exact: map[string]int{}}
}

// Version returns a counter that increments on every mutation. Match caches
// key their validity on it so invalidation happens-after the index rebuild.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// rebuildIndexesLocked rebuilds both language indexes by a full scan of
// records. The index is always a pure function of the current record list;
// last writer wins on alias collision, duplicates are collapsed.
func (s *Store) rebuildIndexesLocked() {
	indexes := make(map[string]*LangIndex, 2)
	for _, lang := range []string{LangEnglish, LangNepali} {
		exact := make(map[string]int)
		for idx, r := range s.records {
			for _, alias := range r.AliasesFor(lang) {
				key := normalizeAlias(alias)
				if key == "" {
					continue
				}
				exact[key] = idx
			}
		}

		// Ordered entries keep first-insertion order but bind to the
		// exact map's winner, so exact and fuzzy agree on collisions.
		seen := make(map[string]struct{}, len(exact))
		ordered := make([]AliasEntry, 0, len(exact))
		for _, r := range s.records {
			for _, alias := range r.AliasesFor(lang) {
				key := normalizeAlias(alias)
				if key == "" {
					continue
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				ordered = append(ordered, AliasEntry{Alias: key, Index: exact[key]})
			}
		}

		indexes[lang] = &LangIndex{exact: exact, ordered: ordered, records: s.records}
	}
	s.indexes = indexes
}

// saveLocked persists the record list as indented JSON via an atomic
// rename-swap write. Round-trip is lossless: load→save→load yields an equal
// record set.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	return util.AtomicWrite(s.path, data, 0o644)
}

// Save persists the current record list. Exposed for external collaborators
// that mutate the store (e.g. a management tool deleting records).
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func normalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}
