// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brain

import "sync"

// historyRing keeps the most recent resolutions in arrival order, oldest
// first. When full, the oldest entry is dropped.
type historyRing struct {
	mu      sync.Mutex
	entries []Resolution
	maxSize int
}

func newHistoryRing(maxSize int) *historyRing {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &historyRing{maxSize: maxSize}
}

func (h *historyRing) add(r Resolution) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, r)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// snapshot returns a copy so callers can't race against future adds.
func (h *historyRing) snapshot() []Resolution {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Resolution, len(h.entries))
	copy(out, h.entries)
	return out
}
