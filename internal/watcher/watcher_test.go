// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problems.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	var reloads atomic.Int64
	w := New(path, func() error {
		reloads.Add(1)
		return nil
	})
	w.debounce = 50 * time.Millisecond

	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"x"}]`), 0644))

	assert.True(t, waitFor(t, 2*time.Second, func() bool { return reloads.Load() >= 1 }),
		"reload never fired after write")
}

func TestWatcher_ReloadsOnRenameSwap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problems.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	var reloads atomic.Int64
	w := New(path, func() error {
		reloads.Add(1)
		return nil
	})
	w.debounce = 50 * time.Millisecond

	require.NoError(t, w.Start())
	defer w.Stop()

	tmp := filepath.Join(dir, "problems.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`[{"id":"y"}]`), 0644))
	require.NoError(t, os.Rename(tmp, path))

	assert.True(t, waitFor(t, 2*time.Second, func() bool { return reloads.Load() >= 1 }),
		"reload never fired after rename swap")
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problems.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	var reloads atomic.Int64
	w := New(path, func() error {
		reloads.Add(1)
		return nil
	})
	w.debounce = 100 * time.Millisecond

	require.NoError(t, w.Start())
	defer w.Stop()

	// Burst of writes inside one debounce window.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	waitFor(t, 2*time.Second, func() bool { return reloads.Load() >= 1 })
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int64(1), reloads.Load(), "burst should coalesce into one reload")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problems.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	var reloads atomic.Int64
	w := New(path, func() error {
		reloads.Add(1)
		return nil
	})
	w.debounce = 50 * time.Millisecond

	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0644))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int64(0), reloads.Load(), "unrelated file should not trigger reload")
}

func TestWatcher_StopJoins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problems.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	w := New(path, func() error { return nil })
	require.NoError(t, w.Start())

	assert.Error(t, w.Start(), "double Start should fail")

	w.Stop()
	w.Stop() // idempotent
}
