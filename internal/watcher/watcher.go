// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package watcher reloads the knowledge base when its file changes on disk,
// so external edits are picked up without a restart.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// debounceDelay coalesces the burst of events a single save produces.
const debounceDelay = 500 * time.Millisecond

// Watcher invokes a reload function after the watched file changes. The
// parent directory is watched, not the file itself: atomic rename-swap
// writes replace the inode and would orphan a direct watch.
type Watcher struct {
	path     string
	reload   func() error
	debounce time.Duration

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	running bool
}

// New creates a watcher for path. reload is called from the watcher
// goroutine after changes settle.
func New(path string, reload func() error) *Watcher {
	return &Watcher{
		path:     path,
		reload:   reload,
		debounce: debounceDelay,
	}
}

// Start begins watching. It fails if the parent directory cannot be watched.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = fsw
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true

	go w.loop()

	log.Infof("Watching knowledge base for changes: %s", w.path)
	return nil
}

// Stop terminates the watch loop and joins it.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stop)
	w.watcher.Close()
	w.running = false
	done := w.done
	w.mu.Unlock()

	<-done
}

func (w *Watcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	var timerC <-chan time.Time

	target := filepath.Clean(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Restart the debounce window on every event.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			log.Infof("Knowledge base changed on disk, reloading: %s", w.path)
			if err := w.reload(); err != nil {
				log.Errorf("Failed to reload knowledge base: %v", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("Knowledge base watcher error: %v", err)

		case <-w.stop:
			return
		}
	}
}
