// Package dedupwindow implements the bounded FIFO of recent Simhash
// fingerprints used for cross-message near-duplicate rejection.
package dedupwindow

import (
	"sync"

	"github.com/tgindex/core/engine/simhash"
)

// DefaultCapacity is the default window size.
const DefaultCapacity = 1000

// Window is a bounded, thread-safe FIFO of recent fingerprints.
type Window struct {
	mu        sync.Mutex
	capacity  int
	threshold int
	items     []string
}

// New creates a Window with the given capacity and duplicate threshold. A
// non-positive capacity defaults to DefaultCapacity; a non-positive
// threshold defaults to simhash.DefaultThreshold.
func New(capacity, threshold int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if threshold <= 0 {
		threshold = simhash.DefaultThreshold
	}
	return &Window{capacity: capacity, threshold: threshold}
}

// Contains reports whether h is within threshold Hamming distance of any
// fingerprint currently in the window: contains(h) := ∃ s. hamming(h,s) ≤
// threshold. Linear scan; the window is intentionally small.
func (w *Window) Contains(h string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, stored := range w.items {
		if simhash.IsDuplicate(h, stored, w.threshold) {
			return true
		}
	}
	return false
}

// Add appends h to the window, evicting the oldest entry when full.
func (w *Window) Add(h string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.items) >= w.capacity {
		w.items = w.items[1:]
	}
	w.items = append(w.items, h)
}

// Len returns the current number of stored fingerprints.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Snapshot returns a copy of the currently stored fingerprints, oldest
// first. Intended for tests asserting window contents after a rollback.
func (w *Window) Snapshot() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.items))
	copy(out, w.items)
	return out
}
