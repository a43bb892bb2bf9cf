// Package registry implements the channel registry: CRUD over a
// JSON-persisted channel list, the source of truth the crawler orchestrator
// consults to resolve enabled channels for both historical and realtime
// modes. Grounded in original_source's channel_registry.py and following the
// same atomic-write discipline as engine/state.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Channel is one registry entry. AddedAt is ISO-8601.
type Channel struct {
	ChannelID int64  `json:"channel_id"`
	Username  string `json:"username"`
	Title     string `json:"title"`
	Enabled   bool   `json:"enabled"`
	AddedAt   string `json:"added_at"`
}

// Registry is a single-process, atomically-persisted channel list.
type Registry struct {
	mu       sync.Mutex
	path     string
	channels map[int64]Channel
}

// Open loads path if present; a missing file starts the registry empty. The
// containing directory is created on demand.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path, channels: make(map[int64]Channel)}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("registry: create dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("registry: read: %w", err)
	}

	var list []Channel
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("registry: parse: %w", err)
	}
	for _, ch := range list {
		r.channels[ch.ChannelID] = ch
	}
	return r, nil
}

// List returns all channels, order unspecified.
func (r *Registry) List() []Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	return out
}

// Get returns the channel for id, or (zero, false) if absent.
func (r *Registry) Get(id int64) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// Add inserts or replaces ch and persists.
func (r *Registry) Add(ch Channel) error {
	r.mu.Lock()
	r.channels[ch.ChannelID] = ch
	r.mu.Unlock()
	return r.persist()
}

// SetEnabled toggles a channel's enabled flag and persists. Returns false if
// the channel is not registered.
func (r *Registry) SetEnabled(id int64, enabled bool) (bool, error) {
	r.mu.Lock()
	ch, ok := r.channels[id]
	if !ok {
		r.mu.Unlock()
		return false, nil
	}
	ch.Enabled = enabled
	r.channels[id] = ch
	r.mu.Unlock()
	return true, r.persist()
}

// Remove deletes a channel and persists. Returns false if it was absent.
func (r *Registry) Remove(id int64) (bool, error) {
	r.mu.Lock()
	if _, ok := r.channels[id]; !ok {
		r.mu.Unlock()
		return false, nil
	}
	delete(r.channels, id)
	r.mu.Unlock()
	return true, r.persist()
}

// persist serializes the channel list to a sibling temp file and atomically
// renames it over path, the same discipline as engine/state's store.
func (r *Registry) persist() error {
	r.mu.Lock()
	list := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		list = append(list, ch)
	}
	r.mu.Unlock()

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal: %w", err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", r.path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("registry: write temp: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("registry: rename: %w", err)
	}
	return nil
}
