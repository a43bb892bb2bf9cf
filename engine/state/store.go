// Package state implements the per-channel checkpoint store: the
// last-indexed message id per channel, persisted atomically with
// write-coalescing and corruption recovery.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// entry is the persisted shape for one channel.
type entry struct {
	LastMsgID int64 `json:"last_msg_id"`
}

// Store is a single-process, atomically-persisted checkpoint store.
// channel ids are stringified in the serialized map.
type Store struct {
	mu            sync.Mutex
	path          string
	flushInterval time.Duration
	checkpoints   map[string]int64
	dirty         bool
	lastFlush     time.Time
	log           *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithFlushInterval sets the write-coalescing window. A zero or negative
// value persists on every Set.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Store) { s.flushInterval = d }
}

// WithLogger overrides the store's logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open loads path if present, recovering from corruption by renaming the
// file aside with a .corrupt suffix and starting empty. The containing
// directory is created on demand.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:        path,
		checkpoints: make(map[string]int64),
		lastFlush:   time.Now(),
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("state: create dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("state: read: %w", err)
	}

	var raw map[string]entry
	if err := json.Unmarshal(data, &raw); err != nil {
		s.quarantine()
		return s, nil
	}
	for chanID, e := range raw {
		s.checkpoints[chanID] = e.LastMsgID
	}
	return s, nil
}

// quarantine renames a corrupt state file aside. If the rename fails (e.g.
// permissions), the store proceeds in-memory rather than crashing.
func (s *Store) quarantine() {
	dst := s.path + ".corrupt"
	if err := os.Rename(s.path, dst); err != nil {
		s.log.Error("state: failed to quarantine corrupt file", "path", s.path, "error", err)
	} else {
		s.log.Warn("state: quarantined corrupt state file", "path", s.path, "dest", dst)
	}
}

// Get returns the last known message id for channelID, or 0 if absent.
func (s *Store) Get(channelID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoints[key(channelID)]
}

// Set advances the checkpoint for channelID to msgID iff msgID is greater
// than the current value (monotonic); smaller or equal values are a
// no-op. Persists immediately unless flushInterval coalescing defers it.
func (s *Store) Set(channelID int64, msgID int64) {
	s.mu.Lock()
	k := key(channelID)
	if msgID <= s.checkpoints[k] {
		s.mu.Unlock()
		return
	}
	s.checkpoints[k] = msgID
	s.dirty = true
	shouldPersist := s.flushInterval <= 0 || time.Since(s.lastFlush) >= s.flushInterval
	s.mu.Unlock()

	if shouldPersist {
		if err := s.persist(); err != nil {
			s.log.Error("state: persist failed", "error", err)
		}
	}
}

// Flush forces a persist if the store is dirty.
func (s *Store) Flush() error {
	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()
	if !dirty {
		return nil
	}
	return s.persist()
}

// persist serializes the current checkpoint map to a sibling temp file and
// atomically renames it over path.
func (s *Store) persist() error {
	s.mu.Lock()
	raw := make(map[string]entry, len(s.checkpoints))
	for k, v := range s.checkpoints {
		raw[k] = entry{LastMsgID: v}
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", s.path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("state: write temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("state: rename: %w", err)
	}

	s.mu.Lock()
	s.dirty = false
	s.lastFlush = time.Now()
	s.mu.Unlock()
	return nil
}

func key(channelID int64) string {
	return fmt.Sprintf("%d", channelID)
}
