// Package opstore persists the operator-facing agent state: availability
// mode, thread skip list, GIF settings, counters, and the deferred message
// queue. The file is shared with the external admin console, which does its
// own read-modify-write; writes here go through an atomic rename so the
// console never observes a torn file, but last-writer-wins between the two
// processes remains.
package opstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MessageTruncateLen caps the stored preview of a queued message, in
// characters.
const MessageTruncateLen = 200

// QueuedMessage is one deferred reply, shared with the admin console.
type QueuedMessage struct {
	ThreadID   string    `json:"thread_id"`
	Sender     string    `json:"sender"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
	// ReplyAt nil means "awaiting an explicit wake signal" (sleep mode).
	ReplyAt *time.Time `json:"reply_at"`
}

// Ready reports whether the entry is eligible for processing at now.
func (q QueuedMessage) Ready(now time.Time) bool {
	return q.ReplyAt != nil && !q.ReplyAt.After(now)
}

// State is the persisted operator record.
type State struct {
	CurrentMode    string          `json:"current_mode"`
	SkippedThreads []string        `json:"skipped_threads"`
	MessageQueue   []QueuedMessage `json:"message_queue"`

	ActivePersona string  `json:"active_persona"`
	GifEnabled    bool    `json:"gif_enabled"`
	GifChance     float64 `json:"gif_chance"`

	StartedAt    *time.Time `json:"started_at,omitempty"`
	MessagesSent int        `json:"messages_sent"`
}

// DefaultState mirrors the console's defaults for a first run.
func DefaultState() State {
	return State{
		CurrentMode:   "available",
		ActivePersona: "custom",
		GifEnabled:    true,
		GifChance:     0.15,
	}
}

// Store reads and replaces the state file. The mutex serializes writers
// inside this process (dispatch loop vs. CLI); the external console is a
// separate process and is only protected by the atomic rename.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the current state, returning defaults when the file is absent.
// Unknown fields written by the console are dropped on the next save; the
// console tolerates that.
func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultState(), nil
		}
		return State{}, err
	}

	st := DefaultState()
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("opstore: parse %s: %w", s.path, err)
	}
	return st, nil
}

// Save replaces the whole state file via write-to-temp + rename.
func (s *Store) Save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".agent_state-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Update runs one read-modify-write transaction. Every mutation below goes
// through here so concurrent in-process callers cannot lose updates.
func (s *Store) Update(fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(&st); err != nil {
		return err
	}
	return s.Save(st)
}
