// Package session persists the Instagram authentication state across runs
// and deployments. Resolution falls back across three tiers: the shared
// remote store, environment-provided static values, and a local file written
// after a fresh login.
package session

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/wezaxy/dmagent/internal/redis"
)

// Session is the live authentication state. Exactly one is valid at a time.
type Session struct {
	AuthToken string `json:"auth_token"`
	AccountID string `json:"account_id"`
}

func (s Session) valid() bool {
	return s.AuthToken != "" && s.AccountID != ""
}

// Source identifies which tier produced a session.
type Source int

const (
	SourceNone Source = iota
	SourceRemote
	SourceEnv
	SourceFile
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceEnv:
		return "env"
	case SourceFile:
		return "file"
	default:
		return "none"
	}
}

// Remote is the shared key-value tier. *redis.Store satisfies it; nil-safe.
type Remote interface {
	Available() bool
	GetJSON(ctx context.Context, key string, out any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) bool
	Del(ctx context.Context, key string) bool
}

// Store resolves and persists sessions across the three tiers.
type Store struct {
	remote Remote
	env    Session
	path   string
}

// NewStore creates a session store. remote may be nil, env fields may be
// empty; path is the local session file.
func NewStore(remote Remote, env Session, path string) *Store {
	return &Store{remote: remote, env: env, path: path}
}

// Get resolves the current session: remote store first, then environment,
// then the local file. ok is false when no tier holds a usable session.
func (s *Store) Get(ctx context.Context) (sess Session, src Source, ok bool) {
	if s.remote != nil && s.remote.Available() {
		var remote Session
		if s.remote.GetJSON(ctx, redis.KeySession, &remote) && remote.valid() {
			return remote, SourceRemote, true
		}
	}
	if s.env.valid() {
		return s.env, SourceEnv, true
	}
	if file, err := s.readFile(); err == nil && file.valid() {
		return file, SourceFile, true
	}
	return Session{}, SourceNone, false
}

// Set persists a freshly obtained session. Fresh logins are file-backed;
// the remote tier additionally gets a best-effort copy so other deployments
// observe the new token without a restart.
func (s *Store) Set(ctx context.Context, sess Session) error {
	if err := s.writeFile(sess); err != nil {
		return err
	}
	if s.remote != nil && s.remote.Available() {
		if !s.remote.SetJSON(ctx, redis.KeySession, sess, 0) {
			log.Println("[Session] remote replication failed, continuing with local copy")
		}
	}
	return nil
}

// Invalidate clears the file and remote tiers so the next cycle performs a
// fresh login. Environment-provided credentials cannot be repaired here, so
// the env tier is left untouched.
func (s *Store) Invalidate(ctx context.Context) {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		log.Printf("[Session] clearing local session failed: %v", err)
	}
	if s.remote != nil && s.remote.Available() {
		s.remote.Del(ctx, redis.KeySession)
	}
}

func (s *Store) readFile() (Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Store) writeFile(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}
