// Package redis wraps the shared remote key-value store used to sync the
// Instagram session across deployments without a restart.
//
// Graceful fallback: if Redis is unconfigured or unreachable, every operation
// returns a zero value instead of blocking the dispatch loop.
package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeySession is the key holding the shared session record.
const KeySession = "dmagent:session"

// Config holds Redis connection settings.
type Config struct {
	URL      string // redis://host:port
	Password string
	DB       int
}

// Store is a handle to the shared remote store. A nil *Store is valid and
// behaves as permanently unavailable.
type Store struct {
	client *redis.Client
}

// Dial connects to Redis. Returns nil when the URL is not configured or the
// connection cannot be established; callers treat nil as "no remote tier".
func Dial(cfg Config) *Store {
	if cfg.URL == "" {
		log.Println("[Redis] URL not configured, remote session sync disabled")
		return nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Printf("[Redis] invalid URL: %v", err)
		return nil
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3

	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("[Redis] connection failed: %v", err)
		c.Close()
		return nil
	}

	log.Println("[Redis] connected")
	return &Store{client: c}
}

// Available reports whether the remote tier can be used.
func (s *Store) Available() bool {
	return s != nil && s.client != nil
}

// Close closes the connection.
func (s *Store) Close() {
	if s.Available() {
		s.client.Close()
	}
}

// GetJSON reads a JSON value into out. Returns false if missing or unavailable.
func (s *Store) GetJSON(ctx context.Context, key string, out any) bool {
	if !s.Available() {
		return false
	}
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Redis] get failed (%s): %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Printf("[Redis] get parse failed (%s): %v", key, err)
		return false
	}
	return true
}

// SetJSON writes a JSON-serialized value. ttl of 0 means no expiry.
// Returns false on failure.
func (s *Store) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !s.Available() {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("[Redis] set marshal failed (%s): %v", key, err)
		return false
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[Redis] set failed (%s): %v", key, err)
		return false
	}
	return true
}

// Del removes a key. Returns false on failure.
func (s *Store) Del(ctx context.Context, key string) bool {
	if !s.Available() {
		return false
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		log.Printf("[Redis] del failed (%s): %v", key, err)
		return false
	}
	return true
}
