// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache implements the shared on-disk store for expensive fetch and
// extraction results: adapter responses keyed by (source, normalized query)
// and extracted full text keyed by PDF URL. Entries expire after a TTL and
// the store evicts oldest-first when the total size cap is exceeded.
//
// A store that cannot be opened or that hits a storage error degrades to a
// transparent pass-through: every Get misses and every Put is a no-op, so
// callers fall back to live fetches instead of failing.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/literature-engine/pkg/types"
)

const dbFile = "cache.db"

// ErrMiss is returned by Get when the key is absent, expired, or the store
// is degraded.
var ErrMiss = errors.New("cache miss")

// Store is a content-addressed key-value store backed by a SQLite database
// in the configured cache directory. Per-key reads and writes are atomic;
// concurrent writers to the same key resolve last-writer-wins.
type Store struct {
	db       *sql.DB
	dir      string
	ttl      time.Duration
	maxBytes int64

	// mu serializes writes so cap enforcement sees a settled total.
	mu sync.Mutex

	degraded atomic.Bool
	openErr  error

	// now is the clock; tests substitute it to age entries.
	now func() time.Time
}

// Key derives the stable cache key for a request signature. Components are
// joined with a separator that cannot appear in normalized queries, then
// hashed, so distinct (source, query) pairs never collide.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(h[:])
}

// Open creates or opens the store under cfg.Dir. It always returns a usable
// Store: when the directory or database cannot be prepared the store starts
// degraded and Err reports why.
func Open(cfg types.CacheConfig) *Store {
	s := &Store{
		dir:      cfg.Dir,
		ttl:      cfg.TTL(),
		maxBytes: cfg.MaxBytes(),
		now:      time.Now,
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		s.fail(fmt.Errorf("creating cache directory: %w", err))
		return s
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		s.fail(fmt.Errorf("opening cache database: %w", err))
		return s
	}
	s.db = db

	if err := s.createSchema(); err != nil {
		s.fail(fmt.Errorf("creating cache schema: %w", err))
	}
	return s
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			size_bytes INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// fail records the first storage error and switches to pass-through mode.
func (s *Store) fail(err error) {
	if s.openErr == nil {
		s.openErr = err
	}
	s.degraded.Store(true)
}

// Err returns the error that degraded the store, or nil.
func (s *Store) Err() error {
	if s.degraded.Load() {
		return s.openErr
	}
	return nil
}

// Degraded reports whether the store is operating in pass-through mode.
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the payload stored under key. Entries older than the TTL are
// treated as absent and removed. A degraded store always misses.
func (s *Store) Get(key string) ([]byte, error) {
	if s.degraded.Load() {
		return nil, ErrMiss
	}

	var value []byte
	var createdAt int64
	err := s.db.QueryRow(
		`SELECT value, created_at FROM entries WHERE key = ?`, key,
	).Scan(&value, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		s.fail(fmt.Errorf("reading cache entry: %w", err))
		return nil, ErrMiss
	}

	if s.now().Sub(time.Unix(0, createdAt)) > s.ttl {
		// Expired: remove eagerly, report a miss.
		s.db.Exec(`DELETE FROM entries WHERE key = ? AND created_at = ?`, key, createdAt)
		return nil, ErrMiss
	}
	return value, nil
}

// Put stores value under key, replacing any previous entry, then enforces
// the size cap. Storage failures degrade the store instead of propagating:
// the caller has the value in hand and loses nothing but reuse.
func (s *Store) Put(key string, value []byte) {
	if s.degraded.Load() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO entries (key, value, created_at, size_bytes) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			value=excluded.value, created_at=excluded.created_at, size_bytes=excluded.size_bytes`,
		key, value, s.now().UnixNano(), len(value),
	)
	if err != nil {
		s.fail(fmt.Errorf("writing cache entry: %w", err))
		return
	}

	if err := s.enforceSizeCap(key); err != nil {
		s.fail(err)
	}
}

// EvictExpired removes all entries older than the TTL and returns how many
// were removed.
func (s *Store) EvictExpired() (int, error) {
	if s.degraded.Load() {
		return 0, s.openErr
	}
	cutoff := s.now().Add(-s.ttl).UnixNano()
	res, err := s.db.Exec(`DELETE FROM entries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evicting expired entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// EnforceSizeCap evicts oldest entries until the total stored size is within
// the configured cap.
func (s *Store) EnforceSizeCap() error {
	if s.degraded.Load() {
		return s.openErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enforceSizeCap("")
}

// enforceSizeCap deletes entries in ascending created_at order until the
// total is under maxBytes, skipping the entry named by keep (the write in
// flight). Caller holds mu.
func (s *Store) enforceSizeCap(keep string) error {
	var total int64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(size_bytes), 0) FROM entries`).Scan(&total); err != nil {
		return fmt.Errorf("sizing cache: %w", err)
	}
	if total <= s.maxBytes {
		return nil
	}

	rows, err := s.db.Query(
		`SELECT key, size_bytes FROM entries WHERE key != ? ORDER BY created_at ASC, key ASC`, keep,
	)
	if err != nil {
		return fmt.Errorf("listing cache entries: %w", err)
	}
	defer rows.Close()

	var victims []string
	for rows.Next() && total > s.maxBytes {
		var key string
		var size int64
		if err := rows.Scan(&key, &size); err != nil {
			return fmt.Errorf("scanning cache entry: %w", err)
		}
		victims = append(victims, key)
		total -= size
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing cache entries: %w", err)
	}
	rows.Close()

	for _, key := range victims {
		if _, err := s.db.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
			return fmt.Errorf("evicting cache entry: %w", err)
		}
	}
	return nil
}

// Stats summarizes the store's contents.
type Stats struct {
	Dir        string
	Entries    int
	TotalBytes int64
	Expired    int
	TTLHours   int
}

// Stats returns entry counts and sizes for the cache CLI.
func (s *Store) Stats() (Stats, error) {
	st := Stats{Dir: s.dir, TTLHours: int(s.ttl.Hours())}
	if s.degraded.Load() {
		return st, s.openErr
	}

	err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM entries`).
		Scan(&st.Entries, &st.TotalBytes)
	if err != nil {
		return st, fmt.Errorf("counting cache entries: %w", err)
	}

	cutoff := s.now().Add(-s.ttl).UnixNano()
	err = s.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE created_at < ?`, cutoff).
		Scan(&st.Expired)
	if err != nil {
		return st, fmt.Errorf("counting expired entries: %w", err)
	}
	return st, nil
}
