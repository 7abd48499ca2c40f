// Package persistence is the engine's optional observability store
// (SPEC_FULL.md §6): capital_history, role_history, and mode_changes
// ring buffers that may be serialized to SQLite for operator
// inspection. None of it is required for correctness — the engine
// runs fully in memory without it. Grounded on the pack's
// aristath-sentinel database.DB (modernc.org/sqlite, pure-Go driver,
// WAL pragma) for the on-disk side, and on the teacher's in-memory
// ring buffer idiom (internal/binance candle cache) for the capacity-
// bounded history slices.
package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"goldcore/internal/domain"
)

// CapitalSample is one CapitalContext observation, stamped at tick time.
type CapitalSample struct {
	At            time.Time
	CurrentEquity float64
	PeakEquity    float64
	DrawdownPct   float64
	Mode          domain.Mode
}

// RoleEvent is one role assignment or evolution.
type RoleEvent struct {
	At         time.Time
	PositionID string
	From       domain.Role
	To         domain.Role
	Reason     string
}

// ModeChange is one CapitalContext.Mode transition.
type ModeChange struct {
	At   time.Time
	From domain.Mode
	To   domain.Mode
}

// Store holds three capacity-bounded ring buffers in memory and,
// when opened against a path, mirrors every append to SQLite.
type Store struct {
	mu       sync.Mutex
	capacity int

	capital []CapitalSample
	roles   []RoleEvent
	modes   []ModeChange

	db *sql.DB
}

// NewMemory builds a Store with no on-disk mirror — used when
// persistence.enabled is false.
func NewMemory(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Store{capacity: capacity}
}

// Open builds a Store backed by a SQLite file at path, creating the
// schema if absent. WAL mode matches the pack's sentinel db.go.
func Open(path string, capacity int) (*Store, error) {
	s := NewMemory(capacity)

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("persistence: create directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("persistence: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("persistence: ping sqlite: %w", err)
	}
	if err := migrate(conn); err != nil {
		return nil, fmt.Errorf("persistence: migrate: %w", err)
	}
	s.db = conn
	return s, nil
}

func migrate(conn *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS capital_history (
			at TEXT NOT NULL, current_equity REAL, peak_equity REAL, drawdown_pct REAL, mode TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS role_history (
			at TEXT NOT NULL, position_id TEXT, role_from TEXT, role_to TEXT, reason TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS mode_changes (
			at TEXT NOT NULL, mode_from TEXT, mode_to TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying SQLite connection, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordCapital appends one CapitalSample, evicting the oldest entry
// once capacity is reached, and mirrors to SQLite if open.
func (s *Store) RecordCapital(c domain.CapitalContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eq, _ := c.CurrentEquity.Float64()
	peak, _ := c.PeakEquity.Float64()
	dd, _ := c.DrawdownPct.Float64()
	sample := CapitalSample{At: c.UpdatedAt, CurrentEquity: eq, PeakEquity: peak, DrawdownPct: dd, Mode: c.Mode}

	s.capital = appendBounded(s.capital, sample, s.capacity)

	if s.db != nil {
		_, _ = s.db.Exec(`INSERT INTO capital_history (at, current_equity, peak_equity, drawdown_pct, mode) VALUES (?, ?, ?, ?, ?)`,
			sample.At.Format(time.RFC3339Nano), sample.CurrentEquity, sample.PeakEquity, sample.DrawdownPct, string(sample.Mode))
	}
}

// RecordRoleEvent appends one role assignment/evolution.
func (s *Store) RecordRoleEvent(e RoleEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roles = appendBounded(s.roles, e, s.capacity)

	if s.db != nil {
		_, _ = s.db.Exec(`INSERT INTO role_history (at, position_id, role_from, role_to, reason) VALUES (?, ?, ?, ?, ?)`,
			e.At.Format(time.RFC3339Nano), e.PositionID, string(e.From), string(e.To), e.Reason)
	}
}

// RecordModeChange appends one CapitalContext.Mode transition; a call
// whose from and to modes are equal records nothing.
func (s *Store) RecordModeChange(at time.Time, from, to domain.Mode) {
	if from == to {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	change := ModeChange{At: at, From: from, To: to}
	s.modes = appendBounded(s.modes, change, s.capacity)

	if s.db != nil {
		_, _ = s.db.Exec(`INSERT INTO mode_changes (at, mode_from, mode_to) VALUES (?, ?, ?)`,
			at.Format(time.RFC3339Nano), string(from), string(to))
	}
}

// CapitalHistory returns a snapshot copy of the in-memory ring buffer.
func (s *Store) CapitalHistory() []CapitalSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CapitalSample, len(s.capital))
	copy(out, s.capital)
	return out
}

// RoleHistory returns a snapshot copy of the in-memory ring buffer.
func (s *Store) RoleHistory() []RoleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RoleEvent, len(s.roles))
	copy(out, s.roles)
	return out
}

// ModeChanges returns a snapshot copy of the in-memory ring buffer.
func (s *Store) ModeChanges() []ModeChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ModeChange, len(s.modes))
	copy(out, s.modes)
	return out
}

func appendBounded[T any](buf []T, item T, capacity int) []T {
	buf = append(buf, item)
	if len(buf) > capacity {
		buf = buf[len(buf)-capacity:]
	}
	return buf
}
