// Package history provides a SQLite-backed journal of completed reverse
// lookups.
//
// The journal is append-only from the resolve path: lookups are recorded
// after they complete and are only ever read back through the management
// API. It never feeds answers back into resolution.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Entry is one journaled lookup.
type Entry struct {
	ID         int64     `json:"id"`
	IP         string    `json:"ip"`
	Domain     string    `json:"domain"`
	Source     string    `json:"source"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store wraps a SQLite database holding the lookup journal.
type Store struct {
	conn *sql.DB
}

// Open opens or creates the journal database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	// WAL mode for concurrent reads while the resolve path appends.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if err := applyMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record appends one completed lookup to the journal.
func (s *Store) Record(ctx context.Context, ip, domain, source string, rtt time.Duration) error {
	_, err := s.conn.ExecContext(ctx,
		"INSERT INTO lookups (ip, domain, source, duration_ms) VALUES (?, ?, ?, ?)",
		ip, domain, source, rtt.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record lookup: %w", err)
	}
	return nil
}

// Recent returns up to limit journal entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, ip, domain, source, duration_ms, created_at FROM lookups ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookups: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.IP, &e.Domain, &e.Source, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lookup row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of journaled lookups.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM lookups").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count lookups: %w", err)
	}
	return n, nil
}

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func applyMigrations(conn *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
