package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrServerExists  = errors.New("server already exists")
	ErrUnknownServer = errors.New("unknown server")
)

// Server is a named base address.
type Server struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Current bool   `json:"current,omitempty"`
}

// Servers stores server bookmarks and remembers the selected one.
type Servers interface {
	List() ([]Server, error)
	Get(name string) (Server, error)
	Add(name, address string) error
	Remove(name string) error
	// Current returns the selected server, or ok false if none is selected.
	Current() (Server, bool, error)
	SetCurrent(name string) error
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS servers (
	name       TEXT PRIMARY KEY,
	address    TEXT NOT NULL,
	current    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);`

// SQLServers keeps bookmarks in a SQLite database.
type SQLServers struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// OpenServers opens a SQLite database. Accepted forms are a plain path,
// sqlite://path and sqlite:path.
func OpenServers(connectionString string) (*SQLServers, error) {
	dsn := parseConnectionString(connectionString)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Println("opened servers database", dsn)
	return &SQLServers{db: db, queryTimeout: 30 * time.Second}, nil
}

func parseConnectionString(connStr string) string {
	connStr = strings.TrimSpace(connStr)
	if strings.HasPrefix(connStr, "sqlite://") {
		return strings.TrimPrefix(connStr, "sqlite://")
	}
	return strings.TrimPrefix(connStr, "sqlite:")
}

func (s *SQLServers) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.queryTimeout)
}

func (s *SQLServers) List() ([]Server, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT name, address, current FROM servers ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var servers []Server
	for rows.Next() {
		var srv Server
		if err := rows.Scan(&srv.Name, &srv.Address, &srv.Current); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		servers = append(servers, srv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return servers, nil
}

func (s *SQLServers) Get(name string) (Server, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var srv Server
	err := s.db.QueryRowContext(ctx, `SELECT name, address, current FROM servers WHERE name = ?`, name).
		Scan(&srv.Name, &srv.Address, &srv.Current)
	if errors.Is(err, sql.ErrNoRows) {
		return Server{}, fmt.Errorf("%w: %s", ErrUnknownServer, name)
	}
	return srv, err
}

func (s *SQLServers) Add(name, address string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO servers (name, address, created_at) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		name, address, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrServerExists, name)
	}
	return nil
}

func (s *SQLServers) Remove(name string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownServer, name)
	}
	return nil
}

func (s *SQLServers) Current() (Server, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var srv Server
	err := s.db.QueryRowContext(ctx, `SELECT name, address, current FROM servers WHERE current = 1`).
		Scan(&srv.Name, &srv.Address, &srv.Current)
	if errors.Is(err, sql.ErrNoRows) {
		return Server{}, false, nil
	}
	if err != nil {
		return Server{}, false, err
	}
	return srv, true, nil
}

func (s *SQLServers) SetCurrent(name string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE servers SET current = 0`); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE servers SET current = 1 WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownServer, name)
	}
	return tx.Commit()
}

func (s *SQLServers) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// MemoryServers keeps bookmarks for the lifetime of the process.
type MemoryServers struct {
	mu      sync.Mutex
	servers []Server
	current string
}

func NewMemoryServers() *MemoryServers {
	return &MemoryServers{}
}

func (m *MemoryServers) List() ([]Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Server, len(m.servers))
	for i, srv := range m.servers {
		srv.Current = srv.Name == m.current
		out[i] = srv
	}
	return out, nil
}

func (m *MemoryServers) index(name string) int {
	for i, srv := range m.servers {
		if srv.Name == name {
			return i
		}
	}
	return -1
}

func (m *MemoryServers) Get(name string) (Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(name)
	if i < 0 {
		return Server{}, fmt.Errorf("%w: %s", ErrUnknownServer, name)
	}
	srv := m.servers[i]
	srv.Current = srv.Name == m.current
	return srv, nil
}

func (m *MemoryServers) Add(name, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrServerExists, name)
	}
	m.servers = append(m.servers, Server{Name: name, Address: address})
	return nil
}

func (m *MemoryServers) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownServer, name)
	}
	m.servers = append(m.servers[:i], m.servers[i+1:]...)
	if m.current == name {
		m.current = ""
	}
	return nil
}

func (m *MemoryServers) Current() (Server, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(m.current)
	if m.current == "" || i < 0 {
		return Server{}, false, nil
	}
	srv := m.servers[i]
	srv.Current = true
	return srv, true, nil
}

func (m *MemoryServers) SetCurrent(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index(name) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownServer, name)
	}
	m.current = name
	return nil
}

func (m *MemoryServers) Close() error {
	return nil
}
