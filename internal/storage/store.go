package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"exchange_go/internal/event"
)

// Store owns the SQLite handle shared by the order, trade, and event
// stores.
type Store struct {
	db *sql.DB

	orders *OrderStore
	trades *TradeStore
}

// Open opens (or creates) the database at path with WAL mode enabled and
// ensures the schema exists. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		orders: &OrderStore{db: db},
		trades: &TradeStore{db: db},
	}, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			side TEXT NOT NULL,
			status TEXT NOT NULL,
			initial_qty INTEGER NOT NULL,
			remaining_qty INTEGER NOT NULL,
			trader_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			price INTEGER NOT NULL,
			limit_price INTEGER NOT NULL,
			best_price INTEGER NOT NULL,
			hidden_qty INTEGER NOT NULL,
			display_size INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_trader ON orders(trader_id);`,
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			buy_order_id INTEGER NOT NULL,
			sell_order_id INTEGER NOT NULL,
			buy_order_type TEXT NOT NULL,
			sell_order_type TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price INTEGER NOT NULL,
			ts INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Orders returns the order repository backed by this store.
func (s *Store) Orders() *OrderStore { return s.orders }

// Trades returns the trade repository backed by this store.
func (s *Store) Trades() *TradeStore { return s.trades }

// AppendEvent persists an event as a JSON payload for audit queries.
func (s *Store) AppendEvent(ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO events (type, ts, payload) VALUES (?, ?, ?)",
		string(ev.EventType()), ev.At(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// EventCount returns how many events have been persisted.
func (s *Store) EventCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
