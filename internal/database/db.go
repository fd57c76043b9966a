package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate creates the schema if it does not exist yet.
func (db *DB) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			stock_code TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			corp_code  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kospi (
			date        TEXT PRIMARY KEY,
			close_price REAL NOT NULL,
			trade_qty   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stock_daily (
			stock_code  TEXT NOT NULL,
			date        TEXT NOT NULL,
			close_price REAL NOT NULL,
			trade_qty   INTEGER NOT NULL,
			market_cap  INTEGER,
			stock_count INTEGER,
			PRIMARY KEY (stock_code, date)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_year (
			stock_code TEXT NOT NULL,
			year       INTEGER NOT NULL,
			net_profit INTEGER NOT NULL,
			capital    INTEGER NOT NULL,
			PRIMARY KEY (stock_code, year)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_dividend (
			stock_code  TEXT NOT NULL,
			year        INTEGER NOT NULL,
			share_class TEXT NOT NULL DEFAULT '',
			dps         REAL NOT NULL,
			PRIMARY KEY (stock_code, year, share_class)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_daily_date ON stock_daily(date)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Exec executes a query without returning rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
