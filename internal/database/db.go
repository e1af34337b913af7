package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the PostgreSQL connection pool and exposes the ledger
// store repositories as methods.
type DB struct {
	conn *sql.DB
}

// New opens a connection pool and verifies connectivity
func New(connStr string) (*DB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	return db.conn.Close()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
