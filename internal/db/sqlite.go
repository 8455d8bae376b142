// Package db opens the SQLite metastore that holds materialized column
// registrations and property definitions.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// Mode selects the pool configuration of a SQLite handle.
type Mode string

// Pool modes.
const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

const (
	defaultBusyTimeout = "5000" // 5 seconds
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
	defaultReadConns   = 4
)

// OpenSQLite opens a *sql.DB pool for the given SQLite file path.
//
// A write pool holds a single connection and takes immediate transaction
// locks. A read pool holds maxOpen connections (0 means 4). Both use WAL
// journaling with a 5s busy timeout.
func OpenSQLite(path string, mode Mode, maxOpen int) (*sql.DB, error) {
	if mode != ModeRead && mode != ModeWrite {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be \"read\" or \"write\"", mode)
	}

	db, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	if mode == ModeWrite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if maxOpen <= 0 {
			maxOpen = defaultReadConns
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}

	return db, nil
}

// Metastore is a migrated SQLite file with separate write and read pools.
type Metastore struct {
	Write *sql.DB
	Read  *sql.DB
}

// OpenMetastore opens path, runs pending migrations and returns both pools.
func OpenMetastore(path string) (*Metastore, error) {
	writeDB, err := OpenSQLite(path, ModeWrite, 0)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(writeDB); err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	readDB, err := OpenSQLite(path, ModeRead, 0)
	if err != nil {
		_ = writeDB.Close()
		return nil, err
	}
	return &Metastore{Write: writeDB, Read: readDB}, nil
}

// Close closes both pools.
func (m *Metastore) Close() error {
	rerr := m.Read.Close()
	werr := m.Write.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func buildDSN(path string, mode Mode) string {
	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", defaultSynchronous)
	params.Set("_foreign_keys", "on")

	if mode == ModeWrite {
		params.Set("_txlock", "immediate")
	}

	return path + "?" + params.Encode()
}
