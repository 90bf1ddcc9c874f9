// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package sitedb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the sqlite driver

	"flashgen.io/flashgen/site"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/payments"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS flashcard_sets (
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (user_id, name)
);
CREATE TABLE IF NOT EXISTS flashcards (
	user_id TEXT NOT NULL,
	set_name TEXT NOT NULL,
	id TEXT NOT NULL,
	position INTEGER NOT NULL,
	front TEXT NOT NULL,
	back TEXT NOT NULL,
	PRIMARY KEY (user_id, set_name, id)
);
CREATE TABLE IF NOT EXISTS subscriptions (
	user_id TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL DEFAULT '',
	subscription_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	current_period_end INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS subscriptions_customer_id ON subscriptions (customer_id);
`

// sqliteDB is the SQLite implementation of site.DB.
type sqliteDB struct {
	log *zap.Logger
	db  *sql.DB
}

// OpenSQLite opens the SQLite database at path, ":memory:" for a private
// in-memory database.
func OpenSQLite(ctx context.Context, log *zap.Logger, path string) (site.DB, error) {
	if path == "" {
		return nil, Error.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, Error.New("failed opening sqlite database at %q: %v", path, err)
	}
	// a single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	log.Debug("Connected to:", zap.String("db source", path))

	return &sqliteDB{log: log, db: db}, nil
}

// MigrateToLatest creates the schema.
func (db *sqliteDB) MigrateToLatest(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = db.db.ExecContext(ctx, sqliteSchema)
	return Error.Wrap(err)
}

// Ping checks that the database is reachable.
func (db *sqliteDB) Ping(ctx context.Context) error {
	return Error.Wrap(db.db.PingContext(ctx))
}

// Close closes the database.
func (db *sqliteDB) Close() error {
	return Error.Wrap(db.db.Close())
}

// Flashcards returns the flashcard storage.
func (db *sqliteDB) Flashcards() flashcards.DB {
	return &sqliteFlashcards{db: db.db}
}

// Subscriptions returns the subscription storage.
func (db *sqliteDB) Subscriptions() payments.SubscriptionsDB {
	return &sqliteSubscriptions{db: db.db}
}

// withTx runs fn in a transaction, committing when it returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, ignoreDone(tx.Rollback()))
			return
		}
		err = Error.Wrap(tx.Commit())
	}()
	return fn(tx)
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}
