// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package sitedb implements the site databases: a Firestore backend matching
// the hosted document layout and an SQLite backend for development and tests.
package sitedb

import (
	"context"
	"strings"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"flashgen.io/flashgen/site"
)

var (
	// Error is the default sitedb errs class.
	Error = errs.Class("sitedb")

	mon = monkit.Package()
)

// Options includes options for how a site database runs.
type Options struct {
	// CredentialsFile is a service account key used for Firestore. Empty uses
	// the application default credentials or the emulator.
	CredentialsFile string
}

// Open opens the database at databaseURL. Supported forms are
// sqlite://path, sqlite://:memory: and firestore://project[/database].
func Open(ctx context.Context, log *zap.Logger, databaseURL string, opts Options) (site.DB, error) {
	scheme, source, ok := strings.Cut(databaseURL, "://")
	if !ok {
		return nil, Error.New("invalid database URL %q", databaseURL)
	}

	switch scheme {
	case "sqlite", "sqlite3":
		return OpenSQLite(ctx, log, source)
	case "firestore":
		return OpenFirestore(ctx, log, source, opts)
	default:
		return nil, Error.New("unsupported database %q", scheme)
	}
}
