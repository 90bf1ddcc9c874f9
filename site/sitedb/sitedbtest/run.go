// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package sitedbtest

// This package should be referenced only in test files!

import (
	"os"
	"testing"

	"go.uber.org/zap/zaptest"

	"storj.io/common/testcontext"
	"storj.io/common/testrand"

	"flashgen.io/flashgen/site"
	"flashgen.io/flashgen/site/sitedb"
)

// Database describes a test database.
type Database struct {
	Name    string
	URL     string
	Message string
}

// Databases returns default databases.
func Databases() []Database {
	firestoreURL := ""
	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		// every run gets its own emulator project so tests never share documents.
		firestoreURL = "firestore://flashgen-test-" + testrand.UUID().String()[:8]
	}

	return []Database{
		{Name: "SQLite", URL: "sqlite://:memory:"},
		{
			Name:    "Firestore",
			URL:     firestoreURL,
			Message: "Firestore emulator missing, start one and set FIRESTORE_EMULATOR_HOST, e.g. FIRESTORE_EMULATOR_HOST=localhost:8080.",
		},
	}
}

// Run method will iterate over all supported databases. Will establish
// connection and will create tables for each DB.
func Run(t *testing.T, test func(ctx *testcontext.Context, t *testing.T, db site.DB)) {
	for _, dbInfo := range Databases() {
		dbInfo := dbInfo
		t.Run(dbInfo.Name, func(t *testing.T) {
			t.Parallel()

			ctx := testcontext.New(t)

			if dbInfo.URL == "" {
				t.Skipf("Database %s connection string not provided. %s", dbInfo.Name, dbInfo.Message)
			}

			db, err := sitedb.Open(ctx, zaptest.NewLogger(t).Named("db"), dbInfo.URL, sitedb.Options{})
			if err != nil {
				t.Fatal(err)
			}
			defer ctx.Check(db.Close)

			err = db.MigrateToLatest(ctx)
			if err != nil {
				t.Fatal(err)
			}

			test(ctx, t, db)
		})
	}
}
