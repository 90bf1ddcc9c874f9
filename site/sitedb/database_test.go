// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package sitedb_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/common/testcontext"

	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/sitedb"
)

func TestOpen(t *testing.T) {
	ctx := testcontext.New(t)
	log := zaptest.NewLogger(t)

	for _, url := range []string{"", "sqlite", "postgres://localhost/db", "sqlite://", "firestore://"} {
		_, err := sitedb.Open(ctx, log, url, sitedb.Options{})
		require.Error(t, err, url)
	}
}

func TestSQLiteFilePersists(t *testing.T) {
	ctx := testcontext.New(t)
	log := zaptest.NewLogger(t)
	url := "sqlite://" + filepath.Join(ctx.Dir("db"), "flashgen.db")

	db, err := sitedb.Open(ctx, log, url, sitedb.Options{})
	require.NoError(t, err)
	require.NoError(t, db.MigrateToLatest(ctx))
	require.NoError(t, db.Ping(ctx))
	require.NoError(t, db.Flashcards().CreateSet(ctx, "user", flashcards.Set{
		Name:  "Geography",
		Cards: []flashcards.Card{{ID: "g1", Front: "Capital of France", Back: "Paris"}},
	}))
	require.NoError(t, db.Close())

	db, err = sitedb.Open(ctx, log, url, sitedb.Options{})
	require.NoError(t, err)
	defer ctx.Check(db.Close)
	require.NoError(t, db.MigrateToLatest(ctx))

	cards, err := db.Flashcards().ListCards(ctx, "user", "Geography")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "Paris", cards[0].Back)
}
