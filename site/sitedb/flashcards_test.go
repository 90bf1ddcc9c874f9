// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package sitedb_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"storj.io/common/testcontext"
	"storj.io/common/testrand"

	"flashgen.io/flashgen/site"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/sitedb/sitedbtest"
)

func TestFlashcardsDB(t *testing.T) {
	sitedbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db site.DB) {
		fc := db.Flashcards()
		userID := "user_" + testrand.UUID().String()

		_, err := fc.GetUser(ctx, userID)
		require.ErrorIs(t, err, flashcards.ErrUserNotFound)

		user, err := fc.EnsureUser(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, userID, user.ID)
		require.Empty(t, user.Sets)
		require.False(t, user.CreatedAt.IsZero())

		again, err := fc.EnsureUser(ctx, userID)
		require.NoError(t, err)
		require.WithinDuration(t, user.CreatedAt, again.CreatedAt, 0)

		biology := flashcards.Set{
			Name: "Biology",
			Cards: []flashcards.Card{
				{ID: "c2", Front: "Cell", Back: "Unit of life", Position: 0},
				{ID: "c1", Front: "DNA", Back: "Genetic code", Position: 1},
			},
		}
		require.NoError(t, fc.CreateSet(ctx, userID, biology))
		require.NoError(t, fc.CreateSet(ctx, userID, flashcards.Set{
			Name:  "Algebra",
			Cards: []flashcards.Card{{ID: "a1", Front: "x+x", Back: "2x"}},
		}))

		err = fc.CreateSet(ctx, userID, biology)
		require.ErrorIs(t, err, flashcards.ErrSetExists)

		user, err = fc.GetUser(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, []flashcards.SetSummary{{Name: "Biology"}, {Name: "Algebra"}}, user.Sets)

		cards, err := fc.ListCards(ctx, userID, "Biology")
		require.NoError(t, err)
		require.Zero(t, cmp.Diff(biology.Cards, cards))

		cards, err = fc.ListCards(ctx, userID, "Chemistry")
		require.NoError(t, err)
		require.Empty(t, cards)

		require.NoError(t, fc.DeleteSet(ctx, userID, "Biology"))
		require.ErrorIs(t, fc.DeleteSet(ctx, userID, "Biology"), flashcards.ErrSetNotFound)

		user, err = fc.GetUser(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, []flashcards.SetSummary{{Name: "Algebra"}}, user.Sets)

		cards, err = fc.ListCards(ctx, userID, "Biology")
		require.NoError(t, err)
		require.Empty(t, cards)

		// the name can be reused after deletion.
		require.NoError(t, fc.CreateSet(ctx, userID, biology))
	})
}

func TestFlashcardsDBCreateSetForNewUser(t *testing.T) {
	sitedbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db site.DB) {
		fc := db.Flashcards()
		userID := "user_" + testrand.UUID().String()

		require.NoError(t, fc.CreateSet(ctx, userID, flashcards.Set{
			Name:  "History",
			Cards: []flashcards.Card{{ID: "h1", Front: "1066", Back: "Hastings"}},
		}))

		user, err := fc.GetUser(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, []flashcards.SetSummary{{Name: "History"}}, user.Sets)

		require.ErrorIs(t, fc.DeleteSet(ctx, "user_"+testrand.UUID().String(), "History"), flashcards.ErrSetNotFound)
	})
}
