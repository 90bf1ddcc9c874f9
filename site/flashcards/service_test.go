// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package flashcards_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/common/testcontext"
	"storj.io/common/testrand"

	"flashgen.io/flashgen/site"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/sitedb/sitedbtest"
)

func TestService(t *testing.T) {
	sitedbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db site.DB) {
		service := flashcards.NewService(zaptest.NewLogger(t), db.Flashcards(), flashcards.Config{MaxCards: 3})
		userID := "user_" + testrand.UUID().String()

		sets, err := service.ListSets(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, sets)
		require.Empty(t, sets)

		_, err = service.GetSet(ctx, userID, "Biology")
		require.ErrorIs(t, err, flashcards.ErrSetNotFound)

		saved, err := service.SaveSet(ctx, userID, "  Biology ", []flashcards.Card{
			{Front: " What is DNA? ", Back: "Genetic material"},
			{Front: "What is a cell?", Back: " Basic unit of life"},
		})
		require.NoError(t, err)
		require.Equal(t, "Biology", saved.Name)
		require.Len(t, saved.Cards, 2)
		for i, card := range saved.Cards {
			require.NotEmpty(t, card.ID)
			require.Equal(t, i, card.Position)
		}
		require.Equal(t, "What is DNA?", saved.Cards[0].Front)
		require.Equal(t, "Basic unit of life", saved.Cards[1].Back)

		_, err = service.SaveSet(ctx, userID, "Biology", []flashcards.Card{{Front: "a", Back: "b"}})
		require.ErrorIs(t, err, flashcards.ErrSetExists)

		sets, err = service.ListSets(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, []flashcards.SetSummary{{Name: "Biology"}}, sets)

		set, err := service.GetSet(ctx, userID, "Biology")
		require.NoError(t, err)
		require.Equal(t, saved, set)

		require.NoError(t, service.DeleteSet(ctx, userID, "Biology"))
		require.ErrorIs(t, service.DeleteSet(ctx, userID, "Biology"), flashcards.ErrSetNotFound)

		_, err = service.GetSet(ctx, userID, "Biology")
		require.ErrorIs(t, err, flashcards.ErrSetNotFound)
	})
}

func TestServiceValidation(t *testing.T) {
	sitedbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db site.DB) {
		service := flashcards.NewService(zaptest.NewLogger(t), db.Flashcards(), flashcards.Config{MaxCards: 2})
		userID := "user_" + testrand.UUID().String()
		card := flashcards.Card{Front: "front", Back: "back"}

		for _, tt := range []struct {
			name  string
			set   string
			cards []flashcards.Card
		}{
			{name: "empty name", set: "   ", cards: []flashcards.Card{card}},
			{name: "slash", set: "a/b", cards: []flashcards.Card{card}},
			{name: "dot", set: ".", cards: []flashcards.Card{card}},
			{name: "dot dot", set: "..", cards: []flashcards.Card{card}},
			{name: "reserved", set: "__set__", cards: []flashcards.Card{card}},
			{name: "long name", set: strings.Repeat("n", flashcards.MaxNameLength+1), cards: []flashcards.Card{card}},
			{name: "no cards", set: "Empty"},
			{name: "too many cards", set: "Big", cards: []flashcards.Card{card, card, card}},
			{name: "blank front", set: "Blank", cards: []flashcards.Card{{Front: " ", Back: "back"}}},
			{name: "long back", set: "Long", cards: []flashcards.Card{{Front: "f", Back: strings.Repeat("b", flashcards.MaxSideLength+1)}}},
		} {
			_, err := service.SaveSet(ctx, userID, tt.set, tt.cards)
			require.Error(t, err, tt.name)
			require.True(t, flashcards.ErrValidation.Has(err), tt.name)
		}

		_, err := service.GetSet(ctx, userID, "a/b")
		require.True(t, flashcards.ErrValidation.Has(err))

		sets, err := service.ListSets(ctx, userID)
		require.NoError(t, err)
		require.Empty(t, sets)
	})
}
