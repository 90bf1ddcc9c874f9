// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package sitedb_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"storj.io/common/testcontext"
	"storj.io/common/testrand"

	"flashgen.io/flashgen/site"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/payments"
	"flashgen.io/flashgen/site/sitedb/sitedbtest"
)

func TestSubscriptionsDB(t *testing.T) {
	sitedbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db site.DB) {
		subs := db.Subscriptions()
		userID := "user_" + testrand.UUID().String()
		customerID := "cus_" + testrand.UUID().String()

		_, err := subs.Get(ctx, userID)
		require.ErrorIs(t, err, payments.ErrNoSubscription)
		_, err = subs.GetByCustomer(ctx, customerID)
		require.ErrorIs(t, err, payments.ErrNoSubscription)
		_, err = subs.GetByCustomer(ctx, "")
		require.ErrorIs(t, err, payments.ErrNoSubscription)

		now := time.Now().Truncate(time.Millisecond)
		sub := payments.Subscription{
			UserID:           userID,
			CustomerID:       customerID,
			SubscriptionID:   "sub_1",
			Status:           "active",
			CurrentPeriodEnd: now.AddDate(0, 1, 0),
			UpdatedAt:        now,
		}
		require.NoError(t, subs.Upsert(ctx, sub))

		got, err := subs.Get(ctx, userID)
		require.NoError(t, err)
		requireSubscription(t, sub, got)

		got, err = subs.GetByCustomer(ctx, customerID)
		require.NoError(t, err)
		requireSubscription(t, sub, got)

		sub.Status = "canceled"
		sub.UpdatedAt = now.Add(time.Minute)
		require.NoError(t, subs.Upsert(ctx, sub))

		got, err = subs.Get(ctx, userID)
		require.NoError(t, err)
		requireSubscription(t, sub, got)
		require.False(t, got.Active(now))

		require.Error(t, subs.Upsert(ctx, payments.Subscription{Status: "active"}))
	})
}

func TestSubscriptionsKeepFlashcards(t *testing.T) {
	sitedbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db site.DB) {
		userID := "user_" + testrand.UUID().String()

		require.NoError(t, db.Flashcards().CreateSet(ctx, userID, flashcards.Set{
			Name:  "Physics",
			Cards: []flashcards.Card{{ID: "p1", Front: "F", Back: "ma"}},
		}))
		require.NoError(t, db.Subscriptions().Upsert(ctx, payments.Subscription{
			UserID:     userID,
			CustomerID: "cus_" + testrand.UUID().String(),
			Status:     "active",
			UpdatedAt:  time.Now(),
		}))

		user, err := db.Flashcards().GetUser(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, []flashcards.SetSummary{{Name: "Physics"}}, user.Sets)
	})
}

func requireSubscription(t *testing.T, expected, actual payments.Subscription) {
	t.Helper()

	diff := cmp.Diff(expected, actual, cmpopts.EquateApproxTime(time.Millisecond))
	require.Zero(t, diff)
}
