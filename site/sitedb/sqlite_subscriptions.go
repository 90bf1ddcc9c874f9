// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package sitedb

import (
	"context"
	"database/sql"
	"errors"

	"flashgen.io/flashgen/site/payments"
)

// ensure that sqliteSubscriptions implements payments.SubscriptionsDB.
var _ payments.SubscriptionsDB = (*sqliteSubscriptions)(nil)

type sqliteSubscriptions struct {
	db *sql.DB
}

const subscriptionColumns = `user_id, customer_id, subscription_id, status, current_period_end, updated_at`

// Get returns the subscription of the user.
func (subs *sqliteSubscriptions) Get(ctx context.Context, userID string) (_ payments.Subscription, err error) {
	defer mon.Task()(&ctx)(&err)

	row := subs.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ?`, userID)
	return scanSubscription(row)
}

// GetByCustomer returns the most recently updated subscription of the customer.
func (subs *sqliteSubscriptions) GetByCustomer(ctx context.Context, customerID string) (_ payments.Subscription, err error) {
	defer mon.Task()(&ctx)(&err)

	if customerID == "" {
		return payments.Subscription{}, payments.ErrNoSubscription
	}

	row := subs.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE customer_id = ?
		ORDER BY updated_at DESC
		LIMIT 1`, customerID)
	return scanSubscription(row)
}

// Upsert inserts or replaces the subscription of sub.UserID.
func (subs *sqliteSubscriptions) Upsert(ctx context.Context, sub payments.Subscription) (err error) {
	defer mon.Task()(&ctx)(&err)

	if sub.UserID == "" {
		return Error.New("subscription without user")
	}

	_, err = subs.db.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			customer_id = excluded.customer_id,
			subscription_id = excluded.subscription_id,
			status = excluded.status,
			current_period_end = excluded.current_period_end,
			updated_at = excluded.updated_at`,
		sub.UserID, sub.CustomerID, sub.SubscriptionID, sub.Status,
		toUnix(sub.CurrentPeriodEnd), toUnix(sub.UpdatedAt))
	return Error.Wrap(err)
}

func scanSubscription(row *sql.Row) (payments.Subscription, error) {
	var sub payments.Subscription
	var periodEnd, updatedAt int64
	err := row.Scan(&sub.UserID, &sub.CustomerID, &sub.SubscriptionID, &sub.Status, &periodEnd, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payments.Subscription{}, payments.ErrNoSubscription
	}
	if err != nil {
		return payments.Subscription{}, Error.Wrap(err)
	}
	sub.CurrentPeriodEnd = fromUnix(periodEnd)
	sub.UpdatedAt = fromUnix(updatedAt)
	return sub, nil
}
