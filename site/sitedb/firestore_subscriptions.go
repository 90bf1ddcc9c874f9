// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package sitedb

import (
	"context"

	"cloud.google.com/go/firestore"

	"flashgen.io/flashgen/site/payments"
)

// ensure that firestoreSubscriptions implements payments.SubscriptionsDB.
var _ payments.SubscriptionsDB = (*firestoreSubscriptions)(nil)

type firestoreSubscriptions struct {
	client *firestore.Client
}

// Get returns the subscription stored on the user document.
func (subs *firestoreSubscriptions) Get(ctx context.Context, userID string) (_ payments.Subscription, err error) {
	defer mon.Task()(&ctx)(&err)

	snap, err := subs.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return payments.Subscription{}, payments.ErrNoSubscription
		}
		return payments.Subscription{}, Error.Wrap(err)
	}

	doc, err := readUser(snap)
	if err != nil {
		return payments.Subscription{}, err
	}
	if doc.Subscription == nil {
		return payments.Subscription{}, payments.ErrNoSubscription
	}

	return payments.Subscription{
		UserID:           userID,
		CustomerID:       doc.Subscription.CustomerID,
		SubscriptionID:   doc.Subscription.SubscriptionID,
		Status:           doc.Subscription.Status,
		CurrentPeriodEnd: doc.Subscription.CurrentPeriodEnd,
		UpdatedAt:        doc.Subscription.UpdatedAt,
	}, nil
}

// GetByCustomer resolves the customer link and returns that user's subscription.
func (subs *firestoreSubscriptions) GetByCustomer(ctx context.Context, customerID string) (_ payments.Subscription, err error) {
	defer mon.Task()(&ctx)(&err)

	if customerID == "" {
		return payments.Subscription{}, payments.ErrNoSubscription
	}

	snap, err := subs.client.Collection(customersCollection).Doc(customerID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return payments.Subscription{}, payments.ErrNoSubscription
		}
		return payments.Subscription{}, Error.Wrap(err)
	}

	var link customerDoc
	if err := snap.DataTo(&link); err != nil {
		return payments.Subscription{}, Error.Wrap(err)
	}
	if link.UserID == "" {
		return payments.Subscription{}, payments.ErrNoSubscription
	}
	return subs.Get(ctx, link.UserID)
}

// Upsert writes the subscription to the user document and links the
// customer to the user in one batch.
func (subs *firestoreSubscriptions) Upsert(ctx context.Context, sub payments.Subscription) (err error) {
	defer mon.Task()(&ctx)(&err)

	if sub.UserID == "" {
		return Error.New("subscription without user")
	}

	userRef := subs.client.Collection(usersCollection).Doc(sub.UserID)
	return Error.Wrap(subs.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		update := map[string]interface{}{
			"subscription": subscriptionDoc{
				CustomerID:       sub.CustomerID,
				SubscriptionID:   sub.SubscriptionID,
				Status:           sub.Status,
				CurrentPeriodEnd: sub.CurrentPeriodEnd,
				UpdatedAt:        sub.UpdatedAt,
			},
		}
		if sub.CustomerID != "" {
			update["customerId"] = sub.CustomerID
		}
		if err := tx.Set(userRef, update, firestore.MergeAll); err != nil {
			return err
		}

		if sub.CustomerID == "" {
			return nil
		}
		return tx.Set(subs.client.Collection(customersCollection).Doc(sub.CustomerID), customerDoc{UserID: sub.UserID})
	}))
}
