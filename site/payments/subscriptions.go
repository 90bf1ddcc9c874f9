// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package payments

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v81"
)

// ErrNoSubscription is returned when no subscription is stored for a user or customer.
var ErrNoSubscription = Error.New("no subscription")

// Subscription is the subscription state of a user as last reported by the
// payment provider.
type Subscription struct {
	UserID           string
	CustomerID       string
	SubscriptionID   string
	Status           string
	CurrentPeriodEnd time.Time
	UpdatedAt        time.Time
}

// Active returns whether the subscription grants access at the given time.
func (sub Subscription) Active(now time.Time) bool {
	switch stripe.SubscriptionStatus(sub.Status) {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
	default:
		return false
	}
	return sub.CurrentPeriodEnd.IsZero() || now.Before(sub.CurrentPeriodEnd)
}

// SubscriptionsDB stores the subscription state per user.
//
// architecture: Database
type SubscriptionsDB interface {
	// Get returns the subscription of the user, or ErrNoSubscription.
	Get(ctx context.Context, userID string) (Subscription, error)
	// GetByCustomer returns the subscription linked to the provider
	// customer, or ErrNoSubscription.
	GetByCustomer(ctx context.Context, customerID string) (Subscription, error)
	// Upsert stores sub for sub.UserID and links sub.CustomerID to the user.
	Upsert(ctx context.Context, sub Subscription) error
}
