// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package payments

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v81"
)

// StripeMock is an in-memory StripeClient used by tests and by development
// binaries running without a Stripe account.
type StripeMock struct {
	mu            sync.Mutex
	nextID        int
	sessions      map[string]*stripe.CheckoutSession
	subscriptions map[string]*stripe.Subscription

	checkoutSessions      *mockCheckoutSessions
	subscriptionsClient   *mockSubscriptions
	billingPortalSessions *mockBillingPortalSessions
}

// NewStripeMock creates a new in-memory StripeClient.
func NewStripeMock() *StripeMock {
	mock := &StripeMock{
		sessions:      make(map[string]*stripe.CheckoutSession),
		subscriptions: make(map[string]*stripe.Subscription),
	}
	mock.checkoutSessions = &mockCheckoutSessions{root: mock}
	mock.subscriptionsClient = &mockSubscriptions{root: mock}
	mock.billingPortalSessions = &mockBillingPortalSessions{root: mock}
	return mock
}

// CheckoutSessions returns the mock checkout sessions client.
func (m *StripeMock) CheckoutSessions() StripeCheckoutSessions { return m.checkoutSessions }

// Subscriptions returns the mock subscriptions client.
func (m *StripeMock) Subscriptions() StripeSubscriptions { return m.subscriptionsClient }

// BillingPortalSessions returns the mock billing portal client.
func (m *StripeMock) BillingPortalSessions() StripeBillingPortalSessions {
	return m.billingPortalSessions
}

// CompleteSession marks the checkout session as paid, as if the customer had
// finished the hosted checkout. A customer and an active subscription are
// created for subscription mode sessions.
func (m *StripeMock) CompleteSession(id string) (*stripe.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, missing("checkout session", id)
	}

	if session.Customer == nil {
		session.Customer = &stripe.Customer{ID: m.newIDLocked("cus")}
	}
	session.Status = stripe.CheckoutSessionStatusComplete
	session.PaymentStatus = stripe.CheckoutSessionPaymentStatusPaid

	if session.Mode == stripe.CheckoutSessionModeSubscription {
		sub := &stripe.Subscription{
			ID:               m.newIDLocked("sub"),
			Customer:         session.Customer,
			Status:           stripe.SubscriptionStatusActive,
			CurrentPeriodEnd: time.Now().AddDate(0, 1, 0).Unix(),
			Metadata:         map[string]string{"user_id": session.ClientReferenceID},
		}
		m.subscriptions[sub.ID] = sub
		session.Subscription = &stripe.Subscription{ID: sub.ID}
	}

	copied := *session
	return &copied, nil
}

func (m *StripeMock) newIDLocked(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s_test_%06d", prefix, m.nextID)
}

func missing(kind, id string) error {
	return &stripe.Error{
		Code:           stripe.ErrorCodeResourceMissing,
		HTTPStatusCode: http.StatusNotFound,
		Msg:            fmt.Sprintf("No such %s: '%s'", kind, id),
		Type:           stripe.ErrorTypeInvalidRequest,
	}
}

func invalid(msg string) error {
	return &stripe.Error{
		HTTPStatusCode: http.StatusBadRequest,
		Msg:            msg,
		Type:           stripe.ErrorTypeInvalidRequest,
	}
}

type mockCheckoutSessions struct {
	root *StripeMock
}

func (c *mockCheckoutSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil || params.Mode == nil {
		return nil, invalid("Missing required param: mode.")
	}
	if params.SuccessURL == nil || !strings.Contains(*params.SuccessURL, "://") {
		return nil, invalid("Not a valid URL")
	}
	if len(params.LineItems) == 0 {
		return nil, invalid("Missing required param: line_items.")
	}

	var amount int64
	var currency string
	for _, item := range params.LineItems {
		if item.PriceData == nil || item.PriceData.UnitAmount == nil || item.PriceData.Currency == nil {
			return nil, invalid("Missing required param: line_items[0][price_data].")
		}
		quantity := int64(1)
		if item.Quantity != nil {
			quantity = *item.Quantity
		}
		amount += *item.PriceData.UnitAmount * quantity
		currency = *item.PriceData.Currency
	}

	c.root.mu.Lock()
	defer c.root.mu.Unlock()

	id := c.root.newIDLocked("cs")
	session := &stripe.CheckoutSession{
		ID:            id,
		Object:        "checkout.session",
		Mode:          stripe.CheckoutSessionMode(*params.Mode),
		Status:        stripe.CheckoutSessionStatusOpen,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
		AmountTotal:   amount,
		Currency:      stripe.Currency(currency),
		SuccessURL:    strings.ReplaceAll(*params.SuccessURL, "{CHECKOUT_SESSION_ID}", id),
		URL:           "https://checkout.stripe.test/c/pay/" + id,
		Created:       time.Now().Unix(),
	}
	if params.CancelURL != nil {
		session.CancelURL = strings.ReplaceAll(*params.CancelURL, "{CHECKOUT_SESSION_ID}", id)
	}
	if params.ClientReferenceID != nil {
		session.ClientReferenceID = *params.ClientReferenceID
	}
	if params.Customer != nil {
		session.Customer = &stripe.Customer{ID: *params.Customer}
	}
	if params.CustomerEmail != nil {
		session.CustomerEmail = *params.CustomerEmail
	}

	c.root.sessions[id] = session

	copied := *session
	return &copied, nil
}

func (c *mockCheckoutSessions) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	c.root.mu.Lock()
	defer c.root.mu.Unlock()

	session, ok := c.root.sessions[id]
	if !ok {
		return nil, missing("checkout.session", id)
	}
	copied := *session
	return &copied, nil
}

type mockSubscriptions struct {
	root *StripeMock
}

func (s *mockSubscriptions) Get(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()

	sub, ok := s.root.subscriptions[id]
	if !ok {
		return nil, missing("subscription", id)
	}
	copied := *sub
	return &copied, nil
}

type mockBillingPortalSessions struct {
	root *StripeMock
}

func (b *mockBillingPortalSessions) New(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	if params == nil || params.Customer == nil || *params.Customer == "" {
		return nil, invalid("Missing required param: customer.")
	}

	b.root.mu.Lock()
	defer b.root.mu.Unlock()

	id := b.root.newIDLocked("bps")
	session := &stripe.BillingPortalSession{
		ID:       id,
		Customer: *params.Customer,
		URL:      "https://billing.stripe.test/p/session/" + id,
	}
	if params.ReturnURL != nil {
		session.ReturnURL = *params.ReturnURL
	}
	return session, nil
}
