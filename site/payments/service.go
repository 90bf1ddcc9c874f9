// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package payments wraps the payment provider: hosted checkout sessions for
// the subscription plans, the billing portal, and the subscription state
// that provider webhooks keep current.
package payments

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/stripe/stripe-go/v81"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"flashgen.io/flashgen/shared/lrucache"
)

var (
	// Error is the default error class for payments.
	Error = errs.Class("payments")

	// ErrSessionIDRequired is returned when retrieving a checkout session without an id.
	ErrSessionIDRequired = errs.New("Session ID is required")

	// ErrUnknownPlan is returned when checking out a plan that is not configured.
	ErrUnknownPlan = Error.New("unknown plan")

	// ErrNoCustomer is returned when a billing portal is requested for a user
	// that never completed a checkout.
	ErrNoCustomer = Error.New("no billing account")

	mon = monkit.Package()
)

// resultPath is appended to the return URL for both success and cancel.
const resultPath = "result?session_id={CHECKOUT_SESSION_ID}"

// Config stores needed information for payment service initialization.
type Config struct {
	Provider        string        `help:"payments provider to use, one of: mock, stripe" default:"mock" releaseDefault:"stripe"`
	StripeSecretKey string        `help:"stripe API secret key" default:""`
	StripePublicKey string        `help:"stripe API publishable key" default:""`
	WebhookSecret   string        `help:"stripe webhook signing secret" default:""`
	APIURL          string        `help:"override of the stripe API base URL" default:"" hidden:"true"`
	Timeout         time.Duration `help:"timeout of a single stripe API call including retries" default:"80s"`
	Plans           Plans         `help:"YAML list of plans with id, name, title, description, amount, currency, interval and interval-count; empty offers the $1/month plan"`

	SubscriptionCache struct {
		Expiration time.Duration `help:"how long a subscription lookup is cached" default:"1m"`
		Capacity   int           `help:"how many subscription lookups are cached in memory" default:"10000"`
		Redis      string        `help:"redis://host:port[?db=N] of a cache shared by all site instances; empty caches in memory" default:""`
	}

	Retries RetryConfig
}

// CheckoutParams are the inputs of a new checkout session.
type CheckoutParams struct {
	// PlanID selects the plan; empty selects the first plan.
	PlanID string
	// UserID is attached as the client reference when the buyer is signed in.
	UserID string
	// Email prefills the checkout form.
	Email string
	// BaseURL is the absolute site URL the result page path is appended to.
	BaseURL string
}

// Service is an implementation for payment service via Stripe.
//
// architecture: Service
type Service struct {
	log           *zap.Logger
	stripeClient  StripeClient
	subscriptions SubscriptionsDB
	plans         Plans
	webhookSecret string

	cache SubscriptionCache
	nowFn func() time.Time
}

// SubscriptionCache caches whether a user is subscribed. Webhooks delete the
// entry of every user they change.
type SubscriptionCache interface {
	Get(ctx context.Context, userID string, load func() (bool, error)) (bool, error)
	Delete(ctx context.Context, userID string)
}

// NewService creates a Service instance caching subscription lookups in memory.
func NewService(log *zap.Logger, stripeClient StripeClient, subscriptions SubscriptionsDB, config Config) *Service {
	return NewServiceWithCache(log, stripeClient, subscriptions, config, lrucache.New[bool](lrucache.Options{
		Name:       "payments:subscriptions",
		Expiration: config.SubscriptionCache.Expiration,
		Capacity:   config.SubscriptionCache.Capacity,
	}))
}

// NewServiceWithCache creates a Service instance using cache for subscription lookups.
func NewServiceWithCache(log *zap.Logger, stripeClient StripeClient, subscriptions SubscriptionsDB, config Config, cache SubscriptionCache) *Service {
	return &Service{
		log:           log,
		stripeClient:  stripeClient,
		subscriptions: subscriptions,
		plans:         config.Plans,
		webhookSecret: config.WebhookSecret,
		cache:         cache,
		nowFn:         time.Now,
	}
}

// TestSetNow sets the function used to get the current time.
func (service *Service) TestSetNow(now func() time.Time) {
	service.nowFn = now
}

// Plans returns the plans offered for checkout.
func (service *Service) Plans() []Plan {
	return service.plans.All()
}

// CreateCheckoutSession creates a hosted subscription checkout session for
// the selected plan. Both the success and the cancel URL point to the result
// page so it can report the outcome.
func (service *Service) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (_ *stripe.CheckoutSession, err error) {
	defer mon.Task()(&ctx)(&err)

	plan, ok := service.plans.Get(params.PlanID)
	if !ok {
		return nil, ErrUnknownPlan
	}

	unitAmount, err := plan.UnitAmount()
	if err != nil {
		return nil, err
	}

	returnURL, err := resultURL(params.BaseURL)
	if err != nil {
		return nil, err
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(plan.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(plan.Name),
					},
					UnitAmount: stripe.Int64(unitAmount),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval:      stripe.String(plan.Interval),
						IntervalCount: stripe.Int64(plan.IntervalCount),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(returnURL),
		CancelURL:  stripe.String(returnURL),
	}

	if params.UserID != "" {
		sessionParams.ClientReferenceID = stripe.String(params.UserID)
		sessionParams.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": params.UserID},
		}

		existing, err := service.subscriptions.Get(ctx, params.UserID)
		switch {
		case err == nil && existing.CustomerID != "":
			sessionParams.Customer = stripe.String(existing.CustomerID)
		case err != nil && !errors.Is(err, ErrNoSubscription):
			return nil, Error.Wrap(err)
		}
	}
	if params.Email != "" && sessionParams.Customer == nil {
		sessionParams.CustomerEmail = stripe.String(params.Email)
	}

	session, err := service.stripeClient.CheckoutSessions().New(sessionParams)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	service.log.Debug("created checkout session",
		zap.String("session", session.ID),
		zap.String("plan", plan.ID),
		zap.String("user", params.UserID))

	return session, nil
}

// GetCheckoutSession retrieves a checkout session by id.
func (service *Service) GetCheckoutSession(ctx context.Context, id string) (_ *stripe.CheckoutSession, err error) {
	defer mon.Task()(&ctx)(&err)

	if id == "" {
		return nil, ErrSessionIDRequired
	}

	session, err := service.stripeClient.CheckoutSessions().Get(id, &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return session, nil
}

// CreatePortalSession creates a billing portal session where the user can
// manage or cancel the subscription.
func (service *Service) CreatePortalSession(ctx context.Context, userID, returnURL string) (_ *stripe.BillingPortalSession, err error) {
	defer mon.Task()(&ctx)(&err)

	sub, err := service.subscriptions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSubscription) {
			return nil, ErrNoCustomer
		}
		return nil, Error.Wrap(err)
	}
	if sub.CustomerID == "" {
		return nil, ErrNoCustomer
	}

	params := &stripe.BillingPortalSessionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(sub.CustomerID),
	}
	if returnURL != "" {
		params.ReturnURL = stripe.String(returnURL)
	}

	session, err := service.stripeClient.BillingPortalSessions().New(params)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return session, nil
}

// GetSubscription returns the stored subscription of the user.
func (service *Service) GetSubscription(ctx context.Context, userID string) (_ Subscription, err error) {
	defer mon.Task()(&ctx)(&err)

	sub, err := service.subscriptions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSubscription) {
			return Subscription{}, ErrNoSubscription
		}
		return Subscription{}, Error.Wrap(err)
	}
	return sub, nil
}

// IsSubscribed returns whether the user has an active subscription.
func (service *Service) IsSubscribed(ctx context.Context, userID string) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	if userID == "" {
		return false, nil
	}

	return service.cache.Get(ctx, userID, func() (bool, error) {
		sub, err := service.subscriptions.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNoSubscription) {
				return false, nil
			}
			return false, Error.Wrap(err)
		}
		return sub.Active(service.nowFn()), nil
	})
}

// resultURL returns the result page URL under base.
func resultURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", Error.New("invalid return URL %q", base)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + resultPath, nil
}

// ProviderMessage returns the message the provider attached to err, or the
// error text when err did not come from the provider.
func ProviderMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	if errors.Is(err, ErrSessionIDRequired) {
		return ErrSessionIDRequired.Error()
	}
	return err.Error()
}
