// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package payments

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	billingportalsession "github.com/stripe/stripe-go/v81/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/subscription"
	"go.uber.org/zap"

	"storj.io/common/time2"
)

// StripeClient Stripe client interface.
type StripeClient interface {
	CheckoutSessions() StripeCheckoutSessions
	Subscriptions() StripeSubscriptions
	BillingPortalSessions() StripeBillingPortalSessions
}

// StripeCheckoutSessions Stripe CheckoutSessions interface.
type StripeCheckoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeSubscriptions Stripe Subscriptions interface.
type StripeSubscriptions interface {
	Get(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

// StripeBillingPortalSessions Stripe BillingPortalSessions interface.
type StripeBillingPortalSessions interface {
	New(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

var (
	_ StripeCheckoutSessions      = (*checkoutsession.Client)(nil)
	_ StripeSubscriptions         = (*subscription.Client)(nil)
	_ StripeBillingPortalSessions = (*billingportalsession.Client)(nil)
)

type stripeClient struct {
	client *client.API
}

func (s *stripeClient) CheckoutSessions() StripeCheckoutSessions {
	return s.client.CheckoutSessions
}

func (s *stripeClient) Subscriptions() StripeSubscriptions {
	return s.client.Subscriptions
}

func (s *stripeClient) BillingPortalSessions() StripeBillingPortalSessions {
	return s.client.BillingPortalSessions
}

// NewStripeClient creates Stripe client from configuration.
func NewStripeClient(log *zap.Logger, config Config) StripeClient {
	return NewStripeClientWithTransport(log, config, http.DefaultTransport)
}

// NewStripeClientWithTransport creates Stripe client that sends its requests
// through transport.
func NewStripeClientWithTransport(log *zap.Logger, config Config, transport http.RoundTripper) StripeClient {
	backendConfig := &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: NewRetryTransport(log, transport, config.Retries),
		},
		LeveledLogger: log.Sugar(),
		// Disable internal retries since we have our own retry+backoff strategy.
		MaxNetworkRetries: stripe.Int64(0),
	}
	if config.APIURL != "" {
		backendConfig.URL = stripe.String(config.APIURL)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	return &stripeClient{
		client: client.New(config.StripeSecretKey, &stripe.Backends{
			API:     backend,
			Connect: backend,
			Uploads: backend,
		}),
	}
}

// RetryConfig contains the configuration for an exponential backoff strategy when retrying Stripe API calls.
type RetryConfig struct {
	InitialBackoff time.Duration `help:"the duration of the first retry interval" default:"20ms"`
	MaxBackoff     time.Duration `help:"the maximum duration of any retry interval" default:"5s"`
	Multiplier     float64       `help:"the factor by which the retry interval will be multiplied on each iteration" default:"2"`
	MaxRetries     int64         `help:"the maximum number of times to retry a request" default:"10"`
}

// RetryTransport is an http.RoundTripper that retries Stripe API calls the
// provider marks as retryable, backing off exponentially between attempts.
type RetryTransport struct {
	log    *zap.Logger
	next   http.RoundTripper
	config RetryConfig
	clock  time2.Clock
}

// NewRetryTransport wraps next with the retry strategy in config.
func NewRetryTransport(log *zap.Logger, next http.RoundTripper, config RetryConfig) *RetryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RetryTransport{
		log:    log,
		next:   next,
		config: config,
	}
}

// TestSwapClock replaces the internal clock with the one specified for use in testing.
func (t *RetryTransport) TestSwapClock(clock time2.Clock) {
	t.clock = clock
}

// RoundTrip implements the http.RoundTripper interface.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
	}

	backoff := float64(t.config.InitialBackoff)
	for retry := int64(0); ; retry++ {
		attempt := req.Clone(ctx)
		if body != nil {
			attempt.Body = io.NopCloser(bytes.NewReader(body))
			attempt.ContentLength = int64(len(body))
		}

		resp, err := t.next.RoundTrip(attempt)
		if err != nil {
			return nil, err
		}

		if !t.shouldRetry(retry, resp) {
			return resp, nil
		}

		t.log.Debug("retrying stripe request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Int64("retry", retry+1))

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if !t.clock.Sleep(ctx, time.Duration(backoff)) {
			return nil, ctx.Err()
		}

		backoff = math.Min(backoff*t.config.Multiplier, float64(t.config.MaxBackoff))
	}
}

// shouldRetry returns whether a Stripe API call should be retried.
func (t *RetryTransport) shouldRetry(retry int64, resp *http.Response) bool {
	if retry >= t.config.MaxRetries {
		return false
	}

	switch resp.Header.Get("Stripe-Should-Retry") {
	case "true":
		return true
	case "false":
		return false
	}

	return resp.StatusCode == http.StatusTooManyRequests
}
