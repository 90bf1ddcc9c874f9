// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	// ErrInvalidWebhook is returned for webhook payloads with a missing or bad signature.
	ErrInvalidWebhook = errs.Class("invalid webhook")

	// ErrWebhookNotConfigured is returned when no webhook secret is configured.
	ErrWebhookNotConfigured = Error.New("webhook secret is not configured")
)

// HandleWebhook verifies a provider event and applies it to the stored
// subscription state. Events of other types are acknowledged and ignored.
func (service *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (err error) {
	defer mon.Task()(&ctx)(&err)

	if service.webhookSecret == "" {
		return ErrWebhookNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, service.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return ErrInvalidWebhook.Wrap(err)
	}
	if event.Data == nil {
		return ErrInvalidWebhook.New("event %s has no data", event.ID)
	}

	log := service.log.With(zap.String("event", event.ID), zap.String("type", string(event.Type)))
	eventTime := time.Unix(event.Created, 0)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return ErrInvalidWebhook.Wrap(err)
		}
		return service.checkoutCompleted(ctx, log, &session, eventTime)

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return ErrInvalidWebhook.Wrap(err)
		}
		return service.subscriptionChanged(ctx, log, &sub, eventTime)

	default:
		log.Debug("ignoring webhook event")
		return nil
	}
}

func (service *Service) checkoutCompleted(ctx context.Context, log *zap.Logger, session *stripe.CheckoutSession, eventTime time.Time) error {
	if session.Mode != stripe.CheckoutSessionModeSubscription || session.Subscription == nil {
		log.Debug("checkout without subscription", zap.String("session", session.ID))
		return nil
	}
	if session.ClientReferenceID == "" {
		log.Warn("checkout without user reference", zap.String("session", session.ID))
		return nil
	}

	sub, err := service.stripeClient.Subscriptions().Get(session.Subscription.ID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return Error.Wrap(err)
	}
	if sub.Customer == nil && session.Customer != nil {
		sub.Customer = session.Customer
	}

	return service.store(ctx, log, session.ClientReferenceID, sub, eventTime)
}

func (service *Service) subscriptionChanged(ctx context.Context, log *zap.Logger, sub *stripe.Subscription, eventTime time.Time) error {
	userID := sub.Metadata["user_id"]
	if userID == "" && sub.Customer != nil {
		existing, err := service.subscriptions.GetByCustomer(ctx, sub.Customer.ID)
		switch {
		case errors.Is(err, ErrNoSubscription):
		case err != nil:
			return Error.Wrap(err)
		default:
			userID = existing.UserID
		}
	}
	if userID == "" {
		log.Warn("subscription without known user", zap.String("subscription", sub.ID))
		return nil
	}

	return service.store(ctx, log, userID, sub, eventTime)
}

func (service *Service) store(ctx context.Context, log *zap.Logger, userID string, sub *stripe.Subscription, eventTime time.Time) error {
	existing, err := service.subscriptions.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrNoSubscription):
	case err != nil:
		return Error.Wrap(err)
	case existing.SubscriptionID == sub.ID && existing.UpdatedAt.After(eventTime):
		log.Debug("ignoring stale subscription event", zap.String("user", userID))
		return nil
	}

	record := Subscription{
		UserID:         userID,
		SubscriptionID: sub.ID,
		Status:         string(sub.Status),
		UpdatedAt:      eventTime,
	}
	if sub.Customer != nil {
		record.CustomerID = sub.Customer.ID
	}
	if record.CustomerID == "" {
		record.CustomerID = existing.CustomerID
	}
	if sub.CurrentPeriodEnd > 0 {
		record.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0)
	}

	// another subscription of the user ending must not revoke the current one.
	now := service.nowFn()
	if existing.SubscriptionID != "" && existing.SubscriptionID != record.SubscriptionID &&
		existing.Active(now) && !record.Active(now) {
		log.Debug("ignoring inactive subscription superseded by an active one",
			zap.String("user", userID),
			zap.String("subscription", record.SubscriptionID),
			zap.String("current", existing.SubscriptionID))
		return nil
	}

	if err := service.subscriptions.Upsert(ctx, record); err != nil {
		return Error.Wrap(err)
	}
	service.cache.Delete(ctx, userID)

	log.Info("subscription updated",
		zap.String("user", userID),
		zap.String("subscription", record.SubscriptionID),
		zap.String("status", record.Status))
	return nil
}
