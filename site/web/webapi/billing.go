// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package webapi

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"flashgen.io/flashgen/site/auth"
	"flashgen.io/flashgen/site/payments"
)

// Billing is an api controller for the billing portal and provider webhooks.
type Billing struct {
	log             *zap.Logger
	service         *payments.Service
	externalAddress string
	bodySizeLimit   int64
}

// NewBilling is a constructor for the billing controller.
func NewBilling(log *zap.Logger, service *payments.Service, externalAddress string, bodySizeLimit int64) *Billing {
	return &Billing{
		log:             log,
		service:         service,
		externalAddress: externalAddress,
		bodySizeLimit:   bodySizeLimit,
	}
}

// Portal creates a billing portal session and returns its URL.
func (billing *Billing) Portal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	user, err := auth.GetUser(ctx)
	if err != nil {
		serveJSONError(billing.log, w, http.StatusUnauthorized, err)
		return
	}

	session, err := billing.service.CreatePortalSession(ctx, user.ID, BaseURL(r, billing.externalAddress)+"flashcards")
	if err != nil {
		serveJSONError(billing.log, w, StatusOf(err), err)
		return
	}

	serveJSON(billing.log, w, http.StatusOK, struct {
		URL string `json:"url"`
	}{session.URL})
}

// Webhook applies a signed provider event.
func (billing *Billing) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, billing.bodySizeLimit))
	if err != nil {
		serveJSONError(billing.log, w, http.StatusBadRequest, ErrBadRequest.Wrap(err))
		return
	}

	err = billing.service.HandleWebhook(ctx, payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		serveJSONError(billing.log, w, StatusOf(err), err)
		return
	}

	serveJSON(billing.log, w, http.StatusOK, struct {
		Received bool `json:"received"`
	}{true})
}
