// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package webapi

import (
	"net/http"

	"go.uber.org/zap"

	"flashgen.io/flashgen/site/auth"
	"flashgen.io/flashgen/site/payments"
)

// Checkout is an api controller that exposes the hosted checkout sessions.
type Checkout struct {
	log             *zap.Logger
	service         *payments.Service
	externalAddress string
}

// NewCheckout is a constructor for the checkout controller.
func NewCheckout(log *zap.Logger, service *payments.Service, externalAddress string) *Checkout {
	return &Checkout{
		log:             log,
		service:         service,
		externalAddress: externalAddress,
	}
}

// Create creates a subscription checkout session and returns it.
func (checkout *Checkout) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	params := payments.CheckoutParams{
		PlanID:  r.URL.Query().Get("plan"),
		BaseURL: BaseURL(r, checkout.externalAddress),
	}
	if user, userErr := auth.GetUser(ctx); userErr == nil {
		params.UserID = user.ID
		params.Email = user.Email
	}

	session, err := checkout.service.CreateCheckoutSession(ctx, params)
	if err != nil {
		status := http.StatusInternalServerError
		if StatusOf(err) == http.StatusBadRequest {
			status = http.StatusBadRequest
		}
		serveJSONError(checkout.log, w, status, err)
		return
	}

	serveJSON(checkout.log, w, http.StatusOK, session)
}

// Get retrieves the checkout session named by the session_id query parameter.
func (checkout *Checkout) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	session, err := checkout.service.GetCheckoutSession(ctx, r.URL.Query().Get("session_id"))
	if err != nil {
		status := http.StatusInternalServerError
		if StatusOf(err) == http.StatusBadRequest {
			status = http.StatusBadRequest
		}
		serveJSONError(checkout.log, w, status, err)
		return
	}

	serveJSON(checkout.log, w, http.StatusOK, session)
}
