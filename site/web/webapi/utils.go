// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package webapi implements the JSON API of the site.
package webapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/stripe/stripe-go/v81"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"flashgen.io/flashgen/site/auth"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/flashcards/generator"
	"flashgen.io/flashgen/site/payments"
)

var (
	// Error is the default error class for the API.
	Error = errs.Class("webapi")

	// ErrBadRequest is the error class for malformed requests.
	ErrBadRequest = errs.Class("bad request")

	// ErrSubscriptionRequired is returned when a feature needs an active subscription.
	ErrSubscriptionRequired = errs.Class("subscription required")

	mon = monkit.Package()
)

// errorResponse is the body of every API error.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// serveJSON writes value as JSON with status.
func serveJSON(log *zap.Logger, w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		log.Error("failed to write json response", zap.Error(Error.Wrap(err)))
	}
}

// serveJSONError writes JSON error to response output stream.
func serveJSONError(log *zap.Logger, w http.ResponseWriter, status int, err error) {
	if status == http.StatusInternalServerError {
		log.Error("returning internal server error to client", zap.Int("code", status), zap.Error(err))
	} else {
		log.Debug("returning error to client", zap.Int("code", status), zap.Error(err))
	}

	var response errorResponse
	response.Error.Message = Message(err)
	serveJSON(log, w, status, response)
}

// internalErrorMessage replaces the text of unexpected failures.
const internalErrorMessage = "Internal server error."

// Message is the client facing text of err. Payment provider messages are
// passed through, other internal failures are not.
func Message(err error) string {
	var stripeErr *stripe.Error
	switch {
	case errors.Is(err, flashcards.ErrSetExists):
		return "Flashcard collection with the same name already exists."
	case errors.As(err, &stripeErr) && stripeErr.Msg != "":
		return stripeErr.Msg
	case StatusOf(err) == http.StatusInternalServerError:
		return internalErrorMessage
	default:
		return payments.ProviderMessage(err)
	}
}

// StatusOf maps service errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case auth.ErrUnauthorized.Has(err):
		return http.StatusUnauthorized
	case ErrBadRequest.Has(err), flashcards.ErrValidation.Has(err),
		errors.Is(err, payments.ErrSessionIDRequired), errors.Is(err, payments.ErrUnknownPlan),
		payments.ErrInvalidWebhook.Has(err):
		return http.StatusBadRequest
	case ErrSubscriptionRequired.Has(err):
		return http.StatusPaymentRequired
	case errors.Is(err, flashcards.ErrSetNotFound), errors.Is(err, payments.ErrNoCustomer):
		return http.StatusNotFound
	case errors.Is(err, flashcards.ErrSetExists):
		return http.StatusConflict
	case generator.ErrNotConfigured.Has(err), errors.Is(err, payments.ErrWebhookNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON request body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrBadRequest.New("request body is required")
		}
		return ErrBadRequest.Wrap(err)
	}
	return nil
}

// BaseURL returns the absolute site URL, ending with "/", that provider
// redirects return to. The configured external address wins, then the
// origin of the Referer or Origin header, then the request itself.
func BaseURL(r *http.Request, external string) string {
	if external != "" {
		return withSlash(external)
	}

	for _, header := range []string{"Referer", "Origin"} {
		if u, err := url.Parse(r.Header.Get(header)); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host + "/"
		}
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/"
}

func withSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
