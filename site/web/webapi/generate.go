// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package webapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"flashgen.io/flashgen/site/auth"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/flashcards/generator"
	"flashgen.io/flashgen/site/payments"
)

// Generate is an api controller that creates flashcards from text.
type Generate struct {
	log           *zap.Logger
	generator     *generator.Generator
	payments      *payments.Service
	bodySizeLimit int64
}

// NewGenerate is a constructor for the generate controller.
func NewGenerate(log *zap.Logger, generator *generator.Generator, payments *payments.Service, bodySizeLimit int64) *Generate {
	return &Generate{
		log:           log,
		generator:     generator,
		payments:      payments,
		bodySizeLimit: bodySizeLimit,
	}
}

// Generate returns the cards generated for the posted text.
func (controller *Generate) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	user, err := auth.GetUser(ctx)
	if err != nil {
		serveJSONError(controller.log, w, http.StatusUnauthorized, err)
		return
	}

	var request struct {
		Text string `json:"text"`
	}
	if err = decodeJSON(w, r, controller.bodySizeLimit, &request); err != nil {
		serveJSONError(controller.log, w, http.StatusBadRequest, err)
		return
	}

	cards, err := GenerateFor(ctx, controller.generator, controller.payments, user, request.Text)
	if err != nil {
		serveJSONError(controller.log, w, StatusOf(err), err)
		return
	}

	serveJSON(controller.log, w, http.StatusOK, struct {
		Flashcards []flashcards.Card `json:"flashcards"`
	}{cards})
}

// GenerateFor generates cards for the user, enforcing the subscription
// requirement when it is configured.
func GenerateFor(ctx context.Context, gen *generator.Generator, service *payments.Service, user auth.User, text string) ([]flashcards.Card, error) {
	if gen.Config().RequireSubscription {
		subscribed, err := service.IsSubscribed(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if !subscribed {
			return nil, ErrSubscriptionRequired.New("an active subscription is required to generate flashcards")
		}
	}
	return gen.Generate(ctx, text)
}
