// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package webapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"flashgen.io/flashgen/site/auth"
	"flashgen.io/flashgen/site/flashcards"
)

// Flashcards is an api controller that exposes the flashcard sets of the
// signed-in user.
type Flashcards struct {
	log           *zap.Logger
	service       *flashcards.Service
	bodySizeLimit int64
}

// NewFlashcards is a constructor for the flashcards controller.
func NewFlashcards(log *zap.Logger, service *flashcards.Service, bodySizeLimit int64) *Flashcards {
	return &Flashcards{
		log:           log,
		service:       service,
		bodySizeLimit: bodySizeLimit,
	}
}

// List returns the names of the user's sets.
func (controller *Flashcards) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	user, err := auth.GetUser(ctx)
	if err != nil {
		serveJSONError(controller.log, w, http.StatusUnauthorized, err)
		return
	}

	sets, err := controller.service.ListSets(ctx, user.ID)
	if err != nil {
		serveJSONError(controller.log, w, StatusOf(err), err)
		return
	}

	serveJSON(controller.log, w, http.StatusOK, struct {
		Flashcards []flashcards.SetSummary `json:"flashcards"`
	}{sets})
}

// Create saves a new set.
func (controller *Flashcards) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	user, err := auth.GetUser(ctx)
	if err != nil {
		serveJSONError(controller.log, w, http.StatusUnauthorized, err)
		return
	}

	var request struct {
		Name       string            `json:"name"`
		Flashcards []flashcards.Card `json:"flashcards"`
	}
	if err = decodeJSON(w, r, controller.bodySizeLimit, &request); err != nil {
		serveJSONError(controller.log, w, http.StatusBadRequest, err)
		return
	}

	set, err := controller.service.SaveSet(ctx, user.ID, request.Name, request.Flashcards)
	if err != nil {
		serveJSONError(controller.log, w, StatusOf(err), err)
		return
	}

	serveJSON(controller.log, w, http.StatusCreated, set)
}

// Get returns a set with its cards.
func (controller *Flashcards) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	user, err := auth.GetUser(ctx)
	if err != nil {
		serveJSONError(controller.log, w, http.StatusUnauthorized, err)
		return
	}

	set, err := controller.service.GetSet(ctx, user.ID, mux.Vars(r)["name"])
	if err != nil {
		serveJSONError(controller.log, w, StatusOf(err), err)
		return
	}

	serveJSON(controller.log, w, http.StatusOK, set)
}

// Delete removes a set.
func (controller *Flashcards) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	user, err := auth.GetUser(ctx)
	if err != nil {
		serveJSONError(controller.log, w, http.StatusUnauthorized, err)
		return
	}

	err = controller.service.DeleteSet(ctx, user.ID, mux.Vars(r)["name"])
	if err != nil {
		serveJSONError(controller.log, w, StatusOf(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
