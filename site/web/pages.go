// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"flashgen.io/flashgen/site/auth"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/payments"
	"flashgen.io/flashgen/site/web/webapi"
)

// page is the data every template renders with.
type page struct {
	Title string
	User  *auth.User
	Error string

	Plans      []payments.Plan
	Subscribed bool

	Sets []flashcards.SetSummary
	Set  flashcards.Set

	Text  string
	Name  string
	Cards []flashcards.Card

	SessionID string
	Paid      bool
}

func newPage(r *http.Request, title string) page {
	data := page{Title: title}
	if user, err := auth.GetUser(r.Context()); err == nil {
		data.User = &user
	}
	return data
}

func (server *Server) render(w http.ResponseWriter, status int, tmpl *template.Template, data page) {
	header := w.Header()
	header.Set("Content-Type", "text/html; charset=UTF-8")
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Referrer-Policy", "same-origin")
	w.WriteHeader(status)

	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		server.log.Error("failed to execute template", zap.String("template", tmpl.Name()), zap.Error(Error.Wrap(err)))
	}
}

func (server *Server) serveNotFound(w http.ResponseWriter, r *http.Request) {
	server.render(w, http.StatusNotFound, server.pages.notFound, newPage(r, "Page not found"))
}

func (server *Server) serveInternalError(w http.ResponseWriter, r *http.Request, err error) {
	server.log.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
	server.render(w, http.StatusInternalServerError, server.pages.serverError, newPage(r, "Something went wrong"))
}

func (server *Server) index(w http.ResponseWriter, r *http.Request) {
	data := newPage(r, "FlashGen")
	data.Plans = server.payments.Plans()
	server.render(w, http.StatusOK, server.pages.index, data)
}

func (server *Server) signIn(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, server.verifier.Config().SignInURL, http.StatusFound)
}

func (server *Server) signUp(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, server.verifier.Config().SignUpURL, http.StatusFound)
}

func (server *Server) flashcardSets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	data := newPage(r, "Your flashcards")
	if data.User == nil {
		server.render(w, http.StatusOK, server.pages.flashcards, data)
		return
	}

	data.Sets, err = server.flashcards.ListSets(ctx, data.User.ID)
	if err != nil {
		server.serveInternalError(w, r, err)
		return
	}

	data.Subscribed, err = server.payments.IsSubscribed(ctx, data.User.ID)
	if err != nil {
		server.log.Warn("failed to check subscription", zap.String("user", data.User.ID), zap.Error(err))
	}

	server.render(w, http.StatusOK, server.pages.flashcards, data)
}

func (server *Server) flashcardSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	data := newPage(r, "Flashcards")
	if data.User == nil {
		server.render(w, http.StatusOK, server.pages.flashcard, data)
		return
	}

	data.Set, err = server.flashcards.GetSet(ctx, data.User.ID, r.URL.Query().Get("id"))
	switch {
	case errors.Is(err, flashcards.ErrSetNotFound), flashcards.ErrValidation.Has(err):
		server.serveNotFound(w, r)
		return
	case err != nil:
		server.serveInternalError(w, r, err)
		return
	}

	data.Title = data.Set.Name
	server.render(w, http.StatusOK, server.pages.flashcard, data)
}

func (server *Server) deleteSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	user, err := auth.GetUser(ctx)
	if err != nil {
		http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
		return
	}
	if err = server.parseForm(w, r); err != nil {
		data := newPage(r, "Your flashcards")
		data.Error = "Invalid request."
		server.render(w, http.StatusBadRequest, server.pages.flashcards, data)
		return
	}

	err = server.flashcards.DeleteSet(ctx, user.ID, r.PostForm.Get("name"))
	switch {
	case errors.Is(err, flashcards.ErrSetNotFound), flashcards.ErrValidation.Has(err):
		server.serveNotFound(w, r)
		return
	case err != nil:
		server.serveInternalError(w, r, err)
		return
	}

	http.Redirect(w, r, "/flashcards", http.StatusSeeOther)
}

func (server *Server) generatePage(w http.ResponseWriter, r *http.Request) {
	server.render(w, http.StatusOK, server.pages.generate, newPage(r, "Generate flashcards"))
}

func (server *Server) generateCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	data := newPage(r, "Generate flashcards")
	if data.User == nil {
		server.render(w, http.StatusUnauthorized, server.pages.generate, data)
		return
	}
	if err = server.parseForm(w, r); err != nil {
		data.Error = "The submitted text is too large."
		server.render(w, http.StatusBadRequest, server.pages.generate, data)
		return
	}

	data.Text = r.PostForm.Get("text")
	data.Cards, err = webapi.GenerateFor(ctx, server.generator, server.payments, *data.User, data.Text)
	if err != nil {
		status := webapi.StatusOf(err)
		if status == http.StatusInternalServerError {
			server.log.Error("failed to generate flashcards", zap.Error(err))
			data.Error = "Flashcards could not be generated, please try again."
		} else {
			data.Error = webapi.Message(err)
		}
		server.render(w, status, server.pages.generate, data)
		return
	}

	server.render(w, http.StatusOK, server.pages.generate, data)
}

func (server *Server) saveCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	data := newPage(r, "Generate flashcards")
	if data.User == nil {
		server.render(w, http.StatusUnauthorized, server.pages.generate, data)
		return
	}
	if err = server.parseForm(w, r); err != nil {
		data.Error = "The submitted flashcards are too large."
		server.render(w, http.StatusBadRequest, server.pages.generate, data)
		return
	}

	data.Name = r.PostForm.Get("name")
	data.Text = r.PostForm.Get("text")
	fronts, backs := r.PostForm["front"], r.PostForm["back"]
	for i := range fronts {
		card := flashcards.Card{Front: fronts[i]}
		if i < len(backs) {
			card.Back = backs[i]
		}
		data.Cards = append(data.Cards, card)
	}

	set, err := server.flashcards.SaveSet(ctx, data.User.ID, data.Name, data.Cards)
	if err != nil {
		status := webapi.StatusOf(err)
		if status == http.StatusInternalServerError {
			server.serveInternalError(w, r, err)
			return
		}
		data.Error = webapi.Message(err)
		server.render(w, status, server.pages.generate, data)
		return
	}

	http.Redirect(w, r, "/flashcard?id="+url.QueryEscape(set.Name), http.StatusSeeOther)
}

func (server *Server) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	data := newPage(r, "FlashGen")
	data.Plans = server.payments.Plans()
	if err = server.parseForm(w, r); err != nil {
		data.Error = "Invalid request."
		server.render(w, http.StatusBadRequest, server.pages.index, data)
		return
	}

	params := payments.CheckoutParams{
		PlanID:  r.PostForm.Get("plan"),
		BaseURL: webapi.BaseURL(r, server.config.ExternalAddress),
	}
	if data.User != nil {
		params.UserID = data.User.ID
		params.Email = data.User.Email
	}

	session, err := server.payments.CreateCheckoutSession(ctx, params)
	if err != nil {
		status := webapi.StatusOf(err)
		if status == http.StatusInternalServerError {
			server.log.Error("failed to create checkout session", zap.Error(err))
		}
		data.Error = webapi.Message(err)
		server.render(w, status, server.pages.index, data)
		return
	}

	http.Redirect(w, r, session.URL, http.StatusSeeOther)
}

func (server *Server) billing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	user, err := auth.GetUser(ctx)
	if err != nil {
		http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
		return
	}

	session, err := server.payments.CreatePortalSession(ctx, user.ID,
		webapi.BaseURL(r, server.config.ExternalAddress)+"flashcards")
	switch {
	case errors.Is(err, payments.ErrNoCustomer):
		http.Redirect(w, r, "/#pricing", http.StatusSeeOther)
		return
	case err != nil:
		server.serveInternalError(w, r, err)
		return
	}

	http.Redirect(w, r, session.URL, http.StatusSeeOther)
}

func (server *Server) result(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	data := newPage(r, "Checkout result")
	data.SessionID = r.URL.Query().Get("session_id")

	session, err := server.payments.GetCheckoutSession(ctx, data.SessionID)
	if err != nil {
		status := webapi.StatusOf(err)
		if status == http.StatusInternalServerError {
			server.log.Error("failed to retrieve checkout session", zap.String("session", data.SessionID), zap.Error(err))
		}
		data.Error = webapi.Message(err)
		server.render(w, status, server.pages.result, data)
		return
	}

	data.Paid = session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
	server.render(w, http.StatusOK, server.pages.result, data)
}

func (server *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, server.config.BodySizeLimit.Int64())
	return r.ParseForm()
}
