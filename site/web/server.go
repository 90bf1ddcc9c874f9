// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package web serves the FlashGen pages and mounts the JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storj.io/common/memory"

	"flashgen.io/flashgen/private/healthcheck"
	"flashgen.io/flashgen/site/auth"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/flashcards/generator"
	"flashgen.io/flashgen/site/payments"
	"flashgen.io/flashgen/site/web/webapi"
)

var (
	// Error is the error class of the web server.
	Error = errs.Class("web server")

	mon = monkit.Package()
)

const defaultReadHeaderTimeout = 15 * time.Second

//go:embed templates static
var assets embed.FS

// Config contains configuration for the site server.
type Config struct {
	Address         string      `help:"server address of the site and its API" default:"127.0.0.1:3000" testDefault:"$HOST:0"`
	ExternalAddress string      `help:"external URL of the site, used for payment redirects; empty derives it from the request" default:""`
	StaticDir       string      `help:"directory with templates/ and static/ overriding the embedded ones" default:""`
	BodySizeLimit   memory.Size `help:"maximum size of a request body" default:"1MiB"`
}

type pages struct {
	index       *template.Template
	flashcards  *template.Template
	flashcard   *template.Template
	generate    *template.Template
	result      *template.Template
	notFound    *template.Template
	serverError *template.Template
}

// Server serves the site pages, the JSON API and the health endpoints.
//
// architecture: Endpoint
type Server struct {
	log    *zap.Logger
	config Config

	verifier   *auth.Verifier
	flashcards *flashcards.Service
	payments   *payments.Service
	generator  *generator.Generator

	listener net.Listener
	server   http.Server

	pages pages
}

// NewServer creates the site server listening on listener.
func NewServer(log *zap.Logger, config Config, listener net.Listener,
	verifier *auth.Verifier, flashcardsService *flashcards.Service, paymentsService *payments.Service,
	gen *generator.Generator, health *healthcheck.Handler, metrics *Metrics) (*Server, error) {
	server := &Server{
		log:        log,
		config:     config,
		verifier:   verifier,
		flashcards: flashcardsService,
		payments:   paymentsService,
		generator:  gen,
		listener:   listener,
	}

	files, err := server.assets()
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if err := server.parseTemplates(files); err != nil {
		return nil, Error.Wrap(err)
	}
	static, err := fs.Sub(files, "static")
	if err != nil {
		return nil, Error.Wrap(err)
	}

	limit := config.BodySizeLimit.Int64()

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(server.serveNotFound)
	if metrics != nil {
		router.Use(metrics.Middleware)
	}
	router.Use(verifier.Middleware)

	health.Register(router)

	router.PathPrefix("/static/").Handler(http.StripPrefix("/static", http.FileServer(http.FS(static))))

	router.HandleFunc("/", server.index).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/sign-in", server.signIn).Methods(http.MethodGet)
	router.HandleFunc("/sign-up", server.signUp).Methods(http.MethodGet)
	router.HandleFunc("/flashcards", server.flashcardSets).Methods(http.MethodGet)
	router.HandleFunc("/flashcard", server.flashcardSet).Methods(http.MethodGet)
	router.HandleFunc("/flashcard/delete", server.deleteSet).Methods(http.MethodPost)
	router.HandleFunc("/generate", server.generatePage).Methods(http.MethodGet)
	router.HandleFunc("/generate", server.generateCards).Methods(http.MethodPost)
	router.HandleFunc("/generate/save", server.saveCards).Methods(http.MethodPost)
	router.HandleFunc("/checkout", server.checkout).Methods(http.MethodPost)
	router.HandleFunc("/billing", server.billing).Methods(http.MethodPost)
	router.HandleFunc("/result", server.result).Methods(http.MethodGet)

	checkoutController := webapi.NewCheckout(log.Named("api:checkout"), paymentsService, config.ExternalAddress)
	flashcardsController := webapi.NewFlashcards(log.Named("api:flashcards"), flashcardsService, limit)
	generateController := webapi.NewGenerate(log.Named("api:generate"), gen, paymentsService, limit)
	billingController := webapi.NewBilling(log.Named("api:billing"), paymentsService, config.ExternalAddress, limit)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/checkout_sessions", checkoutController.Create).Methods(http.MethodPost)
	api.HandleFunc("/checkout_sessions", checkoutController.Get).Methods(http.MethodGet)
	api.HandleFunc("/flashcards", flashcardsController.List).Methods(http.MethodGet)
	api.HandleFunc("/flashcards", flashcardsController.Create).Methods(http.MethodPost)
	api.HandleFunc("/flashcards/{name}", flashcardsController.Get).Methods(http.MethodGet)
	api.HandleFunc("/flashcards/{name}", flashcardsController.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/generate", generateController.Generate).Methods(http.MethodPost)
	api.HandleFunc("/billing/portal", billingController.Portal).Methods(http.MethodPost)
	api.HandleFunc("/webhooks/stripe", billingController.Webhook).Methods(http.MethodPost)

	server.server = http.Server{
		Handler:           router,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	log.Debug("site configured", zap.Stringer("address", listener.Addr()))

	return server, nil
}

// assets returns the embedded templates and static files, or the ones in
// the configured static directory.
func (server *Server) assets() (fs.FS, error) {
	if server.config.StaticDir == "" {
		return assets, nil
	}
	if _, err := os.Stat(server.config.StaticDir); err != nil {
		return nil, err
	}
	return os.DirFS(server.config.StaticDir), nil
}

func (server *Server) parseTemplates(files fs.FS) (err error) {
	parse := func(page string) (*template.Template, error) {
		return template.New(page).ParseFS(files, "templates/base.html", "templates/"+page)
	}

	if server.pages.index, err = parse("index.html"); err != nil {
		return err
	}
	if server.pages.flashcards, err = parse("flashcards.html"); err != nil {
		return err
	}
	if server.pages.flashcard, err = parse("flashcard.html"); err != nil {
		return err
	}
	if server.pages.generate, err = parse("generate.html"); err != nil {
		return err
	}
	if server.pages.result, err = parse("result.html"); err != nil {
		return err
	}
	if server.pages.notFound, err = parse("404.html"); err != nil {
		return err
	}
	if server.pages.serverError, err = parse("500.html"); err != nil {
		return err
	}
	return nil
}

// Run starts the server and stops it when ctx is canceled.
func (server *Server) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	ctx, cancel := context.WithCancel(ctx)
	var group errgroup.Group
	group.Go(func() error {
		<-ctx.Done()
		return Error.Wrap(server.server.Shutdown(context.Background()))
	})
	group.Go(func() error {
		defer cancel()
		err := server.server.Serve(server.listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return Error.Wrap(err)
	})

	return group.Wait()
}

// Close closes the server and its listener.
func (server *Server) Close() error {
	return Error.Wrap(server.server.Close())
}

// Addr returns the address the server listens on.
func (server *Server) Addr() net.Addr {
	return server.listener.Addr()
}
