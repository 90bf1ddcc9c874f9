// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package site composes the FlashGen services and servers into a peer.
package site

import (
	"context"
	"errors"
	"net"
	"runtime/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flashgen.io/flashgen/private/debug"
	"flashgen.io/flashgen/private/healthcheck"
	"flashgen.io/flashgen/private/lifecycle"
	"flashgen.io/flashgen/shared/rediscache"
	"flashgen.io/flashgen/site/auth"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/flashcards/generator"
	"flashgen.io/flashgen/site/payments"
	"flashgen.io/flashgen/site/web"
)

var (
	mon = monkit.Package()

	// Error is the error class of the peer.
	Error = errs.Class("site")
)

// DB is the master database for the site.
//
// architecture: Master Database
type DB interface {
	// MigrateToLatest initializes the database.
	MigrateToLatest(ctx context.Context) error
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	// Close closes the database.
	Close() error

	// Flashcards returns the flashcard sets storage.
	Flashcards() flashcards.DB
	// Subscriptions returns the subscription state storage.
	Subscriptions() payments.SubscriptionsDB
}

// Config is the global configuration for the site.
type Config struct {
	Debug debug.Config
	Web   web.Config

	Auth       auth.Config
	Payments   payments.Config
	Flashcards flashcards.Config
	Generator  generator.Config

	Health struct {
		Timeout time.Duration `help:"timeout of a single dependency health check" default:"5s"`
	}
}

// Peer is the FlashGen site process.
//
// architecture: Peer
type Peer struct {
	Log *zap.Logger
	DB  DB

	Servers *lifecycle.Group

	Metrics struct {
		Registry *prometheus.Registry
		HTTP     *web.Metrics
	}

	Debug struct {
		Listener net.Listener
		Server   *debug.Server
	}

	Auth struct {
		Verifier *auth.Verifier
	}

	Payments struct {
		Client  payments.StripeClient
		Redis   *redis.Client
		Service *payments.Service
	}

	Flashcards struct {
		Service   *flashcards.Service
		Generator *generator.Generator
	}

	Health struct {
		Handler *healthcheck.Handler
	}

	Web struct {
		Listener net.Listener
		Server   *web.Server
	}
}

// NewPeer creates a new site peer.
func NewPeer(log *zap.Logger, db DB, config *Config) (*Peer, error) {
	peer := &Peer{
		Log: log,
		DB:  db,

		Servers: lifecycle.NewGroup(log.Named("servers")),
	}

	{ // setup metrics
		peer.Metrics.Registry = debug.NewRegistry()

		var err error
		peer.Metrics.HTTP, err = web.NewMetrics(peer.Metrics.Registry)
		if err != nil {
			return nil, errs.Combine(err, peer.Close())
		}
	}

	{ // setup debug
		if config.Debug.Address != "" {
			listener, err := net.Listen("tcp", config.Debug.Address)
			if err != nil {
				withoutStack := errors.New(err.Error())
				peer.Log.Debug("failed to start debug endpoints", zap.Error(withoutStack))
			} else {
				peer.Debug.Listener = listener
				peer.Debug.Server = debug.NewServer(log.Named("debug"), listener, peer.Metrics.Registry, monkit.Default)
				peer.Servers.Add(lifecycle.Item{
					Name:  "debug",
					Run:   peer.Debug.Server.Run,
					Close: peer.Debug.Server.Close,
				})
			}
		}
	}

	{ // setup auth
		var err error
		peer.Auth.Verifier, err = auth.NewVerifier(log.Named("auth"), config.Auth)
		if err != nil {
			return nil, errs.Combine(err, peer.Close())
		}
	}

	{ // setup payments
		switch config.Payments.Provider {
		case "stripe":
			if config.Payments.StripeSecretKey == "" {
				return nil, errs.Combine(Error.New("payments.stripe-secret-key is required for the stripe provider"), peer.Close())
			}
			peer.Payments.Client = payments.NewStripeClient(log.Named("payments:stripe:client"), config.Payments)
		case "mock", "":
			log.Warn("using the in-memory payments provider, checkouts never reach a payment processor")
			peer.Payments.Client = payments.NewStripeMock()
		default:
			return nil, errs.Combine(Error.New("unknown payments provider %q", config.Payments.Provider), peer.Close())
		}

		if address := config.Payments.SubscriptionCache.Redis; address != "" {
			var err error
			peer.Payments.Redis, err = rediscache.Open(context.TODO(), address)
			if err != nil {
				return nil, errs.Combine(err, peer.Close())
			}

			cache := rediscache.New[bool](log.Named("payments:cache"), peer.Payments.Redis, rediscache.Options{
				Prefix:     "flashgen:subscribed:",
				Expiration: config.Payments.SubscriptionCache.Expiration,
			})
			peer.Payments.Service = payments.NewServiceWithCache(
				log.Named("payments:service"),
				peer.Payments.Client,
				peer.DB.Subscriptions(),
				config.Payments,
				cache,
			)
		} else {
			peer.Payments.Service = payments.NewService(
				log.Named("payments:service"),
				peer.Payments.Client,
				peer.DB.Subscriptions(),
				config.Payments,
			)
		}
	}

	{ // setup flashcards
		peer.Flashcards.Service = flashcards.NewService(log.Named("flashcards"), peer.DB.Flashcards(), config.Flashcards)
		peer.Flashcards.Generator = generator.New(log.Named("flashcards:generator"), config.Generator)
		if !peer.Flashcards.Generator.Configured() {
			log.Warn("flashcard generation is disabled, set generator.api-key to enable it")
		}
	}

	{ // setup health checks
		peer.Health.Handler = healthcheck.NewHandler(log.Named("health"),
			healthcheck.NewPingCheck(log.Named("health:database"), "database", config.Health.Timeout, peer.DB.Ping),
		)
	}

	{ // setup web
		var err error
		peer.Web.Listener, err = net.Listen("tcp", config.Web.Address)
		if err != nil {
			return nil, errs.Combine(Error.Wrap(err), peer.Close())
		}

		peer.Web.Server, err = web.NewServer(
			log.Named("web"),
			config.Web,
			peer.Web.Listener,
			peer.Auth.Verifier,
			peer.Flashcards.Service,
			peer.Payments.Service,
			peer.Flashcards.Generator,
			peer.Health.Handler,
			peer.Metrics.HTTP,
		)
		if err != nil {
			return nil, errs.Combine(err, peer.Web.Listener.Close(), peer.Close())
		}

		peer.Servers.Add(lifecycle.Item{
			Name:  "web",
			Run:   peer.Web.Server.Run,
			Close: peer.Web.Server.Close,
		})
	}

	return peer, nil
}

// Run runs the site until it's either closed or it errors.
func (peer *Peer) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	group, ctx := errgroup.WithContext(ctx)

	pprof.Do(ctx, pprof.Labels("subsystem", "site"), func(ctx context.Context) {
		peer.Servers.Run(ctx, group)

		pprof.Do(ctx, pprof.Labels("name", "subsystem-wait"), func(ctx context.Context) {
			err = group.Wait()
		})
	})
	return err
}

// Close closes all the resources.
func (peer *Peer) Close() error {
	var errlist errs.Group
	errlist.Add(peer.Servers.Close())
	if peer.Payments.Redis != nil {
		errlist.Add(peer.Payments.Redis.Close())
	}
	return errlist.Err()
}

// Addr returns the address of the site server.
func (peer *Peer) Addr() string {
	return peer.Web.Listener.Addr().String()
}
