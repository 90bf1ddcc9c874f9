// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package debug serves the operator endpoints: prometheus metrics, monkit
// traces and pprof profiles.
package debug

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/spacemonkeygo/monkit/v3/present"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Error is the error class of the debug server.
var Error = errs.Class("debug")

// Config defines the debug listener.
type Config struct {
	Address string `help:"address to listen on for debug endpoints, empty disables them" default:"127.0.0.1:0" releaseDefault:"127.0.0.1:0"`
}

// Server serves the debug endpoints.
type Server struct {
	log      *zap.Logger
	listener net.Listener
	server   http.Server
}

// NewRegistry returns a prometheus registry with the process and Go runtime
// collectors registered.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// NewServer creates a debug server on listener exposing registry and the
// monkit registry.
func NewServer(log *zap.Logger, listener net.Listener, registry *prometheus.Registry, mon *monkit.Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.Handle("/mon/", http.StripPrefix("/mon", present.HTTP(mon)))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	server := &Server{
		log:      log,
		listener: listener,
	}
	server.server.Handler = mux
	return server
}

// Addr returns the address the server listens on.
func (server *Server) Addr() net.Addr { return server.listener.Addr() }

// Run serves until ctx is canceled.
func (server *Server) Run(ctx context.Context) error {
	server.log.Debug("debug endpoints started", zap.Stringer("address", server.listener.Addr()))

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
