// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package healthcheck reports whether the services the site depends on are
// reachable.
package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var mon = monkit.Package()

var (
	// Error class for this package.
	Error = errs.Class("healthcheck")
	// ErrCheckExists is returned when a check with the same name already exists.
	ErrCheckExists = Error.New("check with name already exists")
)

// HealthCheck is an interface that defines the methods for a health check.
type HealthCheck interface {
	// Healthy returns true if the service is healthy.
	Healthy(ctx context.Context) bool
	// Name returns the name of the service being checked.
	Name() string
}

// PingCheck is healthy when its ping function succeeds within the timeout.
type PingCheck struct {
	log     *zap.Logger
	name    string
	timeout time.Duration
	ping    func(ctx context.Context) error
}

// NewPingCheck creates a check named name that calls ping.
func NewPingCheck(log *zap.Logger, name string, timeout time.Duration, ping func(ctx context.Context) error) *PingCheck {
	return &PingCheck{log: log, name: name, timeout: timeout, ping: ping}
}

// Name implements HealthCheck.
func (check *PingCheck) Name() string { return check.name }

// Healthy implements HealthCheck.
func (check *PingCheck) Healthy(ctx context.Context) bool {
	if check.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, check.timeout)
		defer cancel()
	}
	if err := check.ping(ctx); err != nil {
		check.log.Warn("health check failed", zap.String("check", check.name), zap.Error(err))
		return false
	}
	return true
}

// Handler serves the health endpoints.
type Handler struct {
	log *zap.Logger

	mu     sync.RWMutex
	checks map[string]HealthCheck
}

// NewHandler creates a new health handler.
func NewHandler(log *zap.Logger, checks ...HealthCheck) *Handler {
	checkMap := make(map[string]HealthCheck, len(checks))
	for _, check := range checks {
		checkMap[check.Name()] = check
	}
	return &Handler{
		log:    log,
		checks: checkMap,
	}
}

// AddCheck adds a health check to the handler.
func (h *Handler) AddCheck(check HealthCheck) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.checks[check.Name()]; ok {
		return ErrCheckExists
	}
	h.checks[check.Name()] = check
	return nil
}

// Register adds /health and /health/{name} to router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/health", h.handleAll).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/health/{name}", h.handleSingle).Methods(http.MethodGet, http.MethodHead)
}

func (h *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]bool, len(names))
	allHealthy := true
	for _, name := range names {
		h.mu.RLock()
		check := h.checks[name]
		h.mu.RUnlock()

		healthy := check.Healthy(ctx)
		allHealthy = allHealthy && healthy
		results[name] = healthy
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, results)
}

func (h *Handler) handleSingle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	defer mon.Task()(&ctx)(&err)

	name := mux.Vars(r)["name"]

	h.mu.RLock()
	check, ok := h.checks[name]
	h.mu.RUnlock()
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown check name"})
		return
	}

	healthy := check.Healthy(ctx)
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, map[string]bool{"healthy": healthy})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.log.Error("Failed to encode health check response", zap.Error(err))
	}
}
