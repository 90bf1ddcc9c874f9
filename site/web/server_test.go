// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package web_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/common/memory"
	"storj.io/common/testcontext"

	"flashgen.io/flashgen/private/healthcheck"
	"flashgen.io/flashgen/site"
	"flashgen.io/flashgen/site/auth"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/flashcards/generator"
	"flashgen.io/flashgen/site/payments"
	"flashgen.io/flashgen/site/sitedb/sitedbtest"
	"flashgen.io/flashgen/site/web"
)

type testSite struct {
	address  string
	key      *rsa.PrivateKey
	client   *http.Client
	mock     *payments.StripeMock
	sets     *flashcards.Service
	registry *prometheus.Registry
}

func newTestSite(ctx *testcontext.Context, t *testing.T, db site.DB) *testSite {
	log := zaptest.NewLogger(t)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	authConfig := auth.Config{
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
		CookieName: "__session",
		SignInURL:  "https://accounts.flashgen.test/sign-in",
		SignUpURL:  "https://accounts.flashgen.test/sign-up",
	}
	authConfig.Cache.Expiration = time.Minute
	authConfig.Cache.Capacity = 10
	verifier, err := auth.NewVerifier(log.Named("auth"), authConfig)
	require.NoError(t, err)

	mock := payments.NewStripeMock()
	paymentsConfig := payments.Config{}
	paymentsConfig.SubscriptionCache.Expiration = time.Minute
	paymentsConfig.SubscriptionCache.Capacity = 10
	paymentsService := payments.NewService(log.Named("payments"), mock, db.Subscriptions(), paymentsConfig)

	flashcardsService := flashcards.NewService(log.Named("flashcards"), db.Flashcards(), flashcards.Config{MaxCards: 10})
	gen := generator.New(log.Named("generator"), generator.Config{})
	health := healthcheck.NewHandler(log.Named("health"), healthcheck.NewPingCheck(log, "database", time.Second, db.Ping))

	registry := prometheus.NewRegistry()
	metrics, err := web.NewMetrics(registry)
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server, err := web.NewServer(log.Named("web"), web.Config{
		Address:         listener.Addr().String(),
		ExternalAddress: "https://flashgen.test",
		BodySizeLimit:   memory.MiB,
	}, listener, verifier, flashcardsService, paymentsService, gen, health, metrics)
	require.NoError(t, err)

	ctx.Go(func() error { return server.Run(ctx) })
	t.Cleanup(func() { require.NoError(t, server.Close()) })

	return &testSite{
		address: "http://" + listener.Addr().String(),
		key:     key,
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		mock:     mock,
		sets:     flashcardsService,
		registry: registry,
	}
}

func (s *testSite) token(t *testing.T, userID string) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":   userID,
		"email": userID + "@flashgen.test",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(s.key)
	require.NoError(t, err)
	return token
}

func (s *testSite) do(ctx *testcontext.Context, t *testing.T, method, path, user string, form url.Values) (*http.Response, string) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, s.address+path, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if user != "" {
		req.AddCookie(&http.Cookie{Name: "__session", Value: s.token(t, user)})
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestLandingPage(t *testing.T) {
	sitedbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db site.DB) {
		s := newTestSite(ctx, t, db)

		resp, body := s.do(ctx, t, http.MethodGet, "/", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "text/html; charset=UTF-8", resp.Header.Get("Content-Type"))
		require.Contains(t, body, "Welcome to FlashGen")
		require.Contains(t, body, "The easiest way to create flashcards for just $1.")
		require.Contains(t, body, "Create flashcards instantly using AI.")
		require.Contains(t, body, "Organize flashcards by subject or topic.")
		require.Contains(t, body, "Just $1 for unlimited flashcards.")
		require.Contains(t, body, "$1/month")
		require.Contains(t, body, "Subscribe Now")
		require.Contains(t, body, `href="/sign-in"`)

		resp, body = s.do(ctx, t, http.MethodGet, "/", "alice", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "alice@flashgen.test")
		require.NotContains(t, body, `href="/sign-in"`)

		resp, _ = s.do(ctx, t, http.MethodGet, "/sign-in", "", nil)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "https://accounts.flashgen.test/sign-in", resp.Header.Get("Location"))

		resp, _ = s.do(ctx, t, http.MethodGet, "/sign-up", "", nil)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "https://accounts.flashgen.test/sign-up", resp.Header.Get("Location"))

		resp, body = s.do(ctx, t, http.MethodGet, "/does-not-exist", "", nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Contains(t, body, "Page not found")

		resp, body = s.do(ctx, t, http.MethodGet, "/static/style.css", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "--primary")

		resp, _ = s.do(ctx, t, http.MethodGet, "/health", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		families, err := s.registry.Gather()
		require.NoError(t, err)
		var names []string
		for _, family := range families {
			names = append(names, family.GetName())
		}
		require.Contains(t, names, "flashgen_http_requests_total")
		require.Contains(t, names, "flashgen_http_request_duration_seconds")
	})
}

func TestCheckoutPages(t *testing.T) {
	sitedbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db site.DB) {
		s := newTestSite(ctx, t, db)

		resp, _ := s.do(ctx, t, http.MethodPost, "/checkout", "alice", url.Values{"plan": {"pro"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		location := resp.Header.Get("Location")
		require.True(t, strings.HasPrefix(location, "https://checkout.stripe.test/c/pay/"), location)
		sessionID := strings.TrimPrefix(location, "https://checkout.stripe.test/c/pay/")

		resp, body := s.do(ctx, t, http.MethodGet, "/result?session_id="+sessionID, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Payment failed")

		_, err := s.mock.CompleteSession(sessionID)
		require.NoError(t, err)

		resp, body = s.do(ctx, t, http.MethodGet, "/result?session_id="+sessionID, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Thank you for your purchase!")
		require.Contains(t, body, sessionID)

		resp, body = s.do(ctx, t, http.MethodGet, "/result", "", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, body, "Session ID is required")

		resp, body = s.do(ctx, t, http.MethodPost, "/checkout", "", url.Values{"plan": {"enterprise"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, body, "unknown plan")

		resp, _ = s.do(ctx, t, http.MethodPost, "/billing", "", nil)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/sign-in", resp.Header.Get("Location"))

		resp, _ = s.do(ctx, t, http.MethodPost, "/billing", "alice", nil)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/#pricing", resp.Header.Get("Location"))
	})
}

func TestFlashcardPages(t *testing.T) {
	sitedbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db site.DB) {
		s := newTestSite(ctx, t, db)

		resp, body := s.do(ctx, t, http.MethodGet, "/flashcards", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Please sign in to view your flashcards.")

		resp, body = s.do(ctx, t, http.MethodGet, "/flashcards", "bob", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "You have no flashcard sets yet.")

		form := url.Values{
			"name":  {"Spanish & French"},
			"front": {"hola", "bonjour"},
			"back":  {"hello", "hello"},
		}
		resp, _ = s.do(ctx, t, http.MethodPost, "/generate/save", "bob", form)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/flashcard?id="+url.QueryEscape("Spanish & French"), resp.Header.Get("Location"))

		resp, body = s.do(ctx, t, http.MethodPost, "/generate/save", "bob", form)
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		require.Contains(t, body, "Flashcard collection with the same name already exists.")
		require.Contains(t, body, "bonjour")

		resp, body = s.do(ctx, t, http.MethodGet, "/flashcards", "bob", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Spanish &amp; French")
		require.Contains(t, body, "/flashcard?id=Spanish%20%26%20French")

		resp, body = s.do(ctx, t, http.MethodGet, "/flashcard?id="+url.QueryEscape("Spanish & French"), "bob", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "hola")
		require.Contains(t, body, "bonjour")
		require.Less(t, strings.Index(body, "hola"), strings.Index(body, "bonjour"))

		resp, _ = s.do(ctx, t, http.MethodGet, "/flashcard?id=missing", "bob", nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, body = s.do(ctx, t, http.MethodGet, "/flashcard?id=anything", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Please sign in to view your flashcards.")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.address+"/flashcard/delete", strings.NewReader("name=%zz"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "__session", Value: s.token(t, "bob")})
		resp, err = s.client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, _ = s.do(ctx, t, http.MethodPost, "/flashcard/delete", "bob", url.Values{"name": {"Spanish & French"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/flashcards", resp.Header.Get("Location"))

		sets, err := s.sets.ListSets(ctx, "bob")
		require.NoError(t, err)
		require.Empty(t, sets)
	})
}

func TestGeneratePages(t *testing.T) {
	sitedbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db site.DB) {
		s := newTestSite(ctx, t, db)

		resp, body := s.do(ctx, t, http.MethodGet, "/generate", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Please sign in to generate flashcards.")

		resp, _ = s.do(ctx, t, http.MethodPost, "/generate", "", url.Values{"text": {"cells"}})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, body = s.do(ctx, t, http.MethodGet, "/generate", "carol", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, `name="text"`)

		resp, body = s.do(ctx, t, http.MethodPost, "/generate", "carol", url.Values{"text": {"cells"}})
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.Contains(t, body, "cells")

		resp, body = s.do(ctx, t, http.MethodPost, "/generate/save", "carol", url.Values{"name": {"Empty"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, body, `class="error"`)
	})
}
