// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/common/testcontext"

	"flashgen.io/flashgen/site/auth"
)

type signer struct {
	key *rsa.PrivateKey
	pem string
}

func newSigner(t *testing.T) signer {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	return signer{
		key: key,
		pem: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
	}
}

func (s signer) sign(t *testing.T, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	require.NoError(t, err)
	return token
}

func validClaims(subject string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub": subject,
		"iss": "https://clerk.flashgen.test",
		"azp": "https://flashgen.test",
		"iat": now.Unix(),
		"nbf": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

func newVerifier(t *testing.T, s signer) *auth.Verifier {
	config := auth.Config{
		PublicKey:         s.pem,
		Issuer:            "https://clerk.flashgen.test",
		AuthorizedParties: "https://flashgen.test, http://localhost:3000",
		CookieName:        "__session",
		Leeway:            time.Second,
	}
	config.Cache.Expiration = time.Minute
	config.Cache.Capacity = 10

	verifier, err := auth.NewVerifier(zaptest.NewLogger(t), config)
	require.NoError(t, err)
	return verifier
}

func TestVerify(t *testing.T) {
	ctx := testcontext.New(t)
	s := newSigner(t)
	verifier := newVerifier(t, s)

	claims := validClaims("user_1")
	claims["email"] = "learner@flashgen.test"
	user, err := verifier.Verify(ctx, s.sign(t, claims))
	require.NoError(t, err)
	require.Equal(t, auth.User{ID: "user_1", Email: "learner@flashgen.test"}, user)

	// cached tokens verify the same way.
	user, err = verifier.Verify(ctx, s.sign(t, claims))
	require.NoError(t, err)
	require.Equal(t, "user_1", user.ID)

	other := newSigner(t)

	for _, tt := range []struct {
		name  string
		token func() string
	}{
		{name: "empty", token: func() string { return "" }},
		{name: "garbage", token: func() string { return "not.a.token" }},
		{name: "other key", token: func() string { return other.sign(t, validClaims("user_1")) }},
		{name: "expired", token: func() string {
			claims := validClaims("user_1")
			claims["exp"] = time.Now().Add(-time.Hour).Unix()
			return s.sign(t, claims)
		}},
		{name: "no expiry", token: func() string {
			claims := validClaims("user_1")
			delete(claims, "exp")
			return s.sign(t, claims)
		}},
		{name: "not yet valid", token: func() string {
			claims := validClaims("user_1")
			claims["nbf"] = time.Now().Add(time.Hour).Unix()
			return s.sign(t, claims)
		}},
		{name: "wrong issuer", token: func() string {
			claims := validClaims("user_1")
			claims["iss"] = "https://evil.test"
			return s.sign(t, claims)
		}},
		{name: "wrong party", token: func() string {
			claims := validClaims("user_1")
			claims["azp"] = "https://evil.test"
			return s.sign(t, claims)
		}},
		{name: "no subject", token: func() string {
			claims := validClaims("")
			delete(claims, "sub")
			return s.sign(t, claims)
		}},
		{name: "hmac", token: func() string {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("user_1")).SignedString([]byte(s.pem))
			require.NoError(t, err)
			return token
		}},
	} {
		_, err := verifier.Verify(ctx, tt.token())
		require.Error(t, err, tt.name)
		require.True(t, auth.ErrUnauthorized.Has(err), tt.name)
	}
}

func TestNewVerifier(t *testing.T) {
	ctx := testcontext.New(t)

	_, err := auth.NewVerifier(zaptest.NewLogger(t), auth.Config{PublicKey: "not a key"})
	require.Error(t, err)

	_, err = auth.NewVerifier(zaptest.NewLogger(t), auth.Config{PublicKeyPath: ctx.File("missing.pem")})
	require.Error(t, err)

	unconfigured, err := auth.NewVerifier(zaptest.NewLogger(t), auth.Config{})
	require.NoError(t, err)
	_, err = unconfigured.Verify(ctx, newSigner(t).sign(t, validClaims("user_1")))
	require.True(t, auth.ErrUnauthorized.Has(err))
}

func TestMiddleware(t *testing.T) {
	s := newSigner(t)
	verifier := newVerifier(t, s)

	handler := verifier.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.GetUser(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(user.ID))
	}))

	serve := func(mutate func(r *http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/flashcards", nil)
		mutate(req)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(func(r *http.Request) {})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "__session", Value: s.sign(t, validClaims("user_cookie"))})
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user_cookie", rec.Body.String())

	rec = serve(func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+s.sign(t, validClaims("user_bearer")))
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user_bearer", rec.Body.String())

	rec = serve(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "__session", Value: "tampered"})
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	dev, err := auth.NewVerifier(zaptest.NewLogger(t), auth.Config{InsecureDevUser: "dev-user"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/flashcards", nil)
	user, ok := dev.Authenticate(req)
	require.True(t, ok)
	require.Equal(t, "dev-user", user.ID)
}

func TestGetUser(t *testing.T) {
	ctx := testcontext.New(t)

	_, err := auth.GetUser(ctx)
	require.True(t, auth.ErrUnauthorized.Has(err))

	user, err := auth.GetUser(auth.WithUser(ctx, auth.User{ID: "user_1"}))
	require.NoError(t, err)
	require.Equal(t, "user_1", user.ID)
}
