// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package auth

import (
	"context"
	"crypto/rsa"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"flashgen.io/flashgen/shared/lrucache"
)

// sessionClaims are the claims of a provider session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	AuthorizedParty string `json:"azp,omitempty"`
	Email           string `json:"email,omitempty"`
}

type verified struct {
	user    User
	expires time.Time
}

// Verifier validates session tokens and resolves them to users.
type Verifier struct {
	log     *zap.Logger
	config  Config
	key     *rsa.PublicKey
	parser  *jwt.Parser
	parties []string
	cache   *lrucache.ExpiringLRU[verified]
}

// NewVerifier creates a verifier from config. Without a public key every
// token is rejected, unless an insecure development user is configured.
func NewVerifier(log *zap.Logger, config Config) (*Verifier, error) {
	verifier := &Verifier{
		log:     log,
		config:  config,
		parties: config.parties(),
		cache: lrucache.New[verified](lrucache.Options{
			Name:       "auth:sessions",
			Expiration: config.Cache.Expiration,
			Capacity:   config.Cache.Capacity,
		}),
	}

	keyPEM := config.PublicKey
	if keyPEM == "" && config.PublicKeyPath != "" {
		data, err := os.ReadFile(config.PublicKeyPath)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		keyPEM = string(data)
	}
	if keyPEM != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(keyPEM))
		if err != nil {
			return nil, Error.New("invalid public key: %v", err)
		}
		verifier.key = key
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	verifier.parser = jwt.NewParser(opts...)

	if config.InsecureDevUser != "" {
		log.Warn("all requests are authenticated as the development user", zap.String("user", config.InsecureDevUser))
	}

	return verifier, nil
}

// Config returns the verifier configuration.
func (verifier *Verifier) Config() Config { return verifier.config }

// Verify validates the session token and returns its user.
func (verifier *Verifier) Verify(ctx context.Context, token string) (_ User, err error) {
	defer mon.Task()(&ctx)(&err)

	if verifier.key == nil {
		return User{}, ErrUnauthorized.New("session verification is not configured")
	}
	if token == "" {
		return User{}, ErrUnauthorized.New("missing session token")
	}

	entry, err := verifier.cache.Get(ctx, token, func() (verified, error) {
		return verifier.parse(token)
	})
	if err != nil {
		return User{}, err
	}
	if !time.Now().Before(entry.expires.Add(verifier.config.Leeway)) {
		verifier.cache.Delete(ctx, token)
		return User{}, ErrUnauthorized.New("session expired")
	}
	return entry.user, nil
}

func (verifier *Verifier) parse(token string) (verified, error) {
	var claims sessionClaims
	_, err := verifier.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return verifier.key, nil
	})
	if err != nil {
		return verified{}, ErrUnauthorized.Wrap(err)
	}

	if claims.Subject == "" {
		return verified{}, ErrUnauthorized.New("token has no subject")
	}
	if len(verifier.parties) > 0 && claims.AuthorizedParty != "" && !slices.Contains(verifier.parties, claims.AuthorizedParty) {
		return verified{}, ErrUnauthorized.New("unauthorized party %q", claims.AuthorizedParty)
	}

	return verified{
		user:    User{ID: claims.Subject, Email: claims.Email},
		expires: claims.ExpiresAt.Time,
	}, nil
}

// Authenticate returns the user of the request, if any.
func (verifier *Verifier) Authenticate(r *http.Request) (User, bool) {
	if verifier.config.InsecureDevUser != "" {
		return User{ID: verifier.config.InsecureDevUser}, true
	}

	token := verifier.token(r)
	if token == "" {
		return User{}, false
	}

	user, err := verifier.Verify(r.Context(), token)
	if err != nil {
		verifier.log.Debug("rejected session token", zap.Error(err))
		return User{}, false
	}
	return user, true
}

// token returns the session token from the Authorization header or the
// session cookie.
func (verifier *Verifier) token(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(verifier.config.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Middleware attaches the signed-in user, if any, to the request context.
func (verifier *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := verifier.Authenticate(r); ok {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}
