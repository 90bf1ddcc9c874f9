// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package auth verifies the session tokens issued by the hosted
// authentication provider and carries the signed-in user on the request
// context.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
)

var (
	// Error is the default error class for auth.
	Error = errs.Class("auth")

	// ErrUnauthorized is the error class for requests without a valid session.
	ErrUnauthorized = errs.Class("unauthorized")

	mon = monkit.Package()
)

// Config contains the session verification settings.
type Config struct {
	PublicKey         string        `help:"PEM encoded RSA public key of the authentication provider" default:""`
	PublicKeyPath     string        `help:"path to the PEM encoded RSA public key, used when public-key is empty" default:""`
	Issuer            string        `help:"expected session token issuer, empty accepts any" default:""`
	AuthorizedParties string        `help:"comma separated list of accepted azp claims, empty accepts any" default:""`
	CookieName        string        `help:"name of the session cookie" default:"__session"`
	Leeway            time.Duration `help:"allowed clock skew when validating token times" default:"5s"`
	SignInURL         string        `help:"hosted sign-in page" default:"https://accounts.flashgen.io/sign-in"`
	SignUpURL         string        `help:"hosted sign-up page" default:"https://accounts.flashgen.io/sign-up"`
	InsecureDevUser   string        `help:"treat every request as signed in as this user, never use in production" default:"" devDefault:"dev-user" releaseDefault:""`

	Cache struct {
		Expiration time.Duration `help:"how long a verified token is cached, bounded by the token expiry" default:"1m"`
		Capacity   int           `help:"how many verified tokens are cached" default:"10000"`
	}
}

// parties returns the accepted authorized parties.
func (config Config) parties() []string {
	var parties []string
	for _, party := range strings.Split(config.AuthorizedParties, ",") {
		if party = strings.TrimSpace(party); party != "" {
			parties = append(parties, party)
		}
	}
	return parties
}

// User is the signed-in user of a request.
type User struct {
	ID    string
	Email string
}

type userKey struct{}

// WithUser creates context with user.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser gets the signed-in user from context.
func GetUser(ctx context.Context) (User, error) {
	user, ok := ctx.Value(userKey{}).(User)
	if !ok || user.ID == "" {
		return User{}, ErrUnauthorized.New("not signed in")
	}
	return user, nil
}
