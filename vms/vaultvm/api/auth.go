// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/luxfi/ids"
	"github.com/luxfi/vault/utils/timer/mockable"
)

const (
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
	tokenIssuer         = "vaultd"
)

var (
	ErrAuthDisabled = errors.New("authenticated calls are disabled")
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
	ErrTokenExpired = errors.New("bearer token expired")
)

// Authenticator issues and checks the HS256 bearer tokens that carry a
// caller's address. The vault trusts the address in a valid token as the
// caller of a mutating call.
type Authenticator struct {
	secret []byte
	clock  *mockable.Clock
}

// NewAuthenticator returns an Authenticator keyed by [secret]. An empty
// secret disables authenticated calls.
func NewAuthenticator(secret string, clock *mockable.Clock) *Authenticator {
	if clock == nil {
		clock = &mockable.Clock{}
	}
	return &Authenticator{
		secret: []byte(secret),
		clock:  clock,
	}
}

func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Issue returns a token naming [caller], valid for [ttl].
func (a *Authenticator) Issue(caller ids.ShortID, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", ErrAuthDisabled
	}
	now := a.clock.Time()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   caller.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(a.secret)
}

// Caller returns the address named by the request's bearer token.
func (a *Authenticator) Caller(r *http.Request) (ids.ShortID, error) {
	if !a.Enabled() {
		return ids.ShortEmpty, ErrAuthDisabled
	}
	header := r.Header.Get(headerAuthorization)
	tokenString, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || tokenString == "" {
		return ids.ShortEmpty, ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (interface{}, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// Expiry is checked against the authenticator's clock below.
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !claims.VerifyExpiresAt(a.clock.Time(), true) {
		return ids.ShortEmpty, ErrTokenExpired
	}
	if !claims.VerifyIssuer(tokenIssuer, true) {
		return ids.ShortEmpty, fmt.Errorf("%w: issuer %q", ErrInvalidToken, claims.Issuer)
	}
	caller, err := ids.ShortFromString(claims.Subject)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w: subject: %w", ErrInvalidToken, err)
	}
	return caller, nil
}
