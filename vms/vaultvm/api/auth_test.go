// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
	"github.com/luxfi/vault/utils/timer/mockable"
)

func newBearerRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/ext/vault", nil)
	if token != "" {
		r.Header.Set(headerAuthorization, bearerPrefix+token)
	}
	return r
}

func TestAuthenticatorRoundTrip(t *testing.T) {
	require := require.New(t)

	clock := &mockable.Clock{}
	clock.Set(time.Unix(1_700_000_000, 0))
	a := NewAuthenticator("secret", clock)
	require.True(a.Enabled())

	caller := ids.GenerateTestShortID()
	token, err := a.Issue(caller, time.Minute)
	require.NoError(err)

	got, err := a.Caller(newBearerRequest(token))
	require.NoError(err)
	require.Equal(caller, got)

	clock.Set(clock.Time().Add(time.Minute + time.Second))
	_, err = a.Caller(newBearerRequest(token))
	require.ErrorIs(err, ErrTokenExpired)
}

func TestAuthenticatorRejects(t *testing.T) {
	clock := &mockable.Clock{}
	clock.Set(time.Unix(1_700_000_000, 0))
	a := NewAuthenticator("secret", clock)
	other := NewAuthenticator("other", clock)

	foreign, err := other.Issue(ids.GenerateTestShortID(), time.Minute)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   ids.GenerateTestShortID().String(),
		ExpiresAt: jwt.NewNumericDate(clock.Time().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "not-an-address",
		ExpiresAt: jwt.NewNumericDate(clock.Time().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name        string
		token       string
		expectedErr error
	}{
		{
			name:        "missing",
			expectedErr: ErrMissingToken,
		},
		{
			name:        "garbage",
			token:       "not.a.token",
			expectedErr: ErrInvalidToken,
		},
		{
			name:        "wrong secret",
			token:       foreign,
			expectedErr: ErrInvalidToken,
		},
		{
			name:        "wrong issuer",
			token:       wrongIssuer,
			expectedErr: ErrInvalidToken,
		},
		{
			name:        "bad subject",
			token:       badSubject,
			expectedErr: ErrInvalidToken,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := a.Caller(newBearerRequest(test.token))
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestAuthenticatorDisabled(t *testing.T) {
	require := require.New(t)

	a := NewAuthenticator("", nil)
	require.False(a.Enabled())

	_, err := a.Issue(ids.GenerateTestShortID(), time.Minute)
	require.ErrorIs(err, ErrAuthDisabled)
	_, err = a.Caller(newBearerRequest("anything"))
	require.ErrorIs(err, ErrAuthDisabled)
}
