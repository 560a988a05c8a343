// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database"
	"github.com/luxfi/vault/vms/vaultvm/auth"
	"github.com/luxfi/vault/vms/vaultvm/bridge"
	"github.com/luxfi/vault/vms/vaultvm/intent"
	"github.com/luxfi/vault/vms/vaultvm/token"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err      error
		expected Kind
	}{
		{nil, KindNone},
		{ErrUnauthorized, KindAuthorization},
		{fmt.Errorf("wrapped: %w", auth.ErrUnauthorized), KindAuthorization},
		{auth.ErrNotInitialized, KindAuthorization},
		{ErrInsufficientFunds, KindInsufficientFunds},
		{token.ErrInsufficientBalance, KindInsufficientFunds},
		{token.ErrInsufficientAllowance, KindInsufficientFunds},
		{ErrProofInvalid, KindProofInvalid},
		{intent.ErrMalformedProof, KindProofInvalid},
		{bridge.ErrInvalidSignature, KindProofInvalid},
		{bridge.ErrUntrustedSigner, KindProofInvalid},
		{ErrAlreadyFinalized, KindReplay},
		{ErrReentrantCall, KindReentrantCall},
		{ErrInvalidAmount, KindInvalidArgument},
		{ErrUnbackedShares, KindInvalidArgument},
		{ErrSameLedger, KindInvalidArgument},
		{database.ErrNotFound, KindInvalidArgument},
		{fmt.Errorf("%w: bad amount", ErrInvalidArgument), KindInvalidArgument},
		{errors.New("disk on fire"), KindInternal},
		// A proof failure that carries the transport's cause is still a
		// proof failure.
		{fmt.Errorf("%w: %w", ErrProofInvalid, bridge.ErrInvalidSignature), KindProofInvalid},
		// Reentrancy wins over anything it wraps.
		{fmt.Errorf("%w: %w", ErrReentrantCall, ErrUnauthorized), KindReentrantCall},
	}
	for _, test := range tests {
		name := "nil"
		if test.err != nil {
			name = test.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.expected, KindOf(test.err))
		})
	}
}
