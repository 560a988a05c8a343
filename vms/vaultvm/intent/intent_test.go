// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func newTestIntent(t *testing.T, nonce uint64, amount uint64) *TransferIntent {
	t.Helper()

	in, err := New(
		nonce,
		ids.GenerateTestID(),
		ids.GenerateTestID(),
		ids.GenerateTestID(),
		ids.GenerateTestShortID(),
		ids.GenerateTestShortID(),
		uint256.NewInt(amount),
	)
	require.NoError(t, err)
	return in
}

func TestNewVerify(t *testing.T) {
	ledger := ids.GenerateTestID()
	addr := ids.GenerateTestShortID()

	tests := []struct {
		name        string
		source      ids.ID
		destination ids.ID
		sender      ids.ShortID
		amount      uint64
		expectedErr error
	}{
		{
			name:        "zero amount",
			source:      ledger,
			destination: ids.GenerateTestID(),
			sender:      addr,
			amount:      0,
			expectedErr: ErrZeroAmount,
		},
		{
			name:        "same ledger",
			source:      ledger,
			destination: ledger,
			sender:      addr,
			amount:      1,
			expectedErr: ErrSameLedger,
		},
		{
			name:        "empty destination",
			source:      ledger,
			destination: ids.Empty,
			sender:      addr,
			amount:      1,
			expectedErr: ErrEmptyLedger,
		},
		{
			name:        "empty sender",
			source:      ledger,
			destination: ids.GenerateTestID(),
			sender:      ids.ShortEmpty,
			amount:      1,
			expectedErr: ErrEmptyAddress,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(
				1,
				ids.GenerateTestID(),
				test.source,
				test.destination,
				test.sender,
				addr,
				uint256.NewInt(test.amount),
			)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestParseRoundTripKeepsID(t *testing.T) {
	require := require.New(t)

	in := newTestIntent(t, 7, 1_000)
	require.NotEqual(ids.Empty, in.ID())

	parsed, err := Parse(in.Bytes())
	require.NoError(err)
	require.Equal(in.ID(), parsed.ID())
	require.Equal(uint64(7), parsed.Nonce)
	require.Equal(uint256.NewInt(1_000), parsed.Amount())
}

func TestNonceChangesID(t *testing.T) {
	require := require.New(t)

	in := newTestIntent(t, 1, 50)
	next, err := New(
		in.Nonce+1,
		in.Asset,
		in.SourceLedger,
		in.DestinationLedger,
		in.Sender,
		in.Recipient,
		in.Amount(),
	)
	require.NoError(err)
	require.NotEqual(in.ID(), next.ID())
}

func TestRecordLifecycle(t *testing.T) {
	require := require.New(t)

	r := &Record{
		Intent:    *newTestIntent(t, 3, 10),
		Status:    StatusCreated,
		Direction: Outbound,
		CreatedAt: 100,
	}
	require.ErrorIs(r.Advance(StatusFinalized, 101), ErrInvalidTransition)
	require.NoError(r.Advance(StatusInFlight, 101))
	require.ErrorIs(r.Advance(StatusCreated, 102), ErrInvalidTransition)
	require.NoError(r.Advance(StatusFinalized, 103))
	require.Equal(uint64(103), r.UpdatedAt)

	b, err := r.Bytes()
	require.NoError(err)
	parsed, err := ParseRecord(b)
	require.NoError(err)
	require.Equal(StatusFinalized, parsed.Status)
	require.Equal(Outbound, parsed.Direction)
	require.Equal(r.Intent.ID(), parsed.Intent.ID())
}

func TestProof(t *testing.T) {
	require := require.New(t)

	in := newTestIntent(t, 9, 25)
	proof, err := NewProof(in, []byte{1, 2, 3}, []byte{4, 5, 6})
	require.NoError(err)

	parsed, err := ParseProofString(proof.String())
	require.NoError(err)
	require.Equal(in.ID(), parsed.Intent().ID())
	require.Equal([]byte{1, 2, 3}, parsed.Signer)

	_, err = ParseProof(nil)
	require.ErrorIs(err, ErrMalformedProof)
	_, err = ParseProof([]byte{0, 0, 1})
	require.ErrorIs(err, ErrMalformedProof)
	_, err = ParseProofString("0OIl")
	require.ErrorIs(err, ErrMalformedProof)

	unsigned, err := NewProof(in, nil, nil)
	require.NoError(err)
	_, err = ParseProof(unsigned.Bytes())
	require.ErrorIs(err, ErrMalformedProof)
}

func TestStatusParse(t *testing.T) {
	require := require.New(t)

	for _, s := range []Status{StatusCreated, StatusInFlight, StatusFinalized} {
		parsed, err := ParseStatus(s.String())
		require.NoError(err)
		require.Equal(s, parsed)
	}
	_, err := ParseStatus("cancelled")
	require.Error(err)
}
