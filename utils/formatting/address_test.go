// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package formatting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatParse(t *testing.T) {
	require := require.New(t)

	addr := []byte{
		0x3c, 0xb7, 0xd3, 0x84, 0x2e, 0x8c, 0xee, 0x6a, 0x0e, 0xbd,
		0x09, 0xf1, 0xfe, 0x88, 0x4f, 0x68, 0x61, 0xe1, 0xb2, 0x9c,
	}
	addrStr, err := Format("V", "vault", addr)
	require.NoError(err)
	require.Regexp(`^V-vault1[02-9ac-hj-np-z]+$`, addrStr)

	chain, hrp, parsed, err := Parse(addrStr)
	require.NoError(err)
	require.Equal("V", chain)
	require.Equal("vault", hrp)
	require.Equal(addr, parsed)
}

func TestParseErrors(t *testing.T) {
	require := require.New(t)

	_, _, _, err := Parse("vault1qqqqqq")
	require.ErrorIs(err, ErrNoSeparator)

	addrStr, err := FormatBech32("vault", []byte{1, 2, 3})
	require.NoError(err)
	_, err = ParseBech32WithHRP("local", addrStr)
	require.ErrorIs(err, ErrWrongHRP)

	payload, err := ParseBech32WithHRP("vault", addrStr)
	require.NoError(err)
	require.Equal([]byte{1, 2, 3}, payload)

	_, _, err = ParseBech32("not-bech32")
	require.Error(err) //nolint:forbidigo // error comes from the bech32 library
}
