// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package formatting renders addresses in their human-readable bech32 form.
package formatting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const addressSep = "-"

var (
	ErrNoSeparator = errors.New("no separator found in address")
	ErrWrongHRP    = errors.New("unexpected human-readable part")
)

// Format renders [addr] as "<chain>-<bech32>", e.g. "V-vault1...".
func Format(chain, hrp string, addr []byte) (string, error) {
	addrStr, err := FormatBech32(hrp, addr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%s", chain, addressSep, addrStr), nil
}

// Parse splits a Format'd address into its chain alias, human-readable part
// and raw bytes.
func Parse(addrStr string) (string, string, []byte, error) {
	chain, rawAddr, ok := strings.Cut(addrStr, addressSep)
	if !ok {
		return "", "", nil, ErrNoSeparator
	}
	hrp, addr, err := ParseBech32(rawAddr)
	return chain, hrp, addr, err
}

// FormatBech32 encodes [payload] under [hrp].
func FormatBech32(hrp string, payload []byte) (string, error) {
	fiveBits, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, fiveBits)
}

// ParseBech32 decodes a bech32 string into its human-readable part and
// payload.
func ParseBech32(addrStr string) (string, []byte, error) {
	rawHRP, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return "", nil, err
	}
	addrBytes, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("unable to convert address from 5-bit to 8-bit formatting: %w", err)
	}
	return rawHRP, addrBytes, nil
}

// ParseBech32WithHRP is ParseBech32 that also requires [hrp].
func ParseBech32WithHRP(hrp, addrStr string) ([]byte, error) {
	rawHRP, addr, err := ParseBech32(addrStr)
	if err != nil {
		return nil, err
	}
	if rawHRP != hrp {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrWrongHRP, hrp, rawHRP)
	}
	return addr, nil
}
