// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package math provides overflow checked arithmetic for ledger amounts.
package math

import (
	"errors"

	"github.com/holiman/uint256"
)

// Unsigned is a constraint that permits any unsigned integer type.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

var (
	ErrOverflow       = errors.New("overflow")
	ErrUnderflow      = errors.New("underflow")
	ErrDivisionByZero = errors.New("division by zero")
)

// Rounding selects the direction a division result is rounded towards.
type Rounding uint8

const (
	Floor Rounding = iota
	Ceil
)

// MaxUint returns the maximum value of an unsigned integer of type T.
func MaxUint[T Unsigned]() T {
	return ^T(0)
}

// Inc returns:
// 1) a + 1
// 2) If there is overflow, an error
func Inc[T Unsigned](a T) (T, error) {
	if a == MaxUint[T]() {
		return 0, ErrOverflow
	}
	return a + 1, nil
}

// Add returns a + b, or ErrOverflow if the sum does not fit in 256 bits.
// Neither operand is modified.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns a - b, or ErrUnderflow if b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrUnderflow
	}
	return z, nil
}

// SubFloor returns max(a - b, 0).
func SubFloor(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// Min returns a copy of the smaller operand.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

// MulDiv returns x * y / d computed with a 512 bit intermediate product and
// rounded in the requested direction.
func MulDiv(x, y, d *uint256.Int, rounding Rounding) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	if rounding == Ceil && !new(uint256.Int).MulMod(x, y, d).IsZero() {
		return Add(z, uint256.NewInt(1))
	}
	return z, nil
}
