// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package math

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestInc(t *testing.T) {
	require := require.New(t)

	v, err := Inc[uint64](41)
	require.NoError(err)
	require.Equal(uint64(42), v)

	_, err = Inc(MaxUint[uint64]())
	require.ErrorIs(err, ErrOverflow)
}

func TestAddSub(t *testing.T) {
	require := require.New(t)

	max := new(uint256.Int).SetAllOne()

	sum, err := Add(uint256.NewInt(2), uint256.NewInt(3))
	require.NoError(err)
	require.Equal(uint64(5), sum.Uint64())

	_, err = Add(max, uint256.NewInt(1))
	require.ErrorIs(err, ErrOverflow)

	diff, err := Sub(uint256.NewInt(5), uint256.NewInt(3))
	require.NoError(err)
	require.Equal(uint64(2), diff.Uint64())

	_, err = Sub(uint256.NewInt(3), uint256.NewInt(5))
	require.ErrorIs(err, ErrUnderflow)

	require.True(SubFloor(uint256.NewInt(3), uint256.NewInt(5)).IsZero())
	require.Equal(uint64(2), SubFloor(uint256.NewInt(5), uint256.NewInt(3)).Uint64())
}

func TestMinDoesNotAlias(t *testing.T) {
	require := require.New(t)

	a := uint256.NewInt(1)
	m := Min(a, uint256.NewInt(2))
	m.AddUint64(m, 10)
	require.Equal(uint64(1), a.Uint64())
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name     string
		x, y, d  uint64
		rounding Rounding
		want     uint64
	}{
		{name: "exact", x: 100, y: 50, d: 25, rounding: Floor, want: 200},
		{name: "exact ceil", x: 100, y: 50, d: 25, rounding: Ceil, want: 200},
		{name: "floor", x: 10, y: 1, d: 3, rounding: Floor, want: 3},
		{name: "ceil", x: 10, y: 1, d: 3, rounding: Ceil, want: 4},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := MulDiv(uint256.NewInt(test.x), uint256.NewInt(test.y), uint256.NewInt(test.d), test.rounding)
			require.NoError(t, err)
			require.Equal(t, test.want, got.Uint64())
		})
	}
}

func TestMulDivWideIntermediate(t *testing.T) {
	require := require.New(t)

	// (2^255 * 4) / 8 overflows a 256 bit product but not the result.
	x := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	got, err := MulDiv(x, uint256.NewInt(4), uint256.NewInt(8), Floor)
	require.NoError(err)
	require.Equal(new(uint256.Int).Lsh(uint256.NewInt(1), 254), got)

	_, err = MulDiv(x, uint256.NewInt(4), uint256.NewInt(1), Floor)
	require.ErrorIs(err, ErrOverflow)

	_, err = MulDiv(x, uint256.NewInt(4), new(uint256.Int), Floor)
	require.ErrorIs(err, ErrDivisionByZero)
}
