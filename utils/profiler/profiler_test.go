// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package profiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewContinuousValidates(t *testing.T) {
	_, err := NewContinuous(Config{Dir: t.TempDir(), MaxNumFiles: 1})
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewContinuous(Config{Dir: t.TempDir(), Freq: time.Second})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestContinuousWritesProfilesOnShutdown(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	p, err := NewContinuous(Config{
		Dir:         dir,
		Freq:        time.Hour,
		MaxNumFiles: 2,
	})
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(p.Dispatch(ctx))

	for _, name := range []string{cpuProfileFile, memProfileFile, lockProfileFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(err, name)
	}
}

func TestRotate(t *testing.T) {
	require := require.New(t)

	name := filepath.Join(t.TempDir(), "cpu.profile")
	write := func(content string) {
		require.NoError(os.WriteFile(name, []byte(content), filePerms))
	}
	read := func(path string) string {
		b, err := os.ReadFile(path)
		require.NoError(err)
		return string(b)
	}

	// Missing files are skipped.
	require.NoError(rotate(name, 2))

	write("first")
	require.NoError(rotate(name, 2))
	write("second")
	require.NoError(rotate(name, 2))
	write("third")
	require.NoError(rotate(name, 2))

	require.Equal("third", read(name+".1"))
	require.Equal("second", read(name+".2"))
	_, err := os.Stat(name + ".3")
	require.ErrorIs(err, os.ErrNotExist)
}
