// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package profiler captures rotating CPU, heap and mutex profiles of a
// long-running process.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	cpuProfileFile  = "cpu.profile"
	memProfileFile  = "mem.profile"
	lockProfileFile = "lock.profile"

	dirPerms  = 0o750
	filePerms = 0o640
)

var (
	ErrInvalidConfig = errors.New("profiler frequency and file count must be positive")

	errCPUProfilerRunning    = errors.New("cpu profiler already running")
	errCPUProfilerNotRunning = errors.New("cpu profiler doesn't exist")
	errNoMutexProfile        = errors.New("mutex profile not found")
)

type Config struct {
	Dir         string        `json:"dir"`
	Freq        time.Duration `json:"freq"`
	MaxNumFiles int           `json:"maxNumFiles"`
}

// Continuous profiles the process in windows of Freq, keeping the newest
// MaxNumFiles of each profile in Dir.
type Continuous struct {
	cfg             Config
	cpuProfileName  string
	memProfileName  string
	lockProfileName string
	cpuProfile      *os.File
}

func NewContinuous(cfg Config) (*Continuous, error) {
	if cfg.Freq <= 0 || cfg.MaxNumFiles <= 0 {
		return nil, ErrInvalidConfig
	}
	return &Continuous{
		cfg:             cfg,
		cpuProfileName:  filepath.Join(cfg.Dir, cpuProfileFile),
		memProfileName:  filepath.Join(cfg.Dir, memProfileFile),
		lockProfileName: filepath.Join(cfg.Dir, lockProfileFile),
	}, nil
}

// Dispatch profiles until ctx is done, then writes the final window.
func (p *Continuous) Dispatch(ctx context.Context) error {
	if err := os.MkdirAll(p.cfg.Dir, dirPerms); err != nil {
		return err
	}
	t := time.NewTicker(p.cfg.Freq)
	defer t.Stop()

	for {
		if err := p.startCPU(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return p.stop()
		case <-t.C:
			if err := p.stop(); err != nil {
				return err
			}
		}

		if err := p.rotate(); err != nil {
			return err
		}
	}
}

func (p *Continuous) startCPU() error {
	if p.cpuProfile != nil {
		return errCPUProfilerRunning
	}
	file, err := create(p.cpuProfileName)
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(file); err != nil {
		_ = file.Close()
		return err
	}
	p.cpuProfile = file
	return nil
}

func (p *Continuous) stopCPU() error {
	if p.cpuProfile == nil {
		return errCPUProfilerNotRunning
	}
	pprof.StopCPUProfile()
	err := p.cpuProfile.Close()
	p.cpuProfile = nil
	return err
}

func (p *Continuous) writeHeap() error {
	file, err := create(p.memProfileName)
	if err != nil {
		return err
	}
	defer file.Close()

	runtime.GC()
	return pprof.WriteHeapProfile(file)
}

func (p *Continuous) writeLock() error {
	profile := pprof.Lookup("mutex")
	if profile == nil {
		return errNoMutexProfile
	}
	file, err := create(p.lockProfileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return profile.WriteTo(file, 0)
}

func (p *Continuous) stop() error {
	g := errgroup.Group{}
	g.Go(p.stopCPU)
	g.Go(p.writeHeap)
	g.Go(p.writeLock)
	return g.Wait()
}

func (p *Continuous) rotate() error {
	g := errgroup.Group{}
	for _, name := range []string{p.cpuProfileName, p.memProfileName, p.lockProfileName} {
		g.Go(func() error {
			return rotate(name, p.cfg.MaxNumFiles)
		})
	}
	return g.Wait()
}

func create(name string) (*os.File, error) {
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, filePerms)
}

// rotate shifts name.1 .. name.(n-1) up by one and moves name to name.1.
func rotate(name string, maxNumFiles int) error {
	for i := maxNumFiles - 1; i > 0; i-- {
		src := fmt.Sprintf("%s.%d", name, i)
		dst := fmt.Sprintf("%s.%d", name, i+1)
		if err := renameIfExists(src, dst); err != nil {
			return err
		}
	}
	return renameIfExists(name, name+".1")
}

func renameIfExists(src, dst string) error {
	err := os.Rename(src, dst)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
