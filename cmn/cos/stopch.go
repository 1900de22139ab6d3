// Package cos provides common low-level types and utilities for all shmstack packages
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package cos

import (
	"github.com/shmstack/shmstack/cmn/atomic"
)

type (
	// StopCh is specialized one-time close semantics
	StopCh struct {
		ch      chan struct{}
		stopped atomic.Bool
	}

	// Runner is an abstraction for long-lived background workers
	Runner interface {
		Name() string
		Run() error
		Stop(error)
	}
)

func NewStopCh() *StopCh {
	s := &StopCh{}
	s.Init()
	return s
}

func (s *StopCh) Init() { s.ch = make(chan struct{}) }

func (s *StopCh) Listen() <-chan struct{} { return s.ch }

func (s *StopCh) Close() {
	if s.stopped.CAS(false, true) {
		close(s.ch)
	}
}
