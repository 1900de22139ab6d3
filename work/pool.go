// Package work provides the bounded worker pool that executes all upward
// layer transitions, one owned buffer per task.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package work

import (
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/shmstack/shmstack/cmn/debug"
	"github.com/shmstack/shmstack/cmn/nlog"
)

const drainTimeout = 5 * time.Second

type (
	// Dispatcher accepts a unit of work: (function, owned buffer).
	// Ownership of buf transfers to the worker on success; on error the
	// caller still owns buf and must release it.
	Dispatcher interface {
		Dispatch(fn func(buf []byte), buf []byte) error
	}

	Pool struct {
		p    *ants.Pool
		size int
	}
)

// interface guard
var _ Dispatcher = (*Pool)(nil)

// New creates a fixed-size pool. Submission never blocks: when all workers
// are busy the dispatch fails and the unit of work is dropped by the caller.
func New(size int) (*Pool, error) {
	debug.Assert(size > 0)
	p, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Pool{p: p, size: size}, nil
}

func (w *Pool) Dispatch(fn func(buf []byte), buf []byte) error {
	return w.p.Submit(func() { fn(buf) })
}

func (w *Pool) Size() int    { return w.size }
func (w *Pool) Running() int { return w.p.Running() }

// Release drains the pool: in-flight tasks are allowed to complete.
func (w *Pool) Release() {
	if err := w.p.ReleaseTimeout(drainTimeout); err != nil {
		nlog.Warningf("worker pool released with %d task(s) still running: %v", w.p.Running(), err)
	}
}
