// Package memsys provides memory management and Slab allocation on top of
// reusable byte buffers
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package memsys

import (
	"sync"

	"github.com/shmstack/shmstack/cmn/atomic"
	"github.com/shmstack/shmstack/cmn/debug"
)

// Buffers handed out by an MMSA have a single owner at any given time.
// Whoever holds the buffer either frees it or hands it off - never both.

const (
	minSizeClass = 128
	numClasses   = 6 // 128B .. 128KiB, x4 steps
)

type (
	Slab struct {
		pool sync.Pool
		size int
	}
	MMSA struct {
		Name   string
		slabs  [numClasses]*Slab
		hits   atomic.Int64
		misses atomic.Int64 // buffers above the max size class
	}
)

func NewMMSA(name string) *MMSA {
	mm := &MMSA{Name: name}
	size := minSizeClass
	for i := range mm.slabs {
		slab := &Slab{size: size}
		slab.pool.New = func() any { return make([]byte, slab.size) }
		mm.slabs[i] = slab
		size *= 4
	}
	return mm
}

func (s *Slab) Size() int { return s.size }

func (s *Slab) alloc() []byte { return s.pool.Get().([]byte) }

func (s *Slab) free(buf []byte) {
	debug.Assert(cap(buf) == s.size)
	s.pool.Put(buf[:cap(buf)]) //nolint:staticcheck // slab buffers are slices by design
}

// SelectSlab returns the smallest slab that fits size, or nil when the
// request exceeds the maximum size class.
func (mm *MMSA) SelectSlab(size int64) *Slab {
	for _, slab := range mm.slabs {
		if size <= int64(slab.size) {
			return slab
		}
	}
	return nil
}

// AllocSize returns an exclusively owned buffer of length size.
// Zero size yields nil - a valid, free-able "buffer".
func (mm *MMSA) AllocSize(size int64) []byte {
	if size == 0 {
		return nil
	}
	if slab := mm.SelectSlab(size); slab != nil {
		mm.hits.Inc()
		return slab.alloc()[:size]
	}
	mm.misses.Inc()
	return make([]byte, size)
}

// Free releases the buffer back to its slab; buffers above the largest
// size class (and nil) are left to the garbage collector.
func (mm *MMSA) Free(buf []byte) {
	if buf == nil {
		return
	}
	c := cap(buf)
	for _, slab := range mm.slabs {
		if c == slab.size {
			slab.free(buf)
			return
		}
	}
}

func (mm *MMSA) Hits() int64   { return mm.hits.Load() }
func (mm *MMSA) Misses() int64 { return mm.misses.Load() }
