// Package wire owns the shared-memory mailbox and named counting semaphore
// that stand in for the physical medium between two instances.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package wire

import (
	ratomic "sync/atomic"
	"unsafe"

	"github.com/shmstack/shmstack/cmn/debug"
)

// Sem is a named counting semaphore shared between the two processes: a
// 4-byte cell in /dev/shm updated with CAS. Only the non-blocking subset
// (TryWait/Post) exists - the poller never blocks on the semaphore.
type Sem struct {
	mem  []byte
	name string
}

const semSize = 4

func semName(id string) string { return "sem_" + id }

// openSem creates (initial value 0) or attaches to the named semaphore.
func openSem(id string, create bool) (*Sem, error) {
	name := semName(id)
	mem, err := shmOpen(name, semSize, create)
	if err != nil {
		return nil, err
	}
	return &Sem{mem: mem, name: name}, nil
}

func (s *Sem) ptr() *uint32 {
	debug.Assert(len(s.mem) >= semSize)
	return (*uint32)(unsafe.Pointer(&s.mem[0]))
}

// TryWait is sem_trywait: decrement if positive, else report would-block.
func (s *Sem) TryWait() bool {
	p := s.ptr()
	for {
		v := ratomic.LoadUint32(p)
		if v == 0 {
			return false
		}
		if ratomic.CompareAndSwapUint32(p, v, v-1) {
			return true
		}
	}
}

// Post is sem_post.
func (s *Sem) Post() {
	ratomic.AddUint32(s.ptr(), 1)
}

func (s *Sem) Close() error {
	mem := s.mem
	s.mem = nil
	return shmUnmap(mem)
}

func (s *Sem) Unlink() error { return shmUnlink(s.name) }
