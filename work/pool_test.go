// Package work provides the bounded worker pool that executes all upward
// layer transitions, one owned buffer per task.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package work_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shmstack/shmstack/cmn/atomic"
	"github.com/shmstack/shmstack/work"
)

func TestDispatch(t *testing.T) {
	pool, err := work.New(4)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer pool.Release()

	var (
		wg  sync.WaitGroup
		sum atomic.Int64
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		buf := []byte{byte(i)}
		err := pool.Dispatch(func(b []byte) {
			sum.Add(int64(b[0]))
			wg.Done()
		}, buf)
		if err != nil {
			// non-blocking pool may refuse under load; the caller owns the
			// buffer again and drops the unit
			wg.Done()
			sum.Add(int64(buf[0]))
		}
	}
	wg.Wait()
	if sum.Load() != 99*100/2 {
		t.Fatalf("sum %d", sum.Load())
	}
}

func TestOverloadFails(t *testing.T) {
	pool, err := work.New(1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer pool.Release()

	var (
		release = make(chan struct{})
		started = make(chan struct{})
	)
	if err := pool.Dispatch(func([]byte) {
		close(started)
		<-release
	}, nil); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	<-started

	// the single worker is busy: dispatch must fail instead of blocking
	if err := pool.Dispatch(func([]byte) {}, nil); err == nil {
		t.Fatal("overloaded dispatch did not fail")
	}
	close(release)
}

func TestReleaseDrains(t *testing.T) {
	pool, err := work.New(2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var done atomic.Int64
	for i := 0; i < 2; i++ {
		if err := pool.Dispatch(func([]byte) {
			time.Sleep(50 * time.Millisecond)
			done.Inc()
		}, nil); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}
	pool.Release()
	if done.Load() != 2 {
		t.Fatalf("in-flight tasks not drained: %d", done.Load())
	}
}
