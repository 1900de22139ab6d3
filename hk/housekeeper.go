// Package hk provides mechanism for registering cleanup
// functions which are invoked at specified intervals.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package hk

import (
	"sync"
	"time"

	"github.com/shmstack/shmstack/cmn/cos"
	"github.com/shmstack/shmstack/cmn/debug"
	"github.com/shmstack/shmstack/cmn/mono"
	"github.com/shmstack/shmstack/cmn/nlog"
)

const NameSuffix = ".gc" // reg name suffix

// CleanupFunc is invoked when its deadline expires; the returned duration
// schedules the next invocation.
type CleanupFunc func() time.Duration

type (
	request struct {
		f       CleanupFunc
		name    string
		initial time.Duration
		reg     bool
	}
	timedAction struct {
		f        CleanupFunc
		name     string
		deadline int64 // mono ns
	}
	housekeeper struct {
		stopCh  cos.StopCh
		workCh  chan request
		timer   *time.Timer
		actions []*timedAction
		running sync.WaitGroup
	}
)

var DefaultHK *housekeeper

func init() { _init() }

func _init() {
	DefaultHK = &housekeeper{
		workCh:  make(chan request, 16),
		actions: make([]*timedAction, 0, 8),
	}
	DefaultHK.stopCh.Init()
	DefaultHK.running.Add(1)
	go DefaultHK.Run()
}

// TestInit resets the housekeeper (tests only).
func TestInit() {
	DefaultHK.stopCh.Close()
	_init()
}

func WaitStarted() { DefaultHK.running.Wait() }

func Reg(name string, f CleanupFunc, initial time.Duration) {
	DefaultHK.workCh <- request{reg: true, name: name, f: f, initial: initial}
}

func Unreg(name string) {
	DefaultHK.workCh <- request{reg: false, name: name}
}

func (hk *housekeeper) Name() string { return "housekeeper" }

func (hk *housekeeper) Run() error {
	hk.timer = time.NewTimer(time.Hour)
	hk.running.Done()
	defer hk.timer.Stop()
	for {
		select {
		case <-hk.stopCh.Listen():
			return nil
		case <-hk.timer.C:
			hk.checkExpired()
		case req := <-hk.workCh:
			if req.reg {
				hk.reg(req)
			} else {
				hk.unreg(req.name)
			}
		}
	}
}

func (hk *housekeeper) Stop(error) { hk.stopCh.Close() }

func (hk *housekeeper) reg(req request) {
	debug.Assert(req.f != nil, req.name)
	for _, a := range hk.actions {
		if a.name == req.name {
			nlog.Errorf("hk: %q already registered", req.name)
			return
		}
	}
	hk.actions = append(hk.actions, &timedAction{
		name:     req.name,
		f:        req.f,
		deadline: mono.NanoTime() + req.initial.Nanoseconds(),
	})
	hk.reset()
}

func (hk *housekeeper) unreg(name string) {
	for i, a := range hk.actions {
		if a.name == name {
			hk.actions = append(hk.actions[:i], hk.actions[i+1:]...)
			hk.reset()
			return
		}
	}
}

func (hk *housekeeper) checkExpired() {
	now := mono.NanoTime()
	for _, a := range hk.actions {
		if a.deadline <= now {
			interval := a.f()
			a.deadline = now + interval.Nanoseconds()
		}
	}
	hk.reset()
}

// rearm the timer for the nearest deadline
func (hk *housekeeper) reset() {
	if len(hk.actions) == 0 {
		hk.timer.Reset(time.Hour)
		return
	}
	var (
		now = mono.NanoTime()
		min = hk.actions[0].deadline
	)
	for _, a := range hk.actions[1:] {
		if a.deadline < min {
			min = a.deadline
		}
	}
	d := time.Duration(min - now)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	hk.timer.Reset(d)
}
