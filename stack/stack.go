// Package stack wires the five pipeline layers into one process context:
// application, transport, network, data link, and the shared-memory wire.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package stack

import (
	"fmt"

	"github.com/shmstack/shmstack/app"
	"github.com/shmstack/shmstack/cmn"
	"github.com/shmstack/shmstack/cmn/cos"
	"github.com/shmstack/shmstack/cmn/nlog"
	"github.com/shmstack/shmstack/hk"
	"github.com/shmstack/shmstack/link"
	"github.com/shmstack/shmstack/memsys"
	"github.com/shmstack/shmstack/netw"
	"github.com/shmstack/shmstack/stats"
	"github.com/shmstack/shmstack/tport"
	"github.com/shmstack/shmstack/wire"
	"github.com/shmstack/shmstack/work"
)

// Stack is the explicit process context: every piece of state the pipeline
// needs, constructed at startup and torn down in reverse.
type Stack struct {
	SrcID, DstID string
	RunID        string

	cfg  *cmn.Config
	mm   *memsys.MMSA
	pool *work.Pool
	st   *stats.Tracker

	wire *wire.Wire
	lnk  *link.Link
	net  *netw.Netw
	tp   *tport.Tport
	app  *app.App
}

// New constructs and starts a stack instance. The deliver callback (may be
// nil) observes every application-layer message.
func New(srcID, dstID string, cfg *cmn.Config, deliver app.DeliverFunc) (*Stack, error) {
	if !cos.IsAlphaNice(srcID) || !cos.IsAlphaNice(dstID) {
		return nil, fmt.Errorf("invalid instance identifier(s) %q, %q", srcID, dstID)
	}
	pool, err := work.New(cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize worker pool: %v", err)
	}
	s := &Stack{
		SrcID: srcID,
		DstID: dstID,
		RunID: cos.GenRunID(),
		cfg:   cfg,
		mm:    memsys.NewMMSA("stack." + srcID),
		pool:  pool,
	}
	s.st = stats.NewTracker(s.RunID)

	s.app = app.New(s.mm, s.st, deliver)
	s.tp = tport.New(s.mm, s.pool, s.st)
	s.net = netw.New(srcID, cfg, s.mm, s.pool, s.st)
	s.lnk = link.New(s.mm, s.pool, s.st)
	s.wire = wire.New(srcID, dstID, cfg, s.mm, s.st)

	s.app.Bind(s.tp)
	s.tp.Bind(s.net, s.app.Recv)
	s.net.Bind(s.lnk, s.tp.Recv)
	s.lnk.Bind(s.wire, s.net.Recv)
	s.wire.Bind(s.linkUp)

	if err := s.wire.Init(); err != nil {
		s.pool.Release()
		return nil, err
	}
	hk.Reg(s.hkName(), s.net.Housekeep, cfg.Timeout.Housekeep.D())
	nlog.Infof("%s: initialized (peer %q, pool %d)", s, dstID, cfg.PoolSize)
	return s, nil
}

// linkUp crosses the task boundary between the wire poller and the data
// link; the block's ownership transfers to the worker.
func (s *Stack) linkUp(block []byte) {
	if err := s.pool.Dispatch(s.lnk.Recv, block); err != nil {
		nlog.Errorf("%s: failed to dispatch data-link task: %v", s, err)
		s.st.Inc(stats.PoolRejected)
		s.mm.Free(block)
	}
}

// Send pushes one application message down the synchronous egress chain.
func (s *Stack) Send(msg string, srcPort, dstPort uint16) error {
	return s.app.Send(msg, srcPort, dstPort)
}

func (s *Stack) Stats() *stats.Tracker { return s.st }

func (s *Stack) String() string { return "stack[" + s.SrcID + "]" }

func (s *Stack) hkName() string { return "reassembly." + s.SrcID + hk.NameSuffix }

// Shutdown stops the poller first, then drains the pool so in-flight tasks
// complete, and finally drops pipeline state.
func (s *Stack) Shutdown() {
	hk.Unreg(s.hkName())
	s.wire.Shutdown()
	s.pool.Release()
	s.net.Shutdown()
	s.st.Log()
	nlog.Infof("%s: shutdown complete", s)
}
