// Package app is the terminal layer: it reports delivered messages and
// releases their buffers.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package app

import (
	"bytes"

	"github.com/shmstack/shmstack/cmn"
	"github.com/shmstack/shmstack/cmn/nlog"
	"github.com/shmstack/shmstack/memsys"
	"github.com/shmstack/shmstack/stats"
)

// DeliverFunc receives the message as a string together with the
// transport-delivered payload size. The string stops at the first NUL,
// the size does not.
type DeliverFunc func(msg string, size int)

type (
	// Uplink is the egress side of the transport layer.
	Uplink interface {
		Send(payload []byte, srcPort, dstPort uint16) error
	}

	App struct {
		tp      Uplink
		deliver DeliverFunc
		mm      *memsys.MMSA
		st      *stats.Tracker
	}
)

func New(mm *memsys.MMSA, st *stats.Tracker, deliver DeliverFunc) *App {
	return &App{mm: mm, st: st, deliver: deliver}
}

func (a *App) Bind(tp Uplink) { a.tp = tp }

// Send passes the message down the synchronous egress chain.
func (a *App) Send(msg string, srcPort, dstPort uint16) error {
	if cmn.Rom.Verbose() {
		nlog.Infof("app: sending %q (%d byte(s)) from port %d to port %d",
			msg, len(msg), srcPort, dstPort)
	}
	return a.tp.Send([]byte(msg), srcPort, dstPort)
}

// Recv logs the delivered message and releases the payload. The payload is
// nil for a zero-size datagram.
func (a *App) Recv(payload []byte) {
	size := len(payload)
	end := bytes.IndexByte(payload, 0)
	if end < 0 {
		end = size
	}
	msg := string(payload[:end])
	nlog.Infof("app: received message %q (string %d, payload %d byte(s))", msg, end, size)
	a.st.Inc(stats.MsgsDelivered)
	if a.deliver != nil {
		a.deliver(msg, size)
	}
	a.mm.Free(payload)
}
