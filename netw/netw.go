// Package netw implements the IPv4-like network layer: header checksum,
// fragmentation on egress, single-slot reassembly with timeout on ingress.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package netw

import (
	"fmt"
	"sync"
	"time"

	"github.com/shmstack/shmstack/cmn"
	"github.com/shmstack/shmstack/cmn/atomic"
	"github.com/shmstack/shmstack/cmn/cos"
	"github.com/shmstack/shmstack/cmn/debug"
	"github.com/shmstack/shmstack/cmn/mono"
	"github.com/shmstack/shmstack/cmn/nlog"
	"github.com/shmstack/shmstack/link"
	"github.com/shmstack/shmstack/memsys"
	"github.com/shmstack/shmstack/stats"
	"github.com/shmstack/shmstack/work"
)

// maxDatagram rejects implausible first-fragment sizes.
const maxDatagram = 66000

var errMTUTooSmall = fmt.Errorf("data-link MTU too small to fit any payload fragment")

type (
	// Uplink is the egress side of the data link.
	Uplink interface {
		Send(proto uint16, payload []byte) error
	}

	// reassembly is the single in-flight assembly; at most one exists
	// process-wide, guarded by Netw.mu.
	reassembly struct {
		buf      []byte
		total    int
		received int
		lastFrag int64 // mono ns of the most recent accepted fragment
		id       uint16
		proto    uint8
		inUse    bool
	}

	Netw struct {
		dl   Uplink
		up   func(owned []byte) // transport ingress
		pool work.Dispatcher
		mm   *memsys.MMSA
		st   *stats.Tracker

		mu     sync.Mutex
		reasm  reassembly
		nextID atomic.Uint32 // low 16 bits; seeded pseudo-randomly

		timeout time.Duration
	}
)

func New(srcID string, cfg *cmn.Config, mm *memsys.MMSA, pool work.Dispatcher, st *stats.Tracker) *Netw {
	n := &Netw{
		mm:      mm,
		pool:    pool,
		st:      st,
		timeout: cfg.Timeout.Reassembly.D(),
	}
	// seed in [0, 65535): instance name digest mixed with startup time
	seed := cos.DigestS(srcID) ^ uint64(mono.NanoTime())
	n.nextID.Store(uint32(seed % 65535))
	return n
}

func (n *Netw) Bind(dl Uplink, up func(owned []byte)) { n.dl, n.up = dl, up }

// maxPayloadPerFragment is the data-link information budget minus the
// header, rounded down to a multiple of 8 (the offset-unit requirement).
func maxPayloadPerFragment() int {
	m := link.MaxInfoSize - HdrSize
	return m - m%8
}

//
// egress
//

// Send prefixes the IP-like header and emits one or more fragments sharing
// a packet ID. A zero-length segment still produces a single fragment.
func (n *Netw) Send(segment []byte, proto uint8) error {
	maxPayload := maxPayloadPerFragment()
	if maxPayload <= 0 && len(segment) > 0 {
		return errMTUTooSmall
	}
	id := n.assignID()
	needsFrag := len(segment) > maxPayload
	if cmn.Rom.Verbose() {
		nlog.Infof("netw: sending packet %d, %d byte(s), fragmented=%t", id, len(segment), needsFrag)
	}
	var (
		sent        int
		offsetUnits uint16
	)
	for {
		cur := min(len(segment)-sent, maxPayload)
		last := sent+cur == len(segment)

		frag := n.mm.AllocSize(int64(HdrSize + cur))
		hdr := Hdr{
			TotalLength: uint16(HdrSize + cur),
			ID:          id,
			FlagsOffset: offsetUnits,
			Proto:       proto,
		}
		if needsFrag && !last {
			hdr.FlagsOffset |= FlagMF
		}
		hdr.Pack(frag)
		hdr.Checksum = hdrChecksum(frag)
		hdr.Pack(frag)
		copy(frag[HdrSize:], segment[sent:sent+cur])

		err := n.dl.Send(link.ProtoIP, frag)
		n.mm.Free(frag)
		if err != nil {
			return err
		}
		n.st.Inc(stats.FragsSent)

		sent += cur
		offsetUnits += uint16(cur / 8)
		if sent >= len(segment) {
			return nil
		}
	}
}

// assignID is the process-wide post-incrementing packet ID, wrapping mod 2^16.
func (n *Netw) assignID() uint16 { return uint16(n.nextID.Add(1) - 1) }

//
// ingress
//

// Recv consumes a data-link PDU: {dl protocol(2) | ip header | fragment}.
// The PDU is owned by this call and released on every path.
func (n *Netw) Recv(pdu []byte) {
	defer n.mm.Free(pdu)
	if len(pdu) < link.ProtoSize+HdrSize {
		n.st.Inc(stats.FrameDropFmt)
		return
	}
	var (
		raw = pdu[link.ProtoSize:]
		h   = UnpackHdr(raw)
	)
	if calculated := hdrChecksum(raw); calculated != h.Checksum {
		if cmn.Rom.Verbose() {
			nlog.Warningf("netw: header checksum mismatch (got 0x%04X, want 0x%04X), discarding",
				h.Checksum, calculated)
		}
		n.st.Inc(stats.FragDropSum)
		return
	}
	if h.TotalLength < HdrSize {
		if cmn.Rom.Verbose() {
			nlog.Warningf("netw: total_length %d < header size, discarding", h.TotalLength)
		}
		n.st.Inc(stats.FrameDropFmt)
		return
	}
	payloadSize := int(h.TotalLength) - HdrSize
	fragData := raw[HdrSize:]
	if payloadSize > len(fragData) {
		n.st.Inc(stats.FrameDropFmt)
		return
	}
	n.st.Inc(stats.FragsRecv)
	if cmn.Rom.Verbose() {
		nlog.Infof("netw: fragment id=%d offset=%d mf=%t proto=%d size=%d",
			h.ID, h.OffsetBytes(), h.MoreFragments(), h.Proto, payloadSize)
	}

	n.mu.Lock()
	n.process(&h, fragData[:payloadSize])
	n.mu.Unlock()
}

// process runs under n.mu.
func (n *Netw) process(h *Hdr, fragData []byte) {
	if n.reasm.inUse && mono.SinceNano(n.reasm.lastFrag) > n.timeout.Nanoseconds() {
		if cmn.Rom.Verbose() {
			nlog.Infof("netw: reassembly timeout for id %d, discarding", n.reasm.id)
		}
		n.st.Inc(stats.ReasmTimeout)
		n.clearReassembly()
	}
	if h.OffsetBytes() != 0 {
		// only the non-fragmented path is supported
		if cmn.Rom.Verbose() {
			nlog.Warningf("netw: subsequent fragment (offset %d) unsupported, discarding id %d",
				h.OffsetBytes(), h.ID)
		}
		n.st.Inc(stats.FragDropRefus)
		return
	}
	if n.reasm.inUse {
		if n.reasm.id != h.ID {
			nlog.Infof("netw: new first fragment id %d while assembling id %d, discarding old",
				h.ID, n.reasm.id)
		} else {
			nlog.Warningf("netw: duplicate first fragment for id %d, resetting assembly", h.ID)
		}
		n.st.Inc(stats.ReasmEvicted)
		n.clearReassembly()
	}
	if h.MoreFragments() {
		// only the non-fragmented path is supported
		if cmn.Rom.Verbose() {
			nlog.Warningln("netw: first fragment has MF set, discarding")
		}
		n.st.Inc(stats.FragDropRefus)
		return
	}
	total := len(fragData)
	if total > maxDatagram {
		nlog.Errorf("netw: implausible total payload size %d, discarding", total)
		n.st.Inc(stats.FrameDropFmt)
		return
	}
	if total > 0 {
		n.reasm.buf = n.mm.AllocSize(int64(total))
		clear(n.reasm.buf)
		copy(n.reasm.buf, fragData)
	} else {
		n.reasm.buf = nil
	}
	n.reasm.id = h.ID
	n.reasm.proto = h.Proto
	n.reasm.total = total
	n.reasm.received = total
	n.reasm.lastFrag = mono.NanoTime()
	n.reasm.inUse = true
	debug.Assert(n.reasm.received <= n.reasm.total)

	if !h.MoreFragments() && n.reasm.received >= n.reasm.total {
		n.deliver()
	}
}

// deliver hands the completed datagram upward and clears the slot;
// runs under n.mu. A zero-size datagram is delivered as a nil payload.
func (n *Netw) deliver() {
	var segment []byte
	if n.reasm.total > 0 {
		segment = n.mm.AllocSize(int64(n.reasm.total))
		copy(segment, n.reasm.buf)
	}
	if err := n.pool.Dispatch(n.up, segment); err != nil {
		nlog.Errorf("netw: failed to dispatch transport task: %v", err)
		n.st.Inc(stats.PoolRejected)
		n.mm.Free(segment)
	} else if cmn.Rom.Verbose() {
		nlog.Infof("netw: reassembly complete for id %d, %d byte(s) delivered",
			n.reasm.id, n.reasm.total)
	}
	n.clearReassembly()
}

// clearReassembly runs under n.mu.
func (n *Netw) clearReassembly() {
	if n.reasm.buf != nil {
		n.mm.Free(n.reasm.buf)
	}
	n.reasm = reassembly{}
	debug.Assert(!n.reasm.inUse && n.reasm.buf == nil)
}

// Housekeep sweeps a stale reassembly so a quiet wire does not pin its
// buffer; registered with the housekeeper.
func (n *Netw) Housekeep() time.Duration {
	n.mu.Lock()
	if n.reasm.inUse && mono.SinceNano(n.reasm.lastFrag) > n.timeout.Nanoseconds() {
		nlog.Infof("netw: housekeeping expired reassembly id %d", n.reasm.id)
		n.st.Inc(stats.ReasmTimeout)
		n.clearReassembly()
	}
	n.mu.Unlock()
	return n.timeout
}

// Shutdown drops any in-progress reassembly.
func (n *Netw) Shutdown() {
	n.mu.Lock()
	n.clearReassembly()
	n.mu.Unlock()
}
