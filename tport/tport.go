// Package tport implements the UDP-like transport: a fixed 8-byte header
// prepended on egress and stripped on ingress.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package tport

import (
	"encoding/binary"

	"github.com/shmstack/shmstack/cmn"
	"github.com/shmstack/shmstack/cmn/nlog"
	"github.com/shmstack/shmstack/memsys"
	"github.com/shmstack/shmstack/netw"
	"github.com/shmstack/shmstack/stats"
	"github.com/shmstack/shmstack/work"
)

// Header layout (8 bytes, big-endian):
// src_port:u16 | dest_port:u16 | length:u16 | checksum:u16
const (
	HdrSize = 8

	offSrcPort  = 0
	offDstPort  = 2
	offLength   = 4
	offChecksum = 6
)

type (
	Hdr struct {
		SrcPort  uint16
		DstPort  uint16
		Length   uint16 // header + payload
		Checksum uint16 // present, never validated
	}

	// Downlink is the egress side of the network layer.
	Downlink interface {
		Send(segment []byte, proto uint8) error
	}

	Tport struct {
		net  Downlink
		up   func(owned []byte) // application ingress
		pool work.Dispatcher
		mm   *memsys.MMSA
		st   *stats.Tracker
	}
)

func New(mm *memsys.MMSA, pool work.Dispatcher, st *stats.Tracker) *Tport {
	return &Tport{mm: mm, pool: pool, st: st}
}

func (t *Tport) Bind(net Downlink, up func(owned []byte)) { t.net, t.up = net, up }

func (h *Hdr) Pack(b []byte) {
	binary.BigEndian.PutUint16(b[offSrcPort:], h.SrcPort)
	binary.BigEndian.PutUint16(b[offDstPort:], h.DstPort)
	binary.BigEndian.PutUint16(b[offLength:], h.Length)
	binary.BigEndian.PutUint16(b[offChecksum:], h.Checksum)
}

func UnpackHdr(b []byte) (h Hdr) {
	h.SrcPort = binary.BigEndian.Uint16(b[offSrcPort:])
	h.DstPort = binary.BigEndian.Uint16(b[offDstPort:])
	h.Length = binary.BigEndian.Uint16(b[offLength:])
	h.Checksum = binary.BigEndian.Uint16(b[offChecksum:])
	return
}

// Send prepends the header and hands the segment to the network layer.
func (t *Tport) Send(payload []byte, srcPort, dstPort uint16) error {
	segLen := HdrSize + len(payload)
	seg := t.mm.AllocSize(int64(segLen))
	h := Hdr{SrcPort: srcPort, DstPort: dstPort, Length: uint16(segLen)}
	h.Pack(seg)
	copy(seg[HdrSize:], payload)
	if cmn.Rom.Verbose() {
		nlog.Infof("tport: sending %d byte(s) from port %d to port %d", len(payload), srcPort, dstPort)
	}
	err := t.net.Send(seg, netw.ProtoUDP)
	t.mm.Free(seg)
	return err
}

// Recv strips the header and dispatches the application payload upward.
// The segment is owned by this call and released on every path.
func (t *Tport) Recv(seg []byte) {
	defer t.mm.Free(seg)
	if len(seg) < HdrSize {
		if cmn.Rom.Verbose() {
			nlog.Warningf("tport: segment too small for header (%d byte(s)), discarding", len(seg))
		}
		return
	}
	h := UnpackHdr(seg)
	if h.Length < HdrSize {
		nlog.Warningf("tport: header length %d < header size, discarding", h.Length)
		return
	}
	if int(h.Length) > len(seg) {
		nlog.Warningf("tport: header length %d exceeds segment size %d, discarding", h.Length, len(seg))
		return
	}
	if cmn.Rom.Verbose() {
		nlog.Infof("tport: received segment src=%d dst=%d length=%d", h.SrcPort, h.DstPort, h.Length)
	}
	var payload []byte
	if size := int(h.Length) - HdrSize; size > 0 {
		payload = t.mm.AllocSize(int64(size))
		copy(payload, seg[HdrSize:h.Length])
	}
	if err := t.pool.Dispatch(t.up, payload); err != nil {
		nlog.Errorf("tport: failed to dispatch application task: %v", err)
		t.st.Inc(stats.PoolRejected)
		t.mm.Free(payload)
		return
	}
	t.st.Inc(stats.SegsDelivered)
}
