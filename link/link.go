// Package link implements byte-stuffed framing: flag-delimited frames
// carrying {protocol, info, checksum} content over the shared-memory wire.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package link

import (
	"fmt"

	"github.com/shmstack/shmstack/cmn"
	"github.com/shmstack/shmstack/cmn/nlog"
	"github.com/shmstack/shmstack/memsys"
	"github.com/shmstack/shmstack/stats"
	"github.com/shmstack/shmstack/work"
)

const (
	Flag    = 0x7E // frame delimiter
	Esc     = 0x7D // escape introducer
	xorMask = 0x20

	ProtoSize    = 2
	ChecksumSize = 1
	MaxInfoSize  = 1500
	MaxContent   = ProtoSize + MaxInfoSize + ChecksumSize

	// worst case: every content byte stuffed, plus two flags
	maxStuffed = MaxContent*2 + 2

	// ProtoIP is the protocol field value for IP-carrying frames.
	ProtoIP = 0x0800
)

var errInfoTooBig = fmt.Errorf("payload exceeds maximum info size %d", MaxInfoSize)

type (
	// Downlink is the sender side of the wire.
	Downlink interface {
		Send(frame []byte) error
	}

	Link struct {
		wire Downlink
		up   func(owned []byte) // network ingress
		pool work.Dispatcher
		mm   *memsys.MMSA
		st   *stats.Tracker
	}
)

func New(mm *memsys.MMSA, pool work.Dispatcher, st *stats.Tracker) *Link {
	return &Link{mm: mm, pool: pool, st: st}
}

func (l *Link) Bind(wire Downlink, up func(owned []byte)) { l.wire, l.up = wire, up }

// Checksum is the 1-byte frame checksum: byte sum mod 256.
func Checksum(content []byte) byte {
	var sum uint32
	for _, b := range content {
		sum += uint32(b)
	}
	return byte(sum)
}

//
// egress
//

// Send wraps the payload into {protocol | payload | checksum}, stuffs it,
// delimits with flags, and hands the frame to the wire.
func (l *Link) Send(proto uint16, payload []byte) error {
	if len(payload) > MaxInfoSize {
		return errInfoTooBig
	}
	contentLen := ProtoSize + len(payload) + ChecksumSize
	content := l.mm.AllocSize(int64(contentLen))
	content[0] = byte(proto >> 8)
	content[1] = byte(proto)
	copy(content[ProtoSize:], payload)
	content[contentLen-1] = Checksum(content[:contentLen-1])

	frame := l.mm.AllocSize(maxStuffed)
	n := 0
	frame[n] = Flag
	n++
	for _, b := range content[:contentLen] {
		if b == Flag || b == Esc {
			frame[n] = Esc
			frame[n+1] = b ^ xorMask
			n += 2
		} else {
			frame[n] = b
			n++
		}
	}
	frame[n] = Flag
	n++
	l.mm.Free(content)
	if n > maxStuffed { // unreachable for legal payloads
		l.mm.Free(frame)
		return fmt.Errorf("stuffed frame size %d exceeds maximum %d", n, maxStuffed)
	}
	if cmn.Rom.Verbose() {
		nlog.Infof("link: sending frame, content %d byte(s), stuffed %d", contentLen, n)
	}
	err := l.wire.Send(frame[:n])
	l.mm.Free(frame)
	return err
}

//
// ingress
//

type scanState int

const (
	outside scanState = iota
	inside
	insideEscaped
)

// Recv scans a raw wire block for flag-delimited frames, destuffs and
// checksum-validates each, and dispatches every valid network PDU upward.
// The block is owned by this call and released before returning; frames
// never span blocks, so a trailing partial frame is dropped.
func (l *Link) Recv(block []byte) {
	var (
		buf   [MaxContent]byte
		n     int
		state = outside
	)
	for _, b := range block {
		switch state {
		case outside:
			if b == Flag {
				state, n = inside, 0
			}
			// any other byte: unused tail of the mailbox, ignore
		case inside:
			switch b {
			case Flag:
				l.frameEnd(buf[:n])
				state = outside
			case Esc:
				state = insideEscaped
			default:
				if n >= MaxContent {
					nlog.Warningln("link: frame buffer overflow, discarding frame")
					l.st.Inc(stats.FrameDropFmt)
					state = outside
					continue
				}
				buf[n] = b
				n++
			}
		case insideEscaped:
			var unescaped byte
			switch b {
			case Esc ^ xorMask:
				unescaped = Esc
			case Flag ^ xorMask:
				unescaped = Flag
			default:
				if cmn.Rom.Verbose() {
					nlog.Warningf("link: invalid byte 0x%02X after escape, discarding frame", b)
				}
				l.st.Inc(stats.FrameDropFmt)
				state = outside
				continue
			}
			if n >= MaxContent {
				nlog.Warningln("link: frame buffer overflow, discarding frame")
				l.st.Inc(stats.FrameDropFmt)
				state = outside
				continue
			}
			buf[n] = unescaped
			n++
			state = inside
		}
	}
	if state != outside && cmn.Rom.Verbose() {
		nlog.Infoln("link: partial frame at end of block, dropped")
	}
	l.mm.Free(block)
}

// frameEnd validates a destuffed frame's content and dispatches the
// network PDU {protocol | info} upward.
func (l *Link) frameEnd(content []byte) {
	if len(content) < ProtoSize+ChecksumSize {
		if cmn.Rom.Verbose() {
			nlog.Warningf("link: frame content too short (%d byte(s)), discarding", len(content))
		}
		l.st.Inc(stats.FrameDropFmt)
		return
	}
	var (
		received   = content[len(content)-1]
		calculated = Checksum(content[:len(content)-ChecksumSize])
	)
	if received != calculated {
		if cmn.Rom.Verbose() {
			nlog.Warningf("link: checksum mismatch (got 0x%02X, want 0x%02X), discarding frame",
				received, calculated)
		}
		l.st.Inc(stats.FrameDropSum)
		return
	}
	pduLen := len(content) - ChecksumSize
	pdu := l.mm.AllocSize(int64(pduLen))
	copy(pdu, content[:pduLen])
	if err := l.pool.Dispatch(l.up, pdu); err != nil {
		nlog.Errorf("link: failed to dispatch network task: %v", err)
		l.st.Inc(stats.PoolRejected)
		l.mm.Free(pdu)
		return
	}
	l.st.Inc(stats.FramesRecv)
}
