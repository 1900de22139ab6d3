// Package tport implements the UDP-like transport: a fixed 8-byte header
// prepended on egress and stripped on ingress.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package tport_test

import (
	"bytes"
	"testing"

	"github.com/shmstack/shmstack/memsys"
	"github.com/shmstack/shmstack/netw"
	"github.com/shmstack/shmstack/stats"
	"github.com/shmstack/shmstack/tport"
)

type (
	syncPool struct{}
	fakeNetw struct {
		segs   [][]byte
		protos []uint8
		err    error
	}
)

func (syncPool) Dispatch(fn func([]byte), buf []byte) error { fn(buf); return nil }

func (n *fakeNetw) Send(seg []byte, proto uint8) error {
	if n.err != nil {
		return n.err
	}
	n.segs = append(n.segs, append([]byte(nil), seg...))
	n.protos = append(n.protos, proto)
	return nil
}

type harness struct {
	mm       *memsys.MMSA
	tp       *tport.Tport
	net      *fakeNetw
	payloads [][]byte
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		mm:  memsys.NewMMSA("test"),
		net: &fakeNetw{},
	}
	h.tp = tport.New(h.mm, syncPool{}, stats.NewTracker("test"))
	h.tp.Bind(h.net, func(payload []byte) {
		if payload == nil {
			h.payloads = append(h.payloads, nil)
		} else {
			h.payloads = append(h.payloads, append([]byte(nil), payload...))
		}
		h.mm.Free(payload)
	})
	return h
}

func TestSendHeader(t *testing.T) {
	h := newHarness(t)
	if err := h.tp.Send([]byte("data"), 12345, 54321); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(h.net.segs) != 1 || h.net.protos[0] != netw.ProtoUDP {
		t.Fatalf("segment not handed to the network layer with protocol 17")
	}
	seg := h.net.segs[0]
	if len(seg) != tport.HdrSize+4 {
		t.Fatalf("segment length %d", len(seg))
	}
	hdr := tport.UnpackHdr(seg)
	if hdr.SrcPort != 12345 || hdr.DstPort != 54321 {
		t.Fatalf("ports %d -> %d", hdr.SrcPort, hdr.DstPort)
	}
	if int(hdr.Length) != len(seg) || hdr.Checksum != 0 {
		t.Fatalf("length=%d checksum=%d", hdr.Length, hdr.Checksum)
	}
	if !bytes.Equal(seg[tport.HdrSize:], []byte("data")) {
		t.Fatal("payload mismatch")
	}
}

func TestSendEmptyPayload(t *testing.T) {
	h := newHarness(t)
	if err := h.tp.Send(nil, 1, 2); err != nil {
		t.Fatalf("send: %v", err)
	}
	if hdr := tport.UnpackHdr(h.net.segs[0]); hdr.Length != tport.HdrSize {
		t.Fatalf("length=%d, want %d", hdr.Length, tport.HdrSize)
	}
}

func TestSendPropagatesNetworkError(t *testing.T) {
	h := newHarness(t)
	h.net.err = bytes.ErrTooLarge
	if err := h.tp.Send([]byte("x"), 1, 2); err == nil {
		t.Fatal("expected network error to propagate")
	}
}

func TestRecvRoundTrip(t *testing.T) {
	h := newHarness(t)
	if err := h.tp.Send([]byte("roundtrip"), 7, 8); err != nil {
		t.Fatalf("send: %v", err)
	}
	seg := h.mm.AllocSize(int64(len(h.net.segs[0])))
	copy(seg, h.net.segs[0])
	h.tp.Recv(seg)
	if len(h.payloads) != 1 || !bytes.Equal(h.payloads[0], []byte("roundtrip")) {
		t.Fatalf("payloads: %q", h.payloads)
	}
}

func TestRecvZeroPayload(t *testing.T) {
	h := newHarness(t)
	var hdr tport.Hdr
	hdr.Length = tport.HdrSize
	seg := make([]byte, tport.HdrSize)
	hdr.Pack(seg)
	h.tp.Recv(seg)
	if len(h.payloads) != 1 || h.payloads[0] != nil {
		t.Fatalf("zero payload: %v", h.payloads)
	}
}

func TestRecvDrops(t *testing.T) {
	h := newHarness(t)

	// too small for a header
	h.tp.Recv([]byte{1, 2, 3})

	// length field below the header size
	bad := make([]byte, tport.HdrSize+2)
	(&tport.Hdr{Length: tport.HdrSize - 1}).Pack(bad)
	h.tp.Recv(bad)

	// length field beyond the delivered segment
	lying := make([]byte, tport.HdrSize)
	(&tport.Hdr{Length: tport.HdrSize + 100}).Pack(lying)
	h.tp.Recv(lying)

	// zero-size datagram from the network layer (no segment at all)
	h.tp.Recv(nil)

	if len(h.payloads) != 0 {
		t.Fatalf("malformed segments delivered: %q", h.payloads)
	}
}

func TestRecvIgnoresTrailingBytes(t *testing.T) {
	// the length field, not the segment size, bounds the payload
	h := newHarness(t)
	seg := make([]byte, tport.HdrSize+10)
	(&tport.Hdr{Length: tport.HdrSize + 4}).Pack(seg)
	copy(seg[tport.HdrSize:], "fourXXXXXX")
	h.tp.Recv(seg)
	if len(h.payloads) != 1 || !bytes.Equal(h.payloads[0], []byte("four")) {
		t.Fatalf("payloads: %q", h.payloads)
	}
}
