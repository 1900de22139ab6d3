// Package netw implements the IPv4-like network layer: header checksum,
// fragmentation on egress, single-slot reassembly with timeout on ingress.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package netw

import (
	"encoding/binary"
)

// Header layout (9 bytes, all multi-byte fields big-endian on the wire):
// total_length:u16 | identification:u16 | flags_fragment_offset:u16 |
// protocol:u8 | header_checksum:u16
const (
	HdrSize = 9

	offTotalLen = 0
	offID       = 2
	offFlags    = 4
	offProto    = 6
	offChecksum = 7
)

const (
	FlagMF     = 0x2000 // more fragments follow
	FlagDF     = 0x4000 // don't fragment
	OffsetMask = 0x1FFF // offset, in 8-byte units

	// ProtoUDP is the upper-layer protocol number of the UDP-like transport.
	ProtoUDP = 17
)

type Hdr struct {
	TotalLength uint16
	ID          uint16
	FlagsOffset uint16
	Proto       uint8
	Checksum    uint16
}

func (h *Hdr) Pack(b []byte) {
	binary.BigEndian.PutUint16(b[offTotalLen:], h.TotalLength)
	binary.BigEndian.PutUint16(b[offID:], h.ID)
	binary.BigEndian.PutUint16(b[offFlags:], h.FlagsOffset)
	b[offProto] = h.Proto
	binary.BigEndian.PutUint16(b[offChecksum:], h.Checksum)
}

func UnpackHdr(b []byte) (h Hdr) {
	h.TotalLength = binary.BigEndian.Uint16(b[offTotalLen:])
	h.ID = binary.BigEndian.Uint16(b[offID:])
	h.FlagsOffset = binary.BigEndian.Uint16(b[offFlags:])
	h.Proto = b[offProto]
	h.Checksum = binary.BigEndian.Uint16(b[offChecksum:])
	return
}

func (h *Hdr) MoreFragments() bool { return h.FlagsOffset&FlagMF != 0 }
func (h *Hdr) OffsetBytes() int    { return int(h.FlagsOffset&OffsetMask) * 8 }

// InetChecksum is the Internet checksum: one's-complement of the
// one's-complement 16-bit word sum, an odd trailing byte zero-padded.
func InetChecksum(b []byte) uint16 {
	var sum uint32
	for len(b) > 1 {
		sum += uint32(binary.BigEndian.Uint16(b))
		b = b[2:]
	}
	if len(b) == 1 {
		sum += uint32(b[0]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xFFFF + sum>>16
	}
	return ^uint16(sum)
}

// hdrChecksum computes the header checksum with the checksum field zeroed.
func hdrChecksum(hdr []byte) uint16 {
	var scratch [HdrSize]byte
	copy(scratch[:], hdr[:HdrSize])
	scratch[offChecksum] = 0
	scratch[offChecksum+1] = 0
	return InetChecksum(scratch[:])
}
