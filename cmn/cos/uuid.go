// Package cos provides common low-level types and utilities for all shmstack packages
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package cos

import (
	"github.com/OneOfOne/xxhash"
	"github.com/shmstack/shmstack/cmn/atomic"
	"github.com/teris-io/shortid"
)

// Alphabet for generating UUIDs similar to the shortid.DEFAULT_ABC
// NOTE: len(uuidABC) > 0x3f - see GenTie()
const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const LenRunID = 9 // run ID length, as per https://github.com/teris-io/shortid#id-length

var (
	sid  *shortid.Shortid
	rtie atomic.Uint32
)

func InitShortID(seed uint64) {
	sid = shortid.MustNew(4 /*worker*/, uuidABC, seed)
}

// GenRunID locally generates a unique-enough per-process run identifier.
func GenRunID() (runID string) {
	var h, t string
	runID = sid.MustGenerate()
	if !isAlpha(runID[0]) {
		tie := int(rtie.Add(1))
		h = string(rune('A' + tie%26))
	}
	c := runID[len(runID)-1]
	if c == '-' || c == '_' {
		tie := int(rtie.Add(1))
		t = string(rune('a' + tie%26))
	}
	return h + runID + t
}

// 3-letter tie breaker (fast)
func GenTie() string {
	tie := rtie.Add(1)
	b0 := uuidABC[tie&0x3f]
	b1 := uuidABC[-tie&0x3f]
	b2 := uuidABC[(tie>>2)&0x3f]
	return string([]byte{b0, b1, b2})
}

// DigestS hashes a name into a stable 64-bit digest.
func DigestS(name string) uint64 {
	return xxhash.Checksum64S(UnsafeB(name), MLCG32)
}

//
// instance-ID validation (IDs become shared-memory object names)
//

const tooLongID = 32

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// letters and numbers w/ '-' and '_' permitted with limitations
func IsAlphaNice(s string) bool {
	l := len(s)
	if l == 0 || l > tooLongID {
		return false
	}
	for i := 0; i < l; i++ {
		c := s[i]
		if isAlpha(c) || (c >= '0' && c <= '9') {
			continue
		}
		if c != '-' && c != '_' {
			return false
		}
		if i == 0 || i == l-1 {
			return false
		}
	}
	return true
}
