// Package cos provides common low-level types and utilities for all shmstack packages
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package cos

import (
	"unsafe"
)

// assorted multiplicative constants
const (
	MLCG32 = 1103515245 // xxhash seed
)

const (
	KiB = 1024
	MiB = 1024 * KiB
)

// UnsafeS casts bytes to an immutable string - the caller must not mutate b afterwards.
func UnsafeS(b []byte) string { return *(*string)(unsafe.Pointer(&b)) }

// UnsafeB casts a string to bytes - read-only usage.
func UnsafeB(s string) []byte {
	p := unsafe.StringData(s)
	return unsafe.Slice(p, len(s))
}

func Plural(num int) (s string) {
	if num != 1 && num != -1 {
		s = "s"
	}
	return
}
