//go:build mono

// Package mono provides low-level monotonic time
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package mono

import (
	_ "unsafe" // for go:linkname
)

// https://golang.org/pkg/runtime/?m=all#nanotime
//
//go:linkname NanoTime runtime.nanotime
func NanoTime() int64
