//go:build !mono

// Package mono provides low-level monotonic time
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package mono

import "time"

var started = time.Now()

func NanoTime() int64 { return int64(time.Since(started)) }
