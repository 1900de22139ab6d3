// Package cos provides common low-level types and utilities for all shmstack packages
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package cos

import (
	"math/rand"

	"github.com/shmstack/shmstack/cmn/mono"
)

func NowRand() *rand.Rand { return rand.New(rand.NewSource(mono.NanoTime())) }
