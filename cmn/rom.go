// Package cmn provides common constants, types, and utilities for shmstack packages
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package cmn

import (
	"time"
)

// read-mostly and most often used knobs: assigned at startup to keep the
// per-frame hot path free of config lookups

type readMostly struct {
	timeout struct {
		reassembly time.Duration
		pollIval   time.Duration
	}
	verbose bool
}

var Rom readMostly

func init() {
	Rom.timeout.reassembly = DfltReasmTimeout
	Rom.timeout.pollIval = DfltPollIval
}

func (rom *readMostly) Set(cfg *Config) {
	rom.timeout.reassembly = cfg.Timeout.Reassembly.D()
	rom.timeout.pollIval = cfg.Timeout.PollIval.D()
	rom.verbose = cfg.Log.Verbose
}

func (rom *readMostly) ReassemblyTimeout() time.Duration { return rom.timeout.reassembly }
func (rom *readMostly) PollIval() time.Duration          { return rom.timeout.pollIval }
func (rom *readMostly) Verbose() bool                    { return rom.verbose }
