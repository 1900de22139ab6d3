// Package stats provides methods and functionality to register, track, and
// log statistics for the packet pipeline, with a Prometheus backend.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package stats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shmstack/shmstack/cmn/atomic"
	"github.com/shmstack/shmstack/cmn/nlog"
)

// tracked counters
const (
	FramesSent    = "frames.sent"
	FramesRecv    = "frames.recv"
	FrameDropSum  = "frames.drop.checksum"
	FrameDropFmt  = "frames.drop.format"
	FragsSent     = "frags.sent"
	FragsRecv     = "frags.recv"
	FragDropSum   = "frags.drop.checksum"
	FragDropRefus = "frags.drop.refused"
	ReasmEvicted  = "reasm.evicted"
	ReasmTimeout  = "reasm.timeout"
	SegsDelivered = "segs.delivered"
	MsgsDelivered = "msgs.delivered"
	PoolRejected  = "pool.rejected"
	WireBlocks    = "wire.blocks"
)

var allNames = []string{
	FramesSent, FramesRecv, FrameDropSum, FrameDropFmt,
	FragsSent, FragsRecv, FragDropSum, FragDropRefus,
	ReasmEvicted, ReasmTimeout,
	SegsDelivered, MsgsDelivered, PoolRejected, WireBlocks,
}

type (
	statsValue struct {
		prom prometheus.Counter
		// local value is the source of truth; prom mirrors it for scraping
		value atomic.Int64
	}
	Tracker struct {
		reg     *prometheus.Registry
		tracker map[string]*statsValue
		runID   string
	}
)

// NewTracker registers all pipeline counters on a private registry,
// labeled with this process's run ID. There is deliberately no listener:
// counters are logged at shutdown and read directly by tests.
func NewTracker(runID string) *Tracker {
	t := &Tracker{
		reg:     prometheus.NewRegistry(),
		tracker: make(map[string]*statsValue, len(allNames)),
		runID:   runID,
	}
	for _, name := range allNames {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "shmstack",
			Name:        strings.ReplaceAll(name, ".", "_"),
			ConstLabels: prometheus.Labels{"run_id": runID},
		})
		t.reg.MustRegister(c)
		t.tracker[name] = &statsValue{prom: c}
	}
	return t
}

func (t *Tracker) Inc(name string) { t.Add(name, 1) }

func (t *Tracker) Add(name string, val int64) {
	v, ok := t.tracker[name]
	if !ok {
		return
	}
	v.value.Add(val)
	v.prom.Add(float64(val))
}

func (t *Tracker) Get(name string) int64 {
	if v, ok := t.tracker[name]; ok {
		return v.value.Load()
	}
	return 0
}

func (t *Tracker) Registry() *prometheus.Registry { return t.reg }

// Log writes a snapshot of all non-zero counters.
func (t *Tracker) Log() {
	names := make([]string, 0, len(t.tracker))
	for name := range t.tracker {
		if t.Get(name) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return
	}
	sort.Strings(names)
	var sb strings.Builder
	sb.WriteString("stats[" + t.runID + "]:")
	for _, name := range names {
		sb.WriteString(" " + name + "=")
		sb.WriteString(strconv.FormatInt(t.Get(name), 10))
	}
	nlog.Infoln(sb.String())
}
