// Package stats provides methods and functionality to register, track, and
// log statistics for the packet pipeline, with a Prometheus backend.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package stats_test

import (
	"testing"

	"github.com/shmstack/shmstack/stats"
)

func TestCounters(t *testing.T) {
	st := stats.NewTracker("run1")
	st.Inc(stats.FramesSent)
	st.Add(stats.FramesSent, 2)
	st.Inc(stats.MsgsDelivered)
	if got := st.Get(stats.FramesSent); got != 3 {
		t.Fatalf("frames sent: %d", got)
	}
	if got := st.Get(stats.MsgsDelivered); got != 1 {
		t.Fatalf("messages delivered: %d", got)
	}
	if got := st.Get(stats.ReasmTimeout); got != 0 {
		t.Fatalf("untouched counter: %d", got)
	}
	st.Inc("no.such.counter") // unknown names are ignored
	st.Log()
}

func TestPrometheusExport(t *testing.T) {
	st := stats.NewTracker("run2")
	st.Add(stats.FragsSent, 5)

	mfs, err := st.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "shmstack_frags_sent" {
			continue
		}
		m := mf.GetMetric()
		if len(m) != 1 || m[0].GetCounter().GetValue() != 5 {
			t.Fatalf("unexpected metric %v", mf)
		}
		for _, lp := range m[0].GetLabel() {
			if lp.GetName() == "run_id" && lp.GetValue() != "run2" {
				t.Fatalf("run_id label %q", lp.GetValue())
			}
		}
		return
	}
	t.Fatal("shmstack_frags_sent not exported")
}
