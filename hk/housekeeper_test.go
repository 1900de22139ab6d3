// Package hk provides mechanism for registering cleanup
// functions which are invoked at specified intervals.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package hk_test

import (
	"time"

	"github.com/shmstack/shmstack/cmn/atomic"
	"github.com/shmstack/shmstack/hk"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Housekeeper", func() {
	It("should invoke a registered cleanup on its interval", func() {
		var calls atomic.Int64
		hk.Reg("interval"+hk.NameSuffix, func() time.Duration {
			calls.Inc()
			return 20 * time.Millisecond
		}, 20*time.Millisecond)
		defer hk.Unreg("interval" + hk.NameSuffix)

		Eventually(func() int64 { return calls.Load() }, 3*time.Second, 10*time.Millisecond).
			Should(BeNumerically(">=", 3))
	})

	It("should stop invoking after unregistration", func() {
		var calls atomic.Int64
		hk.Reg("unreg"+hk.NameSuffix, func() time.Duration {
			calls.Inc()
			return 10 * time.Millisecond
		}, 10*time.Millisecond)

		Eventually(func() int64 { return calls.Load() }, 3*time.Second, 5*time.Millisecond).
			Should(BeNumerically(">=", 1))
		hk.Unreg("unreg" + hk.NameSuffix)

		time.Sleep(50 * time.Millisecond) // let the in-flight tick settle
		seen := calls.Load()
		Consistently(func() int64 { return calls.Load() }, 200*time.Millisecond, 20*time.Millisecond).
			Should(Equal(seen))
	})

	It("should honor each action's own interval", func() {
		var fast, slow atomic.Int64
		hk.Reg("fast"+hk.NameSuffix, func() time.Duration {
			fast.Inc()
			return 10 * time.Millisecond
		}, 10*time.Millisecond)
		hk.Reg("slow"+hk.NameSuffix, func() time.Duration {
			slow.Inc()
			return 300 * time.Millisecond
		}, 300*time.Millisecond)
		defer func() {
			hk.Unreg("fast" + hk.NameSuffix)
			hk.Unreg("slow" + hk.NameSuffix)
		}()

		Eventually(func() int64 { return fast.Load() }, 3*time.Second, 10*time.Millisecond).
			Should(BeNumerically(">=", 5))
		Expect(slow.Load()).To(BeNumerically("<=", fast.Load()))
	})
})
