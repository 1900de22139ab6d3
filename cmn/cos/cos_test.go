// Package cos provides common low-level types and utilities for all shmstack packages
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package cos_test

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shmstack/shmstack/cmn/cos"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Duration", func() {
	It("should round-trip through JSON", func() {
		type wrap struct {
			D cos.Duration `json:"d"`
		}
		in := wrap{D: cos.Duration(100 * time.Millisecond)}
		b, err := jsoniter.Marshal(in)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal(`{"d":"100ms"}`))

		var out wrap
		Expect(jsoniter.Unmarshal(b, &out)).NotTo(HaveOccurred())
		Expect(out.D.D()).To(Equal(100 * time.Millisecond))
	})

	It("should reject malformed values", func() {
		var d cos.Duration
		Expect(jsoniter.Unmarshal([]byte(`"ten seconds"`), &d)).To(HaveOccurred())
	})
})

var _ = Describe("RunID", func() {
	BeforeEach(func() {
		cos.InitShortID(42)
	})

	It("should generate distinct well-formed IDs", func() {
		seen := make(map[string]bool, 100)
		for i := 0; i < 100; i++ {
			id := cos.GenRunID()
			Expect(len(id)).To(BeNumerically(">=", cos.LenRunID))
			Expect(seen[id]).To(BeFalse())
			seen[id] = true
		}
	})

	It("should generate 3-letter tie breakers", func() {
		Expect(cos.GenTie()).To(HaveLen(3))
	})
})

var _ = Describe("DigestS", func() {
	It("should be stable and name-sensitive", func() {
		Expect(cos.DigestS("alpha")).To(Equal(cos.DigestS("alpha")))
		Expect(cos.DigestS("alpha")).NotTo(Equal(cos.DigestS("beta")))
	})
})

var _ = Describe("IsAlphaNice", func() {
	It("should accept plain identifiers", func() {
		for _, s := range []string{"A", "nodeA", "st-1", "a_b_c", "X42"} {
			Expect(cos.IsAlphaNice(s)).To(BeTrue(), s)
		}
	})
	It("should reject separators and edge dashes", func() {
		for _, s := range []string{"", "-lead", "trail-", "a/b", "a.b", "../x", "with space"} {
			Expect(cos.IsAlphaNice(s)).To(BeFalse(), s)
		}
	})
})

var _ = Describe("StopCh", func() {
	It("should close exactly once", func() {
		sch := cos.NewStopCh()
		sch.Close()
		sch.Close() // second close must not panic
		Eventually(sch.Listen()).Should(BeClosed())
	})
})

var _ = Describe("Errs", func() {
	It("should deduplicate identical errors", func() {
		var errs cos.Errs
		for i := 0; i < 3; i++ {
			errs.Add(errors.New("same"))
		}
		Expect(errs.Cnt()).To(Equal(1))
		errs.Add(errors.New("other"))
		cnt, joined := errs.JoinErr()
		Expect(cnt).To(Equal(2))
		Expect(joined).To(HaveOccurred())
	})
})

var _ = Describe("ErrNotFound", func() {
	It("should be detectable through wrapping", func() {
		err := cos.NewErrNotFound("peer %q", "B")
		Expect(cos.IsErrNotFound(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("does not exist"))
	})
})
