// Package wire owns the shared-memory mailbox and named counting semaphore
// that stand in for the physical medium between two instances.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package wire

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shmstack/shmstack/cmn"
	"github.com/shmstack/shmstack/cmn/cos"
	"github.com/shmstack/shmstack/cmn/debug"
	"github.com/shmstack/shmstack/cmn/nlog"
	"github.com/shmstack/shmstack/memsys"
	"github.com/shmstack/shmstack/stats"
)

// MailboxSize is the wire contract: a single-slot 2048-byte buffer, not a
// queue. A second post before the receiver consumes silently overwrites -
// ordering at the wire is best-effort with no duplicate suppression.
const MailboxSize = 2048

var (
	ErrSelfSend    = fmt.Errorf("attempted to send to self")
	ErrFrameTooBig = fmt.Errorf("frame exceeds mailbox size %d", MailboxSize)
)

type Wire struct {
	srcID, dstID string
	mbox         []byte // local mailbox mapping
	sem          *Sem   // local semaphore
	onBlock      func(owned []byte)
	mm           *memsys.MMSA
	st           *stats.Tracker
	pollIval     time.Duration
	stopCh       cos.StopCh
	poller       sync.WaitGroup
}

func New(srcID, dstID string, cfg *cmn.Config, mm *memsys.MMSA, st *stats.Tracker) *Wire {
	w := &Wire{
		srcID:    srcID,
		dstID:    dstID,
		mm:       mm,
		st:       st,
		pollIval: cfg.Timeout.PollIval.D(),
	}
	w.stopCh.Init()
	return w
}

// Bind sets the upward sink invoked with each received 2048-byte block;
// ownership of the block transfers to the sink.
func (w *Wire) Bind(onBlock func(owned []byte)) { w.onBlock = onBlock }

// Init unlinks stale objects sharing this instance's name, creates the
// mailbox and semaphore, and starts the poller.
func (w *Wire) Init() error {
	debug.Assert(w.onBlock != nil)
	if err := shmUnlink(w.srcID); err != nil {
		return errors.Wrap(err, "failed to unlink stale mailbox")
	}
	if err := shmUnlink(semName(w.srcID)); err != nil {
		return errors.Wrap(err, "failed to unlink stale semaphore")
	}
	mbox, err := shmOpen(w.srcID, MailboxSize, true /*create*/)
	if err != nil {
		return errors.Wrap(err, "failed to create mailbox")
	}
	clear(mbox)
	sem, err := openSem(w.srcID, true /*create*/)
	if err != nil {
		shmUnmap(mbox)
		shmUnlink(w.srcID)
		return errors.Wrap(err, "failed to create semaphore")
	}
	w.mbox, w.sem = mbox, sem
	if cmn.Rom.Verbose() {
		nlog.Infof("wire: listening on %q (sem %q)", w.srcID, semName(w.srcID))
	}
	w.poller.Add(1)
	go w.poll()
	return nil
}

// poll repeatedly try-waits the local semaphore; on success the entire
// mailbox is copied into a fresh buffer and handed upward.
func (w *Wire) poll() {
	defer w.poller.Done()
	for {
		if w.sem.TryWait() {
			block := w.mm.AllocSize(MailboxSize)
			copy(block, w.mbox)
			w.st.Inc(stats.WireBlocks)
			if cmn.Rom.Verbose() {
				nlog.Infof("wire: %s received block %s", w.srcID, preview(block))
			}
			w.onBlock(block)
		} else {
			time.Sleep(w.pollIval)
		}
		select {
		case <-w.stopCh.Listen():
			if cmn.Rom.Verbose() {
				nlog.Infof("wire: %s poller exiting", w.srcID)
			}
			return
		default:
		}
	}
}

// Send writes the frame into the peer's mailbox and posts the peer's
// semaphore. Best-effort: never blocks, never retries; a missing peer is
// an error returned up the synchronous call chain.
func (w *Wire) Send(frame []byte) error {
	if w.srcID == w.dstID {
		return ErrSelfSend
	}
	if len(frame) > MailboxSize {
		return ErrFrameTooBig
	}
	if len(frame) == 0 {
		nlog.Warningf("wire: sending zero-length frame to %q", w.dstID)
	}
	if !shmExists(semName(w.dstID)) {
		return cos.NewErrNotFound("peer %q", w.dstID)
	}
	sem, err := openSem(w.dstID, false /*create*/)
	if err != nil {
		return cos.NewErrNotFound("peer %q", w.dstID)
	}
	defer sem.Close()
	mbox, err := shmOpen(w.dstID, MailboxSize, false /*create*/)
	if err != nil {
		return cos.NewErrNotFound("peer %q mailbox", w.dstID)
	}
	copy(mbox, frame)
	sem.Post()
	w.st.Inc(stats.FramesSent)
	if cmn.Rom.Verbose() {
		nlog.Infof("wire: sent %d byte(s) to %q", len(frame), w.dstID)
	}
	return shmUnmap(mbox)
}

// Shutdown stops the poller, then unmaps and unlinks the local objects.
func (w *Wire) Shutdown() {
	w.stopCh.Close()
	w.poller.Wait()
	if w.mbox != nil {
		shmUnmap(w.mbox)
		w.mbox = nil
	}
	if w.sem != nil {
		w.sem.Close()
		w.sem.Unlink()
		w.sem = nil
	}
	shmUnlink(w.srcID)
	if cmn.Rom.Verbose() {
		nlog.Infof("wire: %s shutdown complete", w.srcID)
	}
}

// preview renders the leading mailbox bytes for debug logging
// (non-printable bytes as dots).
func preview(b []byte) string {
	const max = 32
	n := min(len(b), max)
	p := make([]byte, n)
	for i := 0; i < n; i++ {
		c := b[i]
		if c >= 0x20 && c < 0x7f {
			p[i] = c
		} else {
			p[i] = '.'
		}
	}
	return "[" + string(p) + "]"
}
