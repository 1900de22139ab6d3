// Package main is the shmstack daemon: one instance of the layered packet
// pipeline, identified by its source ID and wired to a single named peer.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shmstack/shmstack/cmn"
	"github.com/shmstack/shmstack/cmn/cos"
	"github.com/shmstack/shmstack/cmn/mono"
	"github.com/shmstack/shmstack/cmn/nlog"
	"github.com/shmstack/shmstack/stack"
	"golang.org/x/sync/errgroup"
)

const svcName = "shmstack"

var (
	build     string
	buildtime string

	configPath string
)

func init() {
	flag.StringVar(&configPath, "config", "", svcName+" configuration (JSON, optional)")
}

func printVer() {
	fmt.Printf("version %s (build %s)\n", build, buildtime)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <source_id> <destination_id>\n", svcName)
	fmt.Fprintln(os.Stderr, "  <source_id>      : identifier for this instance's mailbox")
	fmt.Fprintln(os.Stderr, "  <destination_id> : identifier of the instance to send messages to")
	flag.PrintDefaults()
}

func main() {
	if len(os.Args) == 2 && os.Args[1] == "version" {
		printVer()
		os.Exit(0)
	}
	flag.Usage = usage
	nlog.InitFlags(flag.CommandLine)
	flag.Parse()
	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}
	srcID, dstID := flag.Arg(0), flag.Arg(1)

	cfg, err := cmn.LoadConfig(configPath)
	if err != nil {
		cos.Exitf("Failed to load configuration: %v", err)
	}
	cmn.Rom.Set(cfg)
	if cfg.Log.Dir != "" {
		nlog.SetLogDirRole(cfg.Log.Dir, srcID)
	}
	nlog.SetTitle(svcName + " " + srcID + " => " + dstID)
	cos.InitShortID(uint64(mono.NanoTime()))

	s, err := stack.New(srcID, dstID, cfg, nil /*deliver: nlog only*/)
	if err != nil {
		cos.ExitLogf("Failed to initialize %s: %v", svcName, err)
	}
	nlog.Infof("%s: source %q, destination %q, run %s - press Ctrl+C to exit", svcName, srcID, dstID, s.RunID)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return inject(gctx, s, cfg) })
	group.Go(func() error { return flushLoop(gctx) })

	group.Wait()
	nlog.Infoln("shutting down...")
	s.Shutdown()
	nlog.Flush(true)
}

// inject periodically sends a sample application message to the peer;
// send failures (e.g. peer not running) are logged and do not stop the loop.
func inject(ctx context.Context, s *stack.Stack, cfg *cmn.Config) error {
	var (
		ticker = time.NewTicker(cfg.Timeout.InjectIval.D())
		count  int
	)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			count++
			msg := fmt.Sprintf("Message %d from %s to %s!", count, s.SrcID, s.DstID)
			if err := s.Send(msg, cfg.Ports.Src, cfg.Ports.Dst); err != nil {
				nlog.Errorf("failed to send message %d: %v", count, err)
			}
		}
	}
}

func flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			nlog.Flush()
		}
	}
}
