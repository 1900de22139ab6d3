// Package nlog - shmstack logger, provides severity levels, timestamping,
// writing, and flushing/syncing
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package nlog

import (
	"flag"
)

func InitFlags(flset *flag.FlagSet) {
	flset.BoolVar(&toStderr, "logtostderr", false, "log to standard error instead of files")
	flset.BoolVar(&alsoToStderr, "alsologtostderr", false, "log to standard error as well as files")
}

func InfoDepth(depth int, args ...any)    { log(sevInfo, depth, "", args...) }
func Infoln(args ...any)                  { log(sevInfo, 0, "", args...) }
func Infof(format string, args ...any)    { log(sevInfo, 0, format, args...) }
func Warningln(args ...any)               { log(sevWarn, 0, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 0, format, args...) }
func ErrorDepth(depth int, args ...any)   { log(sevErr, depth, "", args...) }
func Errorln(args ...any)                 { log(sevErr, 0, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, 0, format, args...) }

func SetLogDirRole(dir, role string) { logDir, logRole = dir, role }
func SetTitle(s string)              { title = s }

func InfoLogName() string { return sname() + ".INFO" }

func Flush(exit ...bool) {
	ex := len(exit) > 0 && exit[0]
	out.mw.Lock()
	if out.bw != nil {
		out.bw.Flush()
	}
	if ex && out.file != nil {
		out.file.Sync()
	}
	out.mw.Unlock()
}
