// Package wire owns the shared-memory mailbox and named counting semaphore
// that stand in for the physical medium between two instances.
/*
 * Copyright (c) 2025-2026, Shmstack Authors. All rights reserved.
 */
package wire

import (
	"os"

	"golang.org/x/sys/unix"
)

// POSIX shared-memory objects live under /dev/shm; a mailbox named "A"
// maps to /dev/shm/A, its semaphore to /dev/shm/sem_A.
const shmDir = "/dev/shm"

func shmPath(name string) string { return shmDir + "/" + name }

// shmOpen opens (optionally creating and sizing) a shared-memory object and
// maps it. The fd is not needed once the mapping exists.
func shmOpen(name string, size int, create bool) ([]byte, error) {
	flags := unix.O_RDWR
	if create {
		flags |= unix.O_CREAT
	}
	fd, err := unix.Open(shmPath(name), flags, 0o666)
	if err != nil {
		return nil, &os.PathError{Op: "shm_open", Path: shmPath(name), Err: err}
	}
	if create {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			unix.Close(fd)
			shmUnlink(name)
			return nil, &os.PathError{Op: "ftruncate", Path: shmPath(name), Err: err}
		}
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	unix.Close(fd)
	if err != nil {
		if create {
			shmUnlink(name)
		}
		return nil, &os.PathError{Op: "mmap", Path: shmPath(name), Err: err}
	}
	return mem, nil
}

func shmUnmap(mem []byte) error { return unix.Munmap(mem) }

func shmUnlink(name string) error {
	err := unix.Unlink(shmPath(name))
	if err == unix.ENOENT {
		err = nil
	}
	return err
}

func shmExists(name string) bool {
	var st unix.Stat_t
	return unix.Stat(shmPath(name), &st) == nil
}
