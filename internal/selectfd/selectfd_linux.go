//go:build linux

// Package selectfd provides a blocking readiness wait over a small, fixed
// set of file descriptors: given a set of fds, block until at least one is
// ready to read (or an error occurs) and report which ones. internal/server's
// event loop is the only caller, polling its client socket and its SIGCHLD
// self-pipe side by side.
//
// This file is Linux-only: unix.FdSet's backing array is [16]int64 on
// linux/amd64 but [32]int32 on darwin/amd64, so the bit-twiddling below
// isn't portable as written — see selectfd_darwin.go for that layout.
package selectfd

import "golang.org/x/sys/unix"

// Wait blocks until at least one of fds is ready to read, or returns an
// error. The returned ready slice is parallel to fds.
func Wait(fds []int) (ready []bool, err error) {
	var set unix.FdSet
	nfd := 0
	for _, fd := range fds {
		fdSet(&set, fd)
		if fd+1 > nfd {
			nfd = fd + 1
		}
	}

	for {
		n, err := unix.Select(nfd, &set, nil, nil, nil)
		if err == unix.EINTR {
			// A signal (SIGCHLD) interrupted the wait; the caller's next
			// iteration re-checks the self-pipe, so just retry with a
			// freshly rebuilt set.
			set = unix.FdSet{}
			for _, fd := range fds {
				fdSet(&set, fd)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		_ = n
		ready = make([]bool, len(fds))
		for i, fd := range fds {
			ready[i] = fdIsSet(&set, fd)
		}
		return ready, nil
	}
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}
