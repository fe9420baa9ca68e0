//go:build darwin

// Package selectfd provides a blocking readiness wait over a small, fixed
// set of file descriptors: given a set of fds, block until at least one is
// ready to read (or an error occurs) and report which ones. internal/server's
// event loop is the only caller, polling its client socket and its SIGCHLD
// self-pipe side by side.
//
// This file is the darwin counterpart to selectfd_linux.go: unix.FdSet's
// backing array is [32]int32 on darwin/amd64 rather than linux's [16]int64,
// so fdSet/fdIsSet address 32-bit words here instead of 64-bit ones.
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
	set.Bits[fd/32] |= 1 << (uint(fd) % 32)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/32]&(1<<(uint(fd)%32)) != 0
}
