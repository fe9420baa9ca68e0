// Package siglog provides minimal write primitives for fds that shouldn't
// go through fmt: writing a byte, a string, and a decimal integer, each
// retrying on EINTR/EAGAIN. Its callers are internal/server's SIGCHLD
// bridge (one fixed byte to the self-pipe) and internal/ptyexec's
// exec-failure diagnostic (mirrors iTermSignalSafeWrite/WriteInt's
// "## exec failed ##" report, written by the original in the forked child
// itself; ours runs in the parent immediately after syscall.ForkExec
// reports failure, since Go never hands caller code the async-signal-unsafe
// post-fork/pre-exec window the C original used).
package siglog

import "golang.org/x/sys/unix"

// WriteByte writes a single byte to fd, retrying on EINTR/EAGAIN.
func WriteByte(fd int, b byte) {
	buf := [1]byte{b}
	for {
		_, err := unix.Write(fd, buf[:])
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
		}
		return
	}
}

// WriteString writes s to fd, retrying on EINTR/EAGAIN and continuing
// after short writes until all of s is written or a write fails with any
// other error (mirrors iTermSignalSafeWrite: no allocation, no
// locale-aware routines).
func WriteString(fd int, s string) {
	b := []byte(s)
	for len(b) > 0 {
		n, err := unix.Write(fd, b)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return
		}
		b = b[n:]
	}
}

// WriteInt writes n in decimal to fd using only stack-allocated scratch
// space, no fmt.
func WriteInt(fd int, n int) {
	if n == 0 {
		WriteString(fd, "0")
		return
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-int64(n))
	}
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	WriteString(fd, string(buf[i:]))
}
