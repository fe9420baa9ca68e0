// Package fdconn sends and receives whole messages, optionally
// carrying exactly one passed file descriptor, over a connected Unix-domain
// stream socket. Every call is exactly one sendmsg(2)/recvmsg(2); EINTR is
// retried transparently.
package fdconn

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// MaxFrameSize bounds a single message, matching the ~320KiB frame budget
// the wire codec expects to fit in one recvmsg.
const MaxFrameSize = 320 * 1024

// ErrDisconnected is returned when a send or receive observes the peer is
// gone (EOF, zero-length read, or a permanent socket error).
var ErrDisconnected = errors.New("fdconn: peer disconnected")

// SendMessage writes payload as a single sendmsg with no ancillary data.
func SendMessage(fd int, payload []byte) error {
	return sendmsg(fd, payload, nil)
}

// SendMessageWithFD writes payload as a single sendmsg carrying passedFD as
// SCM_RIGHTS ancillary data. The caller retains ownership of passedFD and
// should close its own copy only after this call returns successfully.
func SendMessageWithFD(fd int, payload []byte, passedFD int) error {
	return sendmsg(fd, payload, unix.UnixRights(passedFD))
}

func sendmsg(fd int, payload []byte, oob []byte) error {
	for {
		err := unix.Sendmsg(fd, payload, oob, nil, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: sendmsg: %v", ErrDisconnected, err)
		}
		return nil
	}
}

// RecvMessage reads a single message, returning its payload and, if the
// peer passed exactly one descriptor, that descriptor (owned by the
// caller from this point on; closing it if unused is the caller's
// responsibility).
// fd is -1 when no descriptor was passed.
func RecvMessage(sockFD int) (payload []byte, passedFD int, err error) {
	buf := make([]byte, MaxFrameSize)
	oob := make([]byte, unix.CmsgSpace(4))

	for {
		n, oobn, _, _, rerr := unix.Recvmsg(sockFD, buf, oob, 0)
		if rerr == unix.EINTR {
			continue
		}
		if rerr != nil {
			return nil, -1, fmt.Errorf("%w: recvmsg: %v", ErrDisconnected, rerr)
		}
		if n <= 0 {
			return nil, -1, ErrDisconnected
		}

		passedFD = -1
		if oobn > 0 {
			scms, perr := unix.ParseSocketControlMessage(oob[:oobn])
			if perr != nil {
				return nil, -1, fmt.Errorf("wire: malformed control message: %w", perr)
			}
			for _, scm := range scms {
				fds, ferr := unix.ParseUnixRights(&scm)
				if ferr != nil {
					continue
				}
				for i, rfd := range fds {
					if i == 0 {
						passedFD = rfd
					} else {
						// Protocol only ever passes one fd per message;
						// close any extras immediately so they don't leak.
						unix.Close(rfd)
					}
				}
			}
		}
		return buf[:n], passedFD, nil
	}
}
