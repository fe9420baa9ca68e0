package server

import (
	"errors"
	"fmt"
	"log"

	"golang.org/x/sys/unix"

	"github.com/ptyhostd/ptyhostd/internal/fdconn"
	"github.com/ptyhostd/ptyhostd/internal/registry"
	"github.com/ptyhostd/ptyhostd/internal/selectfd"
	"github.com/ptyhostd/ptyhostd/internal/wire"
)

// closeRecordFds releases a terminated record's PTY master and dead-man's
// pipe read end. Safe to call once a Termination for rec has been
// delivered; the registry holds no further use for either descriptor past
// that point.
func closeRecordFds(rec *registry.Record) {
	if rec.MasterFd >= 0 {
		unix.Close(rec.MasterFd)
	}
	if rec.DeadmanFd >= 0 {
		unix.Close(rec.DeadmanFd)
	}
}

// errClientGone signals the event loop should return to the accept loop:
// either the client disconnected cleanly or sent something the protocol
// doesn't allow.
var errClientGone = errors.New("server: client disconnected or protocol violation")

// runEventLoop blocks, alternately reaping children and servicing client
// requests, until the client goes away. A nil return means "go wait for a
// new client"; a non-nil return is fatal to the whole server.
func (s *Server) runEventLoop() error {
	for {
		fds := []int{s.selfPipeR, s.clientSock}
		ready, err := selectfd.Wait(fds)
		if err != nil {
			return fmt.Errorf("server: select: %w", err)
		}

		if ready[0] {
			if err := s.drainSelfPipe(); err != nil {
				return err
			}
			if err := s.reapAndReport(); err != nil {
				s.closeClient()
				return nil
			}
		}

		if ready[1] {
			if err := s.handleClientRequest(); err != nil {
				if errors.Is(err, errClientGone) {
					s.closeClient()
					return nil
				}
				return err
			}
		}
	}
}

func (s *Server) drainSelfPipe() error {
	var buf [64]byte
	for {
		n, err := unix.Read(s.selfPipeR, buf[:])
		if err != nil {
			if err == unix.EAGAIN {
				return nil
			}
			return fmt.Errorf("server: drain self-pipe: %w", err)
		}
		if n == 0 {
			return nil
		}
		if n < len(buf) {
			return nil
		}
	}
}

// reapAndReport attempts a nonblocking reap of every live record and
// delivers a Termination for each that exited. A send failure means the
// client is gone; the caller falls back to the accept loop.
func (s *Server) reapAndReport() error {
	terminated := s.reg.ReapOnce(func(pid int) (int, bool) {
		var ws unix.WaitStatus
		got, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		if err != nil || got != pid {
			return 0, false
		}
		return int(ws), true
	})

	// Walk the ascending indices from the end so each RemoveDead leaves the
	// indices still to be visited pointing at the same records.
	for k := len(terminated) - 1; k >= 0; k-- {
		rec := s.reg.At(terminated[k])
		payload := wire.EncodeTermination(&wire.Termination{Pid: int32(rec.Pid), Status: int32(rec.Status)})
		if err := fdconn.SendMessage(s.clientSock, payload); err != nil {
			return err
		}
		closeRecordFds(rec)
		s.reg.RemoveDead(rec.Pid)
	}
	return nil
}

func (s *Server) closeClient() {
	if s.clientSock >= 0 {
		unix.Close(s.clientSock)
	}
	s.clientSock = -1
}

// handleClientRequest reads exactly one frame from the client and handles
// it. Only Launch may originate from a client; anything else is a protocol
// violation and ends the connection.
func (s *Server) handleClientRequest() error {
	payload, _, err := fdconn.RecvMessage(s.clientSock)
	if err != nil {
		if errors.Is(err, fdconn.ErrDisconnected) {
			return errClientGone
		}
		return err
	}

	msgType, err := wire.PeekType(payload)
	if err != nil {
		log.Printf("ptyhostd: malformed frame: %v", err)
		return errClientGone
	}

	switch msgType {
	case wire.MsgLaunch:
		req, err := wire.DecodeLaunch(payload)
		if err != nil {
			log.Printf("ptyhostd: malformed launch: %v", err)
			return errClientGone
		}
		return s.handleLaunch(*req)
	default:
		log.Printf("ptyhostd: protocol violation: client sent message type %d", msgType)
		return errClientGone
	}
}
