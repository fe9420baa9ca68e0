package server

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/ptyhostd/ptyhostd/internal/fdconn"
	"github.com/ptyhostd/ptyhostd/internal/wire"
)

// acceptOne binds/listens on the rendezvous path and accepts exactly one
// client connection, returning its socket fd. Only one client is ever
// admitted concurrently: once it is accepted, the listener is closed and
// the rendezvous path removed, so connection attempts made while that
// client is attached fail instead of queueing. A new listener exists only
// after the client disconnects and acceptOne is called again.
func (s *Server) acceptOne() (int, error) {
	path := RendezvousPath(s.Dir, os.Getpid())
	os.Remove(path) // stale socket from a previous run at the same pid is impossible but harmless to clear

	listenFd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("server: socket: %w", err)
	}
	defer unix.Close(listenFd)
	s.listenFd = listenFd

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(listenFd, addr); err != nil {
		return -1, fmt.Errorf("server: bind %s: %w", path, err)
	}
	defer os.Remove(path)

	if err := unix.Listen(listenFd, 1); err != nil {
		return -1, fmt.Errorf("server: listen: %w", err)
	}

	clientFd, _, err := unix.Accept(listenFd)
	if err != nil {
		return -1, fmt.Errorf("server: accept: %w", err)
	}
	return clientFd, nil
}

// sendReplayBurst conveys the registry's contents to the just-(re)attached
// client: a Termination for every record that died while no client was
// attached, followed by a ReportChild for every live record (oldest first,
// isLast on the last one).
func (s *Server) sendReplayBurst() error {
	s.reg.ReapOnce(func(pid int) (int, bool) {
		var ws unix.WaitStatus
		got, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		if err != nil || got != pid {
			return 0, false
		}
		return int(ws), true
	})

	burst := s.reg.ReplayBurst()
	liveCount := 0
	for _, item := range burst {
		if item.ReportChild != nil {
			liveCount++
		}
	}

	sentLive := 0
	for _, item := range burst {
		switch {
		case item.Termination != nil:
			rec := item.Termination
			payload := wire.EncodeTermination(&wire.Termination{Pid: int32(rec.Pid), Status: int32(rec.Status)})
			if err := fdconn.SendMessage(s.clientSock, payload); err != nil {
				return err
			}
			closeRecordFds(rec)
			s.reg.RemoveDead(rec.Pid)
		case item.ReportChild != nil:
			rec := item.ReportChild
			sentLive++
			payload := wire.EncodeReportChild(&wire.ReportChild{
				IsLast: sentLive == liveCount,
				Pid:    int32(rec.Pid),
				Path:   rec.Request.Path,
				Argv:   rec.Request.Argv,
				Envp:   rec.Request.Envp,
				IsUTF8: rec.Request.IsUTF8,
				Pwd:    rec.Request.Pwd,
			})
			if err := fdconn.SendMessageWithFD(s.clientSock, payload, rec.MasterFd); err != nil {
				return err
			}
		}
	}

	return nil
}
