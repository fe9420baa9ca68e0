// Package server implements the supervisor daemon: a single-threaded,
// select-driven loop that accepts one client at a time over a Unix-domain
// rendezvous socket, launches children on its behalf, reaps them
// nonblockingly, and reports terminations and (on reattach) a replay burst
// of everything still alive or not yet reported.
package server

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/ptyhostd/ptyhostd/internal/config"
	"github.com/ptyhostd/ptyhostd/internal/registry"
	"github.com/ptyhostd/ptyhostd/internal/rlimit"
	"github.com/ptyhostd/ptyhostd/internal/siglog"
)

// Server owns the registry, the rendezvous listener, and the currently
// attached client, if any. It is not safe for concurrent use: by design
// everything runs on one goroutine except the SIGCHLD bridge, which only
// ever writes one byte to selfPipeW, and the SIGUSR1 handler, which removes
// the rendezvous socket and exits.
type Server struct {
	Dir string // directory the rendezvous socket is created in
	Cfg *config.Config

	reg    *registry.Registry
	limits *rlimit.Saved

	clientSock int // -1 when no client is attached

	selfPipeR int
	selfPipeW int

	listenFd int
}

// RendezvousPath returns the filesystem path of the Unix-domain socket a
// client attaches to, derived from the server's own pid.
func RendezvousPath(dir string, pid int) string {
	return filepath.Join(dir, fmt.Sprintf("ptyhostd-%d.sock", pid))
}

// New constructs a Server that will listen under cfg.Dir and supervises
// children starting with initialClientFd as its first attached client.
func New(cfg *config.Config, initialClientFd int) (*Server, error) {
	r, w, err := unixPipe()
	if err != nil {
		return nil, fmt.Errorf("server: open self-pipe: %w", err)
	}

	s := &Server{
		Dir:        cfg.Dir,
		Cfg:        cfg,
		reg:        registry.New(),
		limits:     rlimit.Snapshot(),
		clientSock: initialClientFd,
		selfPipeR:  r,
		selfPipeW:  w,
		listenFd:   -1,
	}
	return s, nil
}

// unixPipe opens the self-pipe used to bridge SIGCHLD into the select loop.
// unix.Pipe2 isn't available on every GOOS this package builds for (Linux
// only), so the close-on-exec and nonblocking bits are set afterward with
// the portable unix.CloseOnExec/SetNonblock wrappers instead.
func unixPipe() (r, w int, err error) {
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		return -1, -1, err
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	if err := unix.SetNonblock(fds[0], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return -1, -1, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

// Run installs signal handlers and alternates between the event loop and
// the accept/reattach loop until a fatal error or an explicit shutdown.
func (s *Server) Run() error {
	s.installSignalHandlers()

	for {
		if err := s.runEventLoop(); err != nil {
			return err
		}
		// runEventLoop only returns (without the process having already
		// exited via SIGUSR1) when the client disconnected or sent a
		// malformed frame. Go back to the rendezvous socket and wait for
		// the next one. A failed replay burst retries accept directly
		// rather than falling into runEventLoop with no client attached.
		for {
			fd, err := s.acceptOne()
			if err != nil {
				return fmt.Errorf("server: accept: %w", err)
			}
			s.clientSock = fd
			if err := s.sendReplayBurst(); err != nil {
				log.Printf("ptyhostd: replay burst failed: %v", err)
				unix.Close(s.clientSock)
				s.clientSock = -1
				continue
			}
			break
		}
	}
}

func (s *Server) installSignalHandlers() {
	signal.Ignore(syscall.SIGHUP, syscall.SIGPIPE)

	chld := make(chan os.Signal, 16)
	signal.Notify(chld, syscall.SIGCHLD)
	go func() {
		for range chld {
			siglog.WriteByte(s.selfPipeW, 0)
		}
	}()

	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	go func() {
		<-usr1
		s.shutdownForUSR1()
	}()
}

func (s *Server) shutdownForUSR1() {
	if s.listenFd >= 0 {
		os.Remove(RendezvousPath(s.Dir, os.Getpid()))
	}
	os.Exit(1)
}
