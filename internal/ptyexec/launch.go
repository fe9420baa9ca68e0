// Package ptyexec allocates a pseudoterminal and performs the fork+exec
// that turns a Launch request into a running child: termios (on the slave)
// and window size (on the master) are set before anything runs, the child
// inherits exactly four descriptors (master, slave, the server's socket to
// its connected client, and a dead-man's-pipe write end) at positions 0..3,
// and the controlling
// terminal is assigned via Setsid/Setctty rather than an explicit ioctl.
package ptyexec

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/ptyhostd/ptyhostd/internal/rlimit"
	"github.com/ptyhostd/ptyhostd/internal/siglog"
)

// Request carries everything a Launch needs to start a child, independent
// of how it arrived on the wire.
type Request struct {
	Path   string
	Argv   []string
	Envp   []string
	Width  int
	Height int
	IsUTF8 bool
	Pwd    string
}

// Result describes a successfully started child.
type Result struct {
	Pid int
	// MasterFd is the PTY master end; the caller owns it and passes it to
	// the client as LaunchResponse ancillary data.
	MasterFd int
	// DeadmanReadFd is the read end of this child's dead-man's pipe. The
	// caller keeps it open as a liveness signal: its owning write end lives
	// only as long as the child (or something it forked) holds fd 3 open.
	DeadmanReadFd int
}

// Launch opens a PTY, initializes its termios and window size, and
// fork+execs path/argv/envp with the four descriptors the protocol
// requires. serverSockFD is duplicated into the child (not consumed) so the
// child can, in principle, report an exec failure back over it; limits, if
// non-nil, is re-applied to the child just before the fork since Go
// provides no way to run code in the forked-but-not-yet-exec'd child
// itself.
//
// On failure Launch returns an error from which Errno recovers the errno
// for a LaunchResponse (the fork+exec error itself is returned unwrapped,
// setup errors are wrapped); no descriptors are leaked on any error path.
func Launch(req Request, serverSockFD int, limits *rlimit.Saved) (*Result, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("ptyexec: open pty: %w", err)
	}
	defer slave.Close()

	term := newTermios(req.IsUTF8)
	if err := applyTermios(int(slave.Fd()), term); err != nil {
		master.Close()
		return nil, fmt.Errorf("ptyexec: set termios: %w", err)
	}

	winsz := &pty.Winsize{Rows: uint16(req.Height), Cols: uint16(req.Width)}
	if err := pty.Setsize(master, winsz); err != nil {
		master.Close()
		return nil, fmt.Errorf("ptyexec: set winsize: %w", err)
	}

	deadmanRead, deadmanWrite, err := os.Pipe()
	if err != nil {
		master.Close()
		return nil, fmt.Errorf("ptyexec: open deadman pipe: %w", err)
	}

	if limits != nil {
		limits.RestoreSavedLimits()
	}

	attr := &syscall.ProcAttr{
		Dir: req.Pwd,
		Env: req.Envp,
		Files: []uintptr{
			master.Fd(),
			slave.Fd(),
			uintptr(serverSockFD),
			deadmanWrite.Fd(),
		},
		Sys: &syscall.SysProcAttr{
			Setsid:  true,
			Setctty: true,
			Ctty:    1, // index into Files: the slave becomes the child's fd 1 and controlling tty
		},
	}

	// The server ignores SIGPIPE process-wide (see internal/server's
	// signal.Ignore call), and POSIX preserves an ignored disposition
	// across execve — only a caught signal resets to default. Without this,
	// every child would start with SIGPIPE ignored too. A child's signal
	// dispositions are fixed at the moment it's forked, so resetting here
	// and restoring right after ForkExec returns affects only the child.
	signal.Reset(syscall.SIGPIPE)
	pid, err := syscall.ForkExec(req.Path, req.Argv, attr)
	signal.Ignore(syscall.SIGPIPE)
	deadmanWrite.Close()
	if err != nil {
		reportExecFailure(int(slave.Fd()), req.Path, err)
		deadmanRead.Close()
		master.Close()
		return nil, err
	}

	return &Result{
		Pid:           pid,
		MasterFd:      int(master.Fd()),
		DeadmanReadFd: int(deadmanRead.Fd()),
	}, nil
}

// reportExecFailure writes a short diagnostic to the slave side of the pty
// so a directly-attached terminal shows why nothing ever ran, mirroring the
// "## exec failed ##" report iTermExec writes in the child itself; here it
// runs in the parent, right after syscall.ForkExec reports failure.
func reportExecFailure(slaveFd int, path string, err error) {
	siglog.WriteString(slaveFd, "## exec failed ##\n")
	siglog.WriteString(slaveFd, "Program: ")
	siglog.WriteString(slaveFd, path)
	siglog.WriteString(slaveFd, "\n")
	if errno, ok := err.(syscall.Errno); ok {
		siglog.WriteString(slaveFd, "Errno: ")
		siglog.WriteInt(slaveFd, int(errno))
		siglog.WriteString(slaveFd, "\n")
	}
}

// Errno extracts the raw errno from an error Launch returned, for encoding
// into a LaunchResponse's status field, looking through any wrapping (e.g.
// a failure to open the pty itself). Errors with no errno anywhere in
// their chain are reported as EIO.
func Errno(err error) int32 {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int32(errno)
	}
	return int32(unix.EIO)
}
