// Package client is the attach-side library for the PTY supervisor: it
// connects to (or spawns) a running supervisor, sends Launch requests, and
// delivers every server-originated message to a caller-supplied handler.
package client

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/ptyhostd/ptyhostd/internal/fdconn"
	"github.com/ptyhostd/ptyhostd/internal/server"
	"github.com/ptyhostd/ptyhostd/internal/wire"
)

// Handler receives every message the server sends: launch responses,
// replayed children, and terminations. It is invoked
// synchronously from the client's background reader goroutine and must not
// block.
type Handler interface {
	OnLaunchResponse(lr *wire.LaunchResponse, masterFd int)
	OnReportChild(rc *wire.ReportChild, masterFd int)
	OnTermination(t *wire.Termination)
}

// Client is a connected handle to one supervisor process.
type Client struct {
	sockFd  int
	handler Handler
	done    chan struct{}
}

// Attach computes the rendezvous path for an already-running supervisor
// with the given pid, connects to it, and starts delivering messages to
// handler.
func Attach(dir string, pid int, handler Handler) (*Client, error) {
	path := server.RendezvousPath(dir, pid)
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("client: socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("client: connect %s: %w", path, err)
	}
	c := newClient(fd, handler)
	return c, nil
}

// Create spawns a fresh supervisor process via exec.Command, handing it one
// end of a freshly created socket pair as its initial client connection,
// and starts delivering messages to handler. binary is the supervisor
// executable (e.g. the ptyhostd daemon); dir is the directory its
// rendezvous socket will later live in.
func Create(binary, dir string, handler Handler) (*Client, int, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("client: socketpair: %w", err)
	}
	clientEnd, serverEnd := fds[0], fds[1]

	cmd := exec.Command(binary, dir)
	cmd.ExtraFiles = []*os.File{os.NewFile(uintptr(serverEnd), "supervisor-initial-client")}
	if err := cmd.Start(); err != nil {
		unix.Close(clientEnd)
		unix.Close(serverEnd)
		return nil, 0, fmt.Errorf("client: start supervisor: %w", err)
	}
	unix.Close(serverEnd) // the child now owns its copy

	c := newClient(clientEnd, handler)
	return c, cmd.Process.Pid, nil
}

func newClient(fd int, handler Handler) *Client {
	c := &Client{sockFd: fd, handler: handler, done: make(chan struct{})}
	go c.readLoop()
	return c
}

// Launch encodes and sends a Launch request. The corresponding
// LaunchResponse arrives asynchronously on the handler. It carries no
// uniqueId; the server answers requests in the order they arrive, so
// responses come back in the order the Launch calls were sent.
func (c *Client) Launch(path string, argv, envp []string, width, height int, isUTF8 bool, pwd string, uniqueID uint64) error {
	payload := wire.EncodeLaunch(&wire.Launch{
		Path:     path,
		Argv:     argv,
		Envp:     envp,
		Width:    int32(width),
		Height:   int32(height),
		IsUTF8:   isUTF8,
		Pwd:      pwd,
		UniqueID: uniqueID,
	})
	return fdconn.SendMessage(c.sockFd, payload)
}

// Close shuts down the connection and stops the reader goroutine.
func (c *Client) Close() error {
	// close(2) alone does not wake a recvmsg blocked in the reader;
	// shutting the socket down makes that recvmsg return end-of-stream.
	unix.Shutdown(c.sockFd, unix.SHUT_RDWR)
	<-c.done
	return unix.Close(c.sockFd)
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		payload, fd, err := fdconn.RecvMessage(c.sockFd)
		if err != nil {
			return
		}
		msgType, err := wire.PeekType(payload)
		if err != nil {
			return
		}
		switch msgType {
		case wire.MsgLaunchResponse:
			lr, err := wire.DecodeLaunchResponse(payload)
			if err != nil {
				return
			}
			c.handler.OnLaunchResponse(lr, fd)
		case wire.MsgReportChild:
			rc, err := wire.DecodeReportChild(payload)
			if err != nil {
				return
			}
			c.handler.OnReportChild(rc, fd)
		case wire.MsgTermination:
			t, err := wire.DecodeTermination(payload)
			if err != nil {
				return
			}
			c.handler.OnTermination(t)
		}
	}
}
