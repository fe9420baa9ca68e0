// Command ptyhost-attach is a minimal demonstration client: it spawns (or
// attaches to) a ptyhostd supervisor, launches one command under it, and
// copies the resulting PTY's output to stdout until the child exits.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ptyhostd/ptyhostd/internal/client"
	"github.com/ptyhostd/ptyhostd/internal/config"
	"github.com/ptyhostd/ptyhostd/internal/wire"
)

func main() {
	var attachPid int
	var daemonBinary string

	root := &cobra.Command{
		Use:   "ptyhost-attach -- command [args...]",
		Short: "Launch a command under a ptyhostd supervisor and stream its PTY",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttach(daemonBinary, attachPid, args)
		},
	}

	root.Flags().IntVar(&attachPid, "attach", 0, "pid of a running ptyhostd to attach to, instead of spawning one")
	root.Flags().StringVar(&daemonBinary, "daemon", "ptyhostd", "path to the ptyhostd binary to spawn")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ptyhost-attach: %v\n", err)
		os.Exit(1)
	}
}

type handler struct {
	masterFd chan int
	done     chan int32
}

func (h *handler) OnLaunchResponse(lr *wire.LaunchResponse, masterFd int) {
	if lr.Status != 0 {
		fmt.Fprintf(os.Stderr, "ptyhost-attach: launch failed, errno=%d\n", lr.Status)
		os.Exit(1)
	}
	h.masterFd <- masterFd
}

func (h *handler) OnReportChild(rc *wire.ReportChild, masterFd int) {
	if masterFd >= 0 {
		h.masterFd <- masterFd
	}
}

func (h *handler) OnTermination(t *wire.Termination) {
	h.done <- t.Status
}

func runAttach(daemonBinary string, attachPid int, command []string) error {
	cfg := config.Default()
	h := &handler{masterFd: make(chan int, 1), done: make(chan int32, 1)}

	var c *client.Client
	if attachPid != 0 {
		cl, err := client.Attach(cfg.Dir, attachPid, h)
		if err != nil {
			return err
		}
		c = cl
	} else {
		cl, _, err := client.Create(daemonBinary, cfg.Dir, h)
		if err != nil {
			return err
		}
		c = cl
	}
	defer c.Close()

	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	id := uuid.New()
	uniqueID := binary.LittleEndian.Uint64(id[:8])
	if err := c.Launch(command[0], command, os.Environ(), 80, 24, true, wd, uniqueID); err != nil {
		return err
	}

	masterFd := <-h.masterFd
	master := os.NewFile(uintptr(masterFd), "pty-master")
	defer master.Close()

	go io.Copy(master, os.Stdin)
	go io.Copy(os.Stdout, master)

	status := <-h.done
	os.Exit(int((status >> 8) & 0xff))
	return nil
}
