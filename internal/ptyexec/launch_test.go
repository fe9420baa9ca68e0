package ptyexec

import (
	"os"
	"syscall"
	"testing"

	"golang.org/x/sys/unix"
)

func TestLaunch_HappyPath(t *testing.T) {
	if testing.Short() {
		t.Skip("forks a real child")
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	req := Request{
		Path:   "/bin/sh",
		Argv:   []string{"sh", "-c", "exit 7"},
		Envp:   []string{"A=1"},
		Width:  80,
		Height: 24,
		IsUTF8: true,
		Pwd:    "/tmp",
	}

	res, err := Launch(req, int(w.Fd()), nil)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer unix.Close(res.MasterFd)
	defer unix.Close(res.DeadmanReadFd)

	if res.Pid <= 0 {
		t.Fatalf("got pid %d, want positive", res.Pid)
	}

	var ws unix.WaitStatus
	if _, err := syscall.Wait4(res.Pid, &ws, 0, nil); err != nil {
		t.Fatalf("Wait4: %v", err)
	}
	if !ws.Exited() || ws.ExitStatus() != 7 {
		t.Errorf("got wait status %v, want exit 7", ws)
	}
}

func TestLaunch_NoSuchPath(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	req := Request{
		Path:   "/no/such/file",
		Argv:   []string{"nope"},
		Envp:   nil,
		Width:  80,
		Height: 24,
		Pwd:    "/tmp",
	}

	_, err = Launch(req, int(w.Fd()), nil)
	if err == nil {
		t.Fatal("expected an error launching a nonexistent path")
	}
	if Errno(err) != int32(unix.ENOENT) {
		t.Errorf("got errno %d, want ENOENT", Errno(err))
	}
}
