package fdconn

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func socketpair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestSendRecvMessage_NoFD(t *testing.T) {
	a, b := socketpair(t)

	want := []byte("hello frame")
	if err := SendMessage(a, want); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	got, fd, err := RecvMessage(b)
	if err != nil {
		t.Fatalf("RecvMessage: %v", err)
	}
	if fd != -1 {
		t.Errorf("got fd %d, want -1 (no fd passed)", fd)
	}
	if string(got) != string(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSendRecvMessage_WithFD(t *testing.T) {
	a, b := socketpair(t)

	tmp, err := os.CreateTemp(t.TempDir(), "fdconn")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer tmp.Close()
	if _, err := tmp.WriteString("payload"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}

	if err := SendMessageWithFD(a, []byte("carries a fd"), int(tmp.Fd())); err != nil {
		t.Fatalf("SendMessageWithFD: %v", err)
	}

	payload, passedFD, err := RecvMessage(b)
	if err != nil {
		t.Fatalf("RecvMessage: %v", err)
	}
	if string(payload) != "carries a fd" {
		t.Errorf("got payload %q", payload)
	}
	if passedFD < 0 {
		t.Fatal("expected a passed fd")
	}
	defer unix.Close(passedFD)

	got := os.NewFile(uintptr(passedFD), "received")
	buf := make([]byte, 7)
	if _, err := got.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt on received fd: %v", err)
	}
	if string(buf) != "payload" {
		t.Errorf("received fd content = %q, want %q", buf, "payload")
	}
}

func TestRecvMessage_Disconnect(t *testing.T) {
	a, b := socketpair(t)
	unix.Close(a)

	if _, _, err := RecvMessage(b); err == nil {
		t.Fatal("expected ErrDisconnected after peer close")
	}
}
