//go:build darwin

package ptyexec

import "golang.org/x/sys/unix"

// newTermios builds the termios state a freshly launched interactive shell
// expects: canonical mode, standard job-control characters, UTF-8 input
// processing when requested. Darwin's termios ABI carries the full BSD
// control-character set, including VDSUSP and VSTATUS, which Linux lacks
// (see termios_linux.go).
func newTermios(isUTF8 bool) *unix.Termios {
	t := &unix.Termios{}

	t.Iflag = unix.ICRNL | unix.IXON | unix.IXANY | unix.IMAXBEL | unix.BRKINT
	if isUTF8 {
		t.Iflag |= unix.IUTF8
	}
	t.Oflag = unix.OPOST | unix.ONLCR
	t.Cflag = unix.CREAD | unix.CS8 | unix.HUPCL
	t.Lflag = unix.ICANON | unix.ISIG | unix.IEXTEN | unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHOKE | unix.ECHOCTL

	t.Cc[unix.VEOF] = ctrl('D')
	t.Cc[unix.VEOL] = 0xff
	t.Cc[unix.VEOL2] = 0xff
	t.Cc[unix.VERASE] = 0x7f
	t.Cc[unix.VWERASE] = ctrl('W')
	t.Cc[unix.VKILL] = ctrl('U')
	t.Cc[unix.VREPRINT] = ctrl('R')
	t.Cc[unix.VINTR] = ctrl('C')
	t.Cc[unix.VQUIT] = 0x1c
	t.Cc[unix.VSUSP] = ctrl('Z')
	t.Cc[unix.VDSUSP] = ctrl('Y')
	t.Cc[unix.VSTART] = ctrl('Q')
	t.Cc[unix.VSTOP] = ctrl('S')
	t.Cc[unix.VLNEXT] = ctrl('V')
	t.Cc[unix.VDISCARD] = ctrl('O')
	t.Cc[unix.VSTATUS] = ctrl('T')
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	setSpeed(t, unix.B38400)
	return t
}

func ctrl(c byte) byte { return c - 'A' + 1 }

func setSpeed(t *unix.Termios, speed uint64) {
	t.Ispeed = speed
	t.Ospeed = speed
}

func applyTermios(fd int, t *unix.Termios) error {
	return unix.IoctlSetTermios(fd, unix.TIOCSETA, t)
}
