//go:build linux

package ptyexec

import "golang.org/x/sys/unix"

// newTermios builds the termios state a freshly launched interactive shell
// expects: canonical mode, standard job-control characters, UTF-8 input
// processing when requested. Linux's termios ABI has no VDSUSP or VSTATUS
// control characters (those are BSD-only — see termios_darwin.go for the
// full set); this file sets every other control character and leaves those
// two slots at their kernel default, which is the closest available
// behavior on this platform.
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
	t.Cc[unix.VEOL] = 0xff // -1 as byte: disabled
	t.Cc[unix.VEOL2] = 0xff
	t.Cc[unix.VERASE] = 0x7f
	t.Cc[unix.VWERASE] = ctrl('W')
	t.Cc[unix.VKILL] = ctrl('U')
	t.Cc[unix.VREPRINT] = ctrl('R')
	t.Cc[unix.VINTR] = ctrl('C')
	t.Cc[unix.VQUIT] = 0x1c
	t.Cc[unix.VSUSP] = ctrl('Z')
	t.Cc[unix.VSTART] = ctrl('Q')
	t.Cc[unix.VSTOP] = ctrl('S')
	t.Cc[unix.VLNEXT] = ctrl('V')
	t.Cc[unix.VDISCARD] = ctrl('O')
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	setSpeed(t, unix.B38400)
	return t
}

func ctrl(c byte) byte { return c - 'A' + 1 }

func setSpeed(t *unix.Termios, speed uint32) {
	t.Ispeed = speed
	t.Ospeed = speed
}

func applyTermios(fd int, t *unix.Termios) error {
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}
