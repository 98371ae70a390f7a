//go:build linux || darwin || freebsd || netbsd || openbsd

package netpoll

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestPollerDetectsReadable(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if !p.Add(fds[0]) {
		t.Fatal("Add failed")
	}

	if n := p.Wait(50); n != 0 {
		t.Fatalf("Wait with nothing pending = %d, want 0", n)
	}

	if _, err := unix.Write(fds[1], []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}

	n := p.Wait(500)
	if n <= 0 {
		t.Fatalf("Wait after write = %d, want > 0", n)
	}
	ev, ok := p.NextEvent()
	if !ok {
		t.Fatal("NextEvent returned false")
	}
	if ev.Fd != fds[0] {
		t.Fatalf("fd = %d, want %d", ev.Fd, fds[0])
	}
	if !ev.Readable {
		t.Fatal("expected readable event")
	}
	if _, ok := p.NextEvent(); ok {
		t.Fatal("expected only one ready event")
	}
}

func TestPollerDetectsPeerClose(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])

	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()
	p.Add(fds[0])

	unix.Close(fds[1])

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if n := p.Wait(100); n > 0 {
			if _, ok := p.NextEvent(); ok {
				return
			}
		}
	}
	t.Fatal("poller never reported peer close")
}
