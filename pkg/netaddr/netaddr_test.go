package netaddr

import (
	"net"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestResolveLoopback(t *testing.T) {
	addr, err := Resolve("localhost:9")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr.Port != 9 {
		t.Fatalf("port = %d, want 9", addr.Port)
	}
	if addr.IP == nil {
		t.Fatal("expected resolved IP")
	}
}

func TestResolveBadPort(t *testing.T) {
	if _, err := Resolve("localhost:notaport"); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestDialTimeoutSucceeds(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	addr, err := Resolve(ln.Addr().String())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	fd, err := DialTimeout(addr, time.Second)
	if err != nil {
		t.Fatalf("DialTimeout: %v", err)
	}
	defer unix.Close(fd)
}

func TestDialTimeoutFailsFast(t *testing.T) {
	// 192.0.2.0/24 is TEST-NET-1, guaranteed unroutable/non-listening in
	// CI; use a closed local port instead for a deterministic refusal.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr, err := Resolve(ln.Addr().String())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	ln.Close()

	_, err = DialTimeout(addr, 2*time.Second)
	if err == nil {
		t.Fatal("expected connection to a closed port to fail")
	}
}
