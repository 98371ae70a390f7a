// Package netaddr resolves host:port endpoints to raw socket addresses
// and performs the non-blocking, timeout-bounded connect used by the
// client side of the listener (spec §4.1 "SocketAddress", TCPClient
// connect-with-timeout).
package netaddr

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// Address is a resolved IPv4 or IPv6 endpoint, the Go analogue of
// SEDNL's SocketAddress value type.
type Address struct {
	IP   net.IP
	Port int
}

// String renders the address as host:port.
func (a Address) String() string {
	return net.JoinHostPort(a.IP.String(), fmt.Sprintf("%d", a.Port))
}

// Resolve looks up host:port, preferring an IPv4 result the way the
// original implementation's getaddrinfo call does, falling back to the
// first IPv6 result when no IPv4 address exists.
func Resolve(hostport string) (Address, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return Address{}, err
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return Address{}, fmt.Errorf("netaddr: bad port %q: %w", portStr, err)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return Address{}, err
	}
	if len(ips) == 0 {
		return Address{}, fmt.Errorf("netaddr: no addresses for %q", host)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return Address{IP: v4, Port: port}, nil
		}
	}
	return Address{IP: ips[0], Port: port}, nil
}

// sockaddr converts Address to the raw unix.Sockaddr the syscall layer
// expects, picking IPv4 or IPv6 based on the resolved IP's shape.
func (a Address) sockaddr() (unix.Sockaddr, int, error) {
	if v4 := a.IP.To4(); v4 != nil {
		var sa unix.SockaddrInet4
		sa.Port = a.Port
		copy(sa.Addr[:], v4)
		return &sa, unix.AF_INET, nil
	}
	v6 := a.IP.To16()
	if v6 == nil {
		return nil, 0, fmt.Errorf("netaddr: unrepresentable address %v", a.IP)
	}
	var sa unix.SockaddrInet6
	sa.Port = a.Port
	copy(sa.Addr[:], v6)
	return &sa, unix.AF_INET6, nil
}

// DialTimeout opens a non-blocking TCP connection to addr, returning the
// raw, already-connected file descriptor on success. It sets O_NONBLOCK
// before connect and uses select-free polling via a short spin/backoff
// loop bounded by timeout, mirroring the original's connect-then-select
// pattern without depending on this package's own poller (the listener
// attaches the fd to the poller only after the connection object is
// constructed).
func DialTimeout(addr Address, timeout time.Duration) (int, error) {
	sa, family, err := addr.sockaddr()
	if err != nil {
		return -1, err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}

	err = unix.Connect(fd, sa)
	if err == nil {
		return fd, nil
	}
	if err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, err
	}

	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			unix.Close(fd)
			return -1, fmt.Errorf("netaddr: connect to %s timed out after %s", addr, timeout)
		}
		pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, perr := unix.Poll(pfds, 5)
		if perr != nil && perr != unix.EINTR {
			unix.Close(fd)
			return -1, perr
		}
		if n <= 0 {
			continue
		}
		werr, serr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if serr == nil && werr == 0 {
			return fd, nil
		}
		if werr != 0 {
			unix.Close(fd)
			return -1, fmt.Errorf("netaddr: connect to %s failed: errno %d", addr, werr)
		}
	}
}
