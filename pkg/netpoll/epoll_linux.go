//go:build linux

package netpoll

import (
	"golang.org/x/sys/unix"

	"eventwire/pkg/logging"
)

// epollPoller wraps an epoll instance in level-triggered mode: the
// listener does a single read per readiness event, so bytes left in the
// socket after that read must produce another event on the next Wait.
// Level-triggered keeps that bookkeeping out of the listener loop.
type epollPoller struct {
	fd     int
	events [MaxEvents]unix.EpollEvent
	ready  []unix.EpollEvent
}

// New constructs the platform poller (epoll on Linux).
func New() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{fd: fd}, nil
}

func (p *epollPoller) Add(fd int) bool {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		logging.Warn("epoll_add_failed", "fd", fd, "err", err)
		return false
	}
	return true
}

func (p *epollPoller) Remove(fd int) {
	// EPOLL_CTL_DEL requires a non-nil event pointer on some kernels even
	// though it's ignored; harmless if fd is already gone (e.g. closed).
	_ = unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{})
}

func (p *epollPoller) Wait(timeoutMS int) int {
	n, err := unix.EpollWait(p.fd, p.events[:], timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return 0
		}
		logging.Warn("epoll_wait_failed", "err", err)
		return -1
	}
	p.ready = p.events[:n]
	return n
}

func (p *epollPoller) NextEvent() (Event, bool) {
	if len(p.ready) == 0 {
		return Event{}, false
	}
	ev := p.ready[0]
	p.ready = p.ready[1:]
	return Event{
		Fd:       int(ev.Fd),
		Readable: ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
		Closed:   ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0,
	}, true
}

func (p *epollPoller) Close() error {
	return unix.Close(p.fd)
}
