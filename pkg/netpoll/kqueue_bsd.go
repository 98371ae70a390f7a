//go:build darwin || freebsd || netbsd || openbsd

package netpoll

import (
	"golang.org/x/sys/unix"

	"eventwire/pkg/logging"
)

// kqueuePoller is the BSD/Darwin counterpart of epollPoller. It registers
// only a read filter per fd; EOF is reported by the kernel via EV_EOF on
// that same filter, so no separate close-filter registration is needed.
type kqueuePoller struct {
	fd     int
	events [MaxEvents]unix.Kevent_t
	ready  []unix.Kevent_t
}

// New constructs the platform poller (kqueue on Darwin/BSD).
func New() (Poller, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueuePoller{fd: fd}, nil
}

func (p *kqueuePoller) Add(fd int) bool {
	ch := []unix.Kevent_t{{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}}
	if _, err := unix.Kevent(p.fd, ch, nil, nil); err != nil {
		logging.Warn("kqueue_add_failed", "fd", fd, "err", err)
		return false
	}
	return true
}

func (p *kqueuePoller) Remove(fd int) {
	ch := []unix.Kevent_t{{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_DELETE,
	}}
	_, _ = unix.Kevent(p.fd, ch, nil, nil)
}

func (p *kqueuePoller) Wait(timeoutMS int) int {
	var ts *unix.Timespec
	if timeoutMS >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMS) * 1_000_000)
		ts = &t
	}
	n, err := unix.Kevent(p.fd, nil, p.events[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0
		}
		logging.Warn("kqueue_wait_failed", "err", err)
		return -1
	}
	p.ready = p.events[:n]
	return n
}

func (p *kqueuePoller) NextEvent() (Event, bool) {
	if len(p.ready) == 0 {
		return Event{}, false
	}
	ev := p.ready[0]
	p.ready = p.ready[1:]
	return Event{
		Fd:       int(ev.Ident),
		Readable: true,
		Closed:   ev.Flags&unix.EV_EOF != 0,
	}, true
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.fd)
}
