//go:build darwin

package poller

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

type kqueuePollset struct {
	kq     int
	wfd    int // 管道写端，用于 Kick 唤醒
	rfd    int // 管道读端，注册到 kqueue
	closed atomic.Bool

	mu  sync.RWMutex
	cbs map[FD]func()
}

func New() (Pollset, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	// 使用管道作为唤醒
	var pfd [2]int
	if err := unix.Pipe(pfd[:]); err != nil {
		unix.Close(kq)
		return nil, err
	}
	rfd, wfd := pfd[0], pfd[1]
	_ = unix.SetNonblock(rfd, true)
	_ = unix.SetNonblock(wfd, true)
	kev := unix.Kevent_t{
		Ident:  uint64(rfd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{kev}, nil, nil); err != nil {
		unix.Close(rfd)
		unix.Close(wfd)
		unix.Close(kq)
		return nil, err
	}
	return &kqueuePollset{kq: kq, wfd: wfd, rfd: rfd, cbs: make(map[FD]func())}, nil
}

type kqueueHandle struct {
	fd FD
}

func (h *kqueueHandle) FD() FD { return h.fd }

func (p *kqueuePollset) RegisterRead(fd FD, onReadable func()) (Handle, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	p.mu.Lock()
	p.cbs[fd] = onReadable
	p.mu.Unlock()
	kev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_CLEAR}
	if _, err := unix.Kevent(p.kq, []unix.Kevent_t{kev}, nil, nil); err != nil {
		p.mu.Lock()
		delete(p.cbs, fd)
		p.mu.Unlock()
		return nil, err
	}
	return &kqueueHandle{fd: fd}, nil
}

func (p *kqueuePollset) Unregister(h Handle) error {
	kh, ok := h.(*kqueueHandle)
	if !ok {
		return ErrBadHandle
	}
	p.mu.Lock()
	_, known := p.cbs[kh.fd]
	delete(p.cbs, kh.fd)
	p.mu.Unlock()
	if !known {
		return ErrBadHandle
	}
	kev := unix.Kevent_t{Ident: uint64(kh.fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{kev}, nil, nil)
	return err
}

func (p *kqueuePollset) Kick() error {
	var b [1]byte
	b[0] = 1
	_, err := unix.Write(p.wfd, b[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// Work 等待一轮事件并分发回调；被 Kick 唤醒或超时均正常返回 nil。
func (p *kqueuePollset) Work(deadline time.Time) error {
	if p.closed.Load() {
		return ErrClosed
	}
	var ts *unix.Timespec
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d < 0 {
			d = 0
		}
		t := unix.NsecToTimespec(d.Nanoseconds())
		ts = &t
	}
	events := make([]unix.Kevent_t, 64)
	n, err := unix.Kevent(p.kq, nil, events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		if p.closed.Load() {
			return ErrClosed
		}
		return err
	}
	buf := make([]byte, 16)
	for i := 0; i < n; i++ {
		fd := int(events[i].Ident)
		if fd == p.rfd {
			for {
				if _, rerr := unix.Read(p.rfd, buf); rerr != nil {
					break
				}
			}
			continue
		}
		if events[i].Filter != unix.EVFILT_READ {
			continue
		}
		p.mu.RLock()
		cb := p.cbs[fd]
		p.mu.RUnlock()
		if cb != nil {
			cb()
		}
	}
	return nil
}

func (p *kqueuePollset) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	unix.Close(p.rfd)
	unix.Close(p.wfd)
	return unix.Close(p.kq)
}
