//go:build linux

package poller

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

type epollPollset struct {
	efd    int
	wfd    int // eventfd，用于 Kick 唤醒
	closed atomic.Bool

	mu  sync.RWMutex
	cbs map[FD]func()
}

func New() (Pollset, error) {
	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(efd)
		return nil, err
	}
	p := &epollPollset{efd: efd, wfd: wfd, cbs: make(map[FD]func())}
	// 注册 wakeup fd
	ev := &unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(wfd)}
	if err := unix.EpollCtl(efd, unix.EPOLL_CTL_ADD, wfd, ev); err != nil {
		unix.Close(wfd)
		unix.Close(efd)
		return nil, err
	}
	return p, nil
}

type epollHandle struct {
	fd FD
}

func (h *epollHandle) FD() FD { return h.fd }

func (p *epollPollset) RegisterRead(fd FD, onReadable func()) (Handle, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	p.mu.Lock()
	p.cbs[fd] = onReadable
	p.mu.Unlock()
	ev := &unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(p.efd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		p.mu.Lock()
		delete(p.cbs, fd)
		p.mu.Unlock()
		return nil, err
	}
	return &epollHandle{fd: fd}, nil
}

func (p *epollPollset) Unregister(h Handle) error {
	eh, ok := h.(*epollHandle)
	if !ok {
		return ErrBadHandle
	}
	p.mu.Lock()
	_, known := p.cbs[eh.fd]
	delete(p.cbs, eh.fd)
	p.mu.Unlock()
	if !known {
		return ErrBadHandle
	}
	return unix.EpollCtl(p.efd, unix.EPOLL_CTL_DEL, eh.fd, nil)
}

func (p *epollPollset) Kick() error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(p.wfd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// Work 等待一轮事件并分发回调；被 Kick 唤醒或超时均正常返回 nil。
func (p *epollPollset) Work(deadline time.Time) error {
	if p.closed.Load() {
		return ErrClosed
	}
	msec := -1
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d < 0 {
			d = 0
		}
		msec = int(d.Milliseconds())
	}
	events := make([]unix.EpollEvent, 64)
	n, err := unix.EpollWait(p.efd, events, msec)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		if p.closed.Load() {
			return ErrClosed
		}
		return err
	}
	var efdBuf [8]byte
	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		if fd == p.wfd {
			// 清空 eventfd
			for {
				if _, rerr := unix.Read(p.wfd, efdBuf[:]); rerr != nil {
					break
				}
			}
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

func (p *epollPollset) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	unix.Close(p.wfd)
	return unix.Close(p.efd)
}
