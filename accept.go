//go:build linux || darwin

package tcpserv

import (
	"fmt"
	"log"

	"golang.org/x/sys/unix"

	"github.com/legamerdc/tcpserv/endpoint"
	"github.com/legamerdc/tcpserv/internal/netutil"
	"github.com/legamerdc/tcpserv/poller"
)

// Start 记录回调并把每个监听套接字装配到给定 Pollset 上（多个
// Pollset 时轮转分配）。任一装配失败则撤销此前已装配的套接字后
// 返回错误。零套接字合法（永不 accept）；重复 Start 为空操作。
func (s *Server) Start(pollsets []poller.Pollset, cb AcceptCallback) error {
	if s.started {
		return nil
	}
	total := 0
	for _, b := range s.ports {
		total += len(b.sockets)
	}
	if total > 0 && len(pollsets) == 0 {
		return ErrNoPollset
	}
	s.onAccept = cb
	var armed []*listenSocket
	next := 0
	for pi, b := range s.ports {
		for fi, ls := range b.sockets {
			ps := pollsets[next%len(pollsets)]
			next++
			d := &dispatcher{srv: s, ls: ls, ps: ps, portIndex: pi, fdIndex: fi}
			if err := ls.arm(ps, d.onReadable); err != nil {
				for _, a := range armed {
					a.disarm()
				}
				s.onAccept = nil
				return fmt.Errorf("tcpserv: arm fd %d: %w", ls.fd, err)
			}
			armed = append(armed, ls)
		}
	}
	s.started = true
	return nil
}

// dispatcher 是单个监听套接字的就绪处理器。
type dispatcher struct {
	srv       *Server
	ls        *listenSocket
	ps        poller.Pollset
	portIndex int
	fdIndex   int
}

// onReadable 在一次就绪通知内排空全部待接连接（边缘触发要求如此）。
// 瞬时错误静默结束本轮；致命错误仅禁用该套接字，不影响其余套接字。
func (d *dispatcher) onReadable() {
	if d.ls.dead.Load() {
		return
	}
	for {
		fd, sa, err := acceptOne(d.ls.fd)
		if err != nil {
			switch err {
			case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED:
				return
			case unix.EMFILE, unix.ENFILE:
				log.Printf("tcpserv: accept fd=%d: %v", d.ls.fd, err)
				return
			default:
				log.Printf("tcpserv: accept fd=%d failed, disabling socket: %v", d.ls.fd, err)
				d.ls.dead.Store(true)
				d.ls.disarm()
				return
			}
		}
		_ = netutil.SetNoDelay(fd, true)
		ep := endpoint.New(fd, d.ls.addr, netutil.SockaddrTCPAddr(sa))
		acc := &Acceptor{
			Server:    d.srv.Ref(),
			PortIndex: d.portIndex,
			FDIndex:   d.fdIndex,
		}
		d.srv.onAccept(ep, d.ps, acc)
	}
}
