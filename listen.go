//go:build linux || darwin

package tcpserv

import (
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/legamerdc/tcpserv/internal/netutil"
	"github.com/legamerdc/tcpserv/poller"
)

const listenBacklog = 1024

// listenSocket 是一个已绑定并进入监听状态的套接字。
type listenSocket struct {
	fd   int
	addr *net.TCPAddr // getsockname 得到的实际绑定地址

	// Start 时装配；关停时撤销
	ps     poller.Pollset
	handle poller.Handle
	dead   atomic.Bool // 致命 accept 错误后置位，停止该套接字的分发
}

type listenOpts struct {
	dualStack bool // 仅对 AF_INET6 通配生效：IPV6_V6ONLY=0
	reusePort bool
}

// openListenSocket 创建、配置并绑定一个监听套接字；ip 为 nil 表示通配。
func openListenSocket(family int, ip net.IP, port int, opt listenOpts) (*listenSocket, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("tcpserv: socket: %w", err)
	}
	unix.CloseOnExec(fd)
	_ = netutil.SetReuseAddr(fd, true)
	if opt.reusePort {
		_ = netutil.SetReusePort(fd, true)
	}
	_ = netutil.SetNonblock(fd, true)
	if family == unix.AF_INET6 {
		_ = netutil.SetV6Only(fd, !opt.dualStack)
	}
	sa, err := netutil.Sockaddr(family, ip, port)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("tcpserv: bind %s: %w", netutil.FormatSockaddr(sa), err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("tcpserv: listen %s: %w", netutil.FormatSockaddr(sa), err)
	}
	addr, err := netutil.LocalTCPAddr(fd)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &listenSocket{fd: fd, addr: addr}, nil
}

func (ls *listenSocket) arm(ps poller.Pollset, onReadable func()) error {
	h, err := ps.RegisterRead(ls.fd, onReadable)
	if err != nil {
		return err
	}
	ls.ps, ls.handle = ps, h
	return nil
}

func (ls *listenSocket) disarm() {
	if ls.handle != nil {
		_ = ls.ps.Unregister(ls.handle)
		ls.handle = nil
		ls.ps = nil
	}
}

func (ls *listenSocket) shut() {
	ls.disarm()
	_ = unix.Close(ls.fd)
}
