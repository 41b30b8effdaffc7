//go:build linux || darwin

package tcpserv

import (
	"fmt"
	"log"
	"net"

	"golang.org/x/sys/unix"

	"github.com/legamerdc/tcpserv/internal/netutil"
)

// portBinding 为一次成功的 AddPort：一个逻辑端口及其套接字序列。
// 同一 binding 的所有套接字共享同一个解析端口。
type portBinding struct {
	requested string // 原始请求地址，仅用于日志
	port      int
	sockets   []*listenSocket
}

func (b *portBinding) closeAll() {
	for _, ls := range b.sockets {
		ls.shut()
	}
	b.sockets = nil
}

// AddPort 绑定一个逻辑端口，返回实际使用的端口号。仅限 Start 之前。
// 通配地址在开启 OptExpandWildcardAddrs 时逐接口展开为多个套接字；
// 展开过程中任一绑定失败则整个调用失败并回滚本次创建的全部套接字。
func (s *Server) AddPort(network, address string) (int, error) {
	if s.started {
		return 0, ErrStarted
	}
	family, err := netutil.FamilyForNetwork(network)
	if err != nil {
		return 0, err
	}
	addr, err := net.ResolveTCPAddr(network, address)
	if err != nil {
		return 0, fmt.Errorf("tcpserv: resolve %s %s: %w", network, address, err)
	}
	b := &portBinding{requested: address}
	wild := addr.IP == nil || addr.IP.IsUnspecified()
	if wild && s.opts.expandWildcard {
		if err := s.expandWildcard(b, family, addr.Port); err != nil {
			return 0, err
		}
	}
	if len(b.sockets) == 0 {
		// 指定地址，或通配未展开/无可枚举地址时的单套接字路径
		if err := s.addSingle(b, family, addr, wild); err != nil {
			return 0, err
		}
	}
	s.ports = append(s.ports, b)
	log.Printf("tcpserv: port %d bound, %d sockets (port_index=%d, requested=%q)",
		b.port, len(b.sockets), len(s.ports)-1, b.requested)
	return b.port, nil
}

// expandWildcard 为每个本机地址各建一个套接字。首个成功绑定的
// 套接字确定端口，其余必须绑到同一端口。
func (s *Server) expandWildcard(b *portBinding, family, port int) error {
	ips, err := netutil.LocalUnicastAddrs(family)
	if err != nil {
		log.Printf("tcpserv: enumerate local addrs: %v, falling back to wildcard socket", err)
		return nil
	}
	for _, ip := range ips {
		ls, err := openListenSocket(netutil.FamilyOf(ip), ip, port, listenOpts{reusePort: s.opts.reusePort})
		if err != nil {
			b.closeAll()
			return fmt.Errorf("tcpserv: expand wildcard at %s port %d: %w", ip, port, err)
		}
		if port == 0 {
			port = ls.addr.Port
		}
		b.sockets = append(b.sockets, ls)
	}
	b.port = port
	return nil
}

// addSingle 建一个套接字。未指定族的通配请求走 IPv6 双栈；内核不支持
// IPv6 时退回 IPv4。
func (s *Server) addSingle(b *portBinding, family int, addr *net.TCPAddr, wild bool) error {
	ip := addr.IP
	if wild {
		ip = nil
	}
	opt := listenOpts{reusePort: s.opts.reusePort}
	if family == unix.AF_UNSPEC {
		if wild {
			family = unix.AF_INET6
			opt.dualStack = true
		} else {
			family = netutil.FamilyOf(ip)
		}
	}
	ls, err := openListenSocket(family, ip, addr.Port, opt)
	if err != nil && wild && opt.dualStack {
		opt.dualStack = false
		ls, err = openListenSocket(unix.AF_INET, nil, addr.Port, opt)
	}
	if err != nil {
		return err
	}
	b.sockets = append(b.sockets, ls)
	b.port = ls.addr.Port
	return nil
}
