//go:build linux || darwin

package netutil

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

var (
	ErrBadNetwork = errors.New("netutil: network must be tcp, tcp4 or tcp6")
	ErrBadAddress = errors.New("netutil: address family mismatch")
)

// FamilyForNetwork 将 "tcp"/"tcp4"/"tcp6" 映射为地址族；"tcp" 为 AF_UNSPEC。
func FamilyForNetwork(network string) (int, error) {
	switch network {
	case "tcp":
		return unix.AF_UNSPEC, nil
	case "tcp4":
		return unix.AF_INET, nil
	case "tcp6":
		return unix.AF_INET6, nil
	}
	return 0, ErrBadNetwork
}

// FamilyOf 返回 ip 所属地址族；nil 视为 AF_INET6（可双栈承载）。
func FamilyOf(ip net.IP) int {
	if ip != nil && ip.To4() != nil {
		return unix.AF_INET
	}
	return unix.AF_INET6
}

// Sockaddr 由 family/ip/port 构造 unix.Sockaddr；ip 为 nil 表示通配地址。
func Sockaddr(family int, ip net.IP, port int) (unix.Sockaddr, error) {
	if family == unix.AF_INET6 {
		sa := &unix.SockaddrInet6{Port: port}
		if ip != nil {
			v := ip.To16()
			if v == nil {
				return nil, ErrBadAddress
			}
			copy(sa.Addr[:], v)
		}
		return sa, nil
	}
	sa := &unix.SockaddrInet4{Port: port}
	if ip != nil {
		v := ip.To4()
		if v == nil {
			return nil, ErrBadAddress
		}
		copy(sa.Addr[:], v)
	}
	return sa, nil
}

// SockaddrTCPAddr 将内核返回的 sockaddr 转成 *net.TCPAddr；未知类型返回 nil。
func SockaddrTCPAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: append(net.IP(nil), a.Addr[:]...), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append(net.IP(nil), a.Addr[:]...), Port: a.Port}
	}
	return nil
}

// FormatSockaddr 格式化 sockaddr 用于日志输出。
func FormatSockaddr(sa unix.Sockaddr) string {
	if a := SockaddrTCPAddr(sa); a != nil {
		return a.String()
	}
	return "<unknown sockaddr>"
}

// LocalTCPAddr 以 getsockname 查询 fd 的实际绑定地址。
func LocalTCPAddr(fd int) (*net.TCPAddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	a := SockaddrTCPAddr(sa)
	if a == nil {
		return nil, ErrBadAddress
	}
	return a, nil
}
