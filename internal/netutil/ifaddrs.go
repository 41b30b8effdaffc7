//go:build linux || darwin

package netutil

import (
	"net"

	"golang.org/x/sys/unix"
)

// LocalUnicastAddrs 枚举本机可监听的单播地址，按 family 过滤（AF_UNSPEC 不过滤）。
// 跳过 IPv6 链路本地地址：绑定它们需要 zone，监听端不处理。
func LocalUnicastAddrs(family int) ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var out []net.IP
	for _, a := range addrs {
		n, ok := a.(*net.IPNet)
		if !ok || n.IP == nil {
			continue
		}
		ip := n.IP
		if ip.To4() == nil && ip.IsLinkLocalUnicast() {
			continue
		}
		switch family {
		case unix.AF_INET:
			if ip.To4() == nil {
				continue
			}
		case unix.AF_INET6:
			if ip.To4() != nil {
				continue
			}
		}
		out = append(out, ip)
	}
	return out, nil
}
