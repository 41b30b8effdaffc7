//go:build darwin

package tcpserv

import (
	"golang.org/x/sys/unix"

	"github.com/legamerdc/tcpserv/internal/netutil"
)

func acceptOne(lfd int) (int, unix.Sockaddr, error) {
	fd, sa, err := unix.Accept(lfd)
	if err != nil {
		return -1, nil, err
	}
	_ = netutil.SetNonblock(fd, true)
	unix.CloseOnExec(fd)
	return fd, sa, nil
}
