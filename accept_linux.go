//go:build linux

package tcpserv

import "golang.org/x/sys/unix"

func acceptOne(lfd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
}
