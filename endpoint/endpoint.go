//go:build linux || darwin

// Package endpoint 将已接受的连接描述符包装为可读写的流对象。
package endpoint

import (
	"io"
	"net"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Endpoint 持有一个非阻塞连接 fd 及其两端地址。
// Read/Write 直接走系统调用，不就绪时返回 unix.EAGAIN，由调用方
// 配合事件循环重试。
type Endpoint struct {
	fd     int
	local  *net.TCPAddr
	remote *net.TCPAddr
	closed atomic.Bool
}

func New(fd int, local, remote *net.TCPAddr) *Endpoint {
	return &Endpoint{fd: fd, local: local, remote: remote}
}

func (e *Endpoint) FD() int { return e.fd }

func (e *Endpoint) LocalAddr() *net.TCPAddr { return e.local }

func (e *Endpoint) RemoteAddr() *net.TCPAddr { return e.remote }

func (e *Endpoint) Read(p []byte) (int, error) {
	n, err := unix.Read(e.fd, p)
	if n < 0 {
		n = 0
	}
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (e *Endpoint) Write(p []byte) (int, error) {
	n, err := unix.Write(e.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

// Shutdown 关闭双向传输但保留 fd，随后仍需 Close。
func (e *Endpoint) Shutdown() error {
	return unix.Shutdown(e.fd, unix.SHUT_RDWR)
}

func (e *Endpoint) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(e.fd)
}
