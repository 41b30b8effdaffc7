//go:build linux || darwin

// Package tcpserv 实现多套接字 TCP 监听引擎：一个逻辑端口可展开为
// 多个监听套接字，由外部 Pollset 驱动非阻塞 accept，并把每个新连接
// 连同来源信息（port_index/fd_index）交给用户回调。
package tcpserv

import (
	"sync"
	"sync/atomic"

	"github.com/legamerdc/tcpserv/endpoint"
	"github.com/legamerdc/tcpserv/poller"
)

// AcceptCallback 在每个新连接被接受后同步调用，调用发生在泵动
// Pollset.Work 的 goroutine 上。回调接管 ep 与 acc.Server 引用。
type AcceptCallback func(ep *endpoint.Endpoint, ps poller.Pollset, acc *Acceptor)

// Acceptor 标识一个新连接的来源。Server 是新增的一份强引用，
// 回调用完后必须 Unref。
type Acceptor struct {
	Server    *Server
	PortIndex int
	FDIndex   int
}

// Server 为聚合根：持有逻辑端口序列、引用计数与关停观察者。
// 端口表仅在 AddPort（启动前）追加、在销毁时清理，接受阶段只读，
// 因此查询与 accept 分发之间无需加锁。
type Server struct {
	opts options
	refs atomic.Int32

	mu        sync.Mutex // 保护 observers 与 shutdown 标志
	observers []func()
	shutdown  bool

	started  bool
	ports    []*portBinding
	onAccept AcceptCallback
}

// New 创建引用计数为 1 的 Server。
func New(opts ...ChannelOption) (*Server, error) {
	o, err := parseOptions(opts)
	if err != nil {
		return nil, err
	}
	s := &Server{opts: o}
	s.refs.Store(1)
	return s, nil
}

// Ref 增加一份强引用，返回同一 Server 便于链式使用。
func (s *Server) Ref() *Server {
	s.refs.Add(1)
	return s
}

// Unref 释放一份强引用；计数归零时开始关停：先按注册顺序逐个
// 通知观察者，再关闭全部监听套接字。多释放属编程错误，直接 panic。
func (s *Server) Unref() {
	n := s.refs.Add(-1)
	if n < 0 {
		panic("tcpserv: unref of destroyed server")
	}
	if n == 0 {
		s.destroy()
	}
}

func (s *Server) destroy() {
	s.mu.Lock()
	s.shutdown = true
	obs := s.observers
	s.observers = nil
	s.mu.Unlock()
	for _, fn := range obs {
		fn()
	}
	for _, b := range s.ports {
		for _, ls := range b.sockets {
			ls.shut()
		}
	}
	s.ports = nil
	s.onAccept = nil
}

// ShutdownStartingAdd 注册关停观察者。调用期间须持有强引用；
// 若关停已开始则立即内联调用，绝不静默丢弃。
func (s *Server) ShutdownStartingAdd(fn func()) {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		fn()
		return
	}
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// PortFDCount 返回指定逻辑端口的监听套接字个数；越界返回 0。
func (s *Server) PortFDCount(portIndex int) int {
	if portIndex < 0 || portIndex >= len(s.ports) {
		return 0
	}
	return len(s.ports[portIndex].sockets)
}

// PortFD 返回指定监听套接字的描述符；任一下标越界返回 -1。
func (s *Server) PortFD(portIndex, fdIndex int) int {
	if portIndex < 0 || portIndex >= len(s.ports) {
		return -1
	}
	b := s.ports[portIndex]
	if fdIndex < 0 || fdIndex >= len(b.sockets) {
		return -1
	}
	return b.sockets[fdIndex].fd
}
