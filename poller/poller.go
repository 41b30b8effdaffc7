package poller

import (
	"errors"
	"time"
)

// FD 表示文件描述符。
type FD = int

// Handle 标识一次读就绪注册，用于撤销注册。
type Handle interface {
	FD() FD
}

// Pollset 提供读就绪注册与事件泵。
// Work 阻塞等待事件直到 deadline（零值表示无限等待），就绪回调在调用
// Work 的 goroutine 上同步执行，要求无阻塞返回；多个 goroutine 可同时
// 调用 Work。Kick 唤醒一个正在等待的 Work 并使其返回。
type Pollset interface {
	RegisterRead(fd FD, onReadable func()) (Handle, error)
	Unregister(h Handle) error
	Kick() error
	Work(deadline time.Time) error
	Close() error
}

// ErrClosed 在 Close 之后继续使用 Pollset 时返回。
var ErrClosed = errors.New("poller: pollset closed")

// ErrBadHandle 表示 Handle 不属于该 Pollset 或已被撤销。
var ErrBadHandle = errors.New("poller: bad handle")
