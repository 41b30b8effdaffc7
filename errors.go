package tcpserv

import "errors"

var (
	// ErrStarted 表示 Start 之后调用了仅限启动前的操作（如 AddPort）。
	ErrStarted = errors.New("tcpserv: server already started")

	// ErrBadOption 表示已知键携带了错误类型的值。
	ErrBadOption = errors.New("tcpserv: bad channel option")

	// ErrNoPollset 表示存在监听套接字但 Start 未提供任何 Pollset。
	ErrNoPollset = errors.New("tcpserv: start requires at least one pollset")
)
