package tcpserv

import "fmt"

// 可识别的选项键；未知键被忽略。
const (
	// OptExpandWildcardAddrs (int) 非零时将通配地址展开为逐接口监听。
	OptExpandWildcardAddrs = "tcp.expand_wildcard_addrs"

	// OptReusePort (int) 非零时在监听套接字上设置 SO_REUSEPORT。
	// 默认关闭：对已占用端口的再次 AddPort 确定性地返回 EADDRINUSE。
	OptReusePort = "tcp.so_reuseport"
)

// ChannelOption 为有序的键/类型化值对。Value 取 int 或 string。
type ChannelOption struct {
	Key   string
	Value any
}

type options struct {
	expandWildcard bool
	reusePort      bool
}

func parseOptions(opts []ChannelOption) (options, error) {
	var o options
	for _, c := range opts {
		switch c.Key {
		case OptExpandWildcardAddrs:
			v, ok := c.Value.(int)
			if !ok {
				return o, fmt.Errorf("%w: %s wants int, got %T", ErrBadOption, c.Key, c.Value)
			}
			o.expandWildcard = v != 0
		case OptReusePort:
			v, ok := c.Value.(int)
			if !ok {
				return o, fmt.Errorf("%w: %s wants int, got %T", ErrBadOption, c.Key, c.Value)
			}
			o.reusePort = v != 0
		}
	}
	return o, nil
}
