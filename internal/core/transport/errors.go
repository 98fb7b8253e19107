package transport

import "errors"

var (
	// ErrNoListenAddress 未配置监听地址
	ErrNoListenAddress = errors.New("transport: no listen address configured")
)
