package tcp

import "errors"

var (
	// ErrNotBound 套接字尚未绑定
	ErrNotBound = errors.New("tcp: socket not bound")

	// ErrAlreadyBound 套接字已绑定
	ErrAlreadyBound = errors.New("tcp: socket already bound")

	// ErrNotListening 套接字尚未进入监听状态
	ErrNotListening = errors.New("tcp: socket not listening")

	// ErrAlreadyListening 套接字已在监听
	ErrAlreadyListening = errors.New("tcp: socket already listening")
)
