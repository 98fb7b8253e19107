package secure

import "errors"

var (
	// ErrNilContext 未提供安全上下文
	ErrNilContext = errors.New("secure: nil security context")

	// ErrNotServerContext 安全上下文不是服务端角色
	ErrNotServerContext = errors.New("secure: security context is not a server context")

	// ErrNilSocket 未提供普通监听套接字
	ErrNilSocket = errors.New("secure: nil plain socket")
)

// targetName 不支持操作的错误中使用的套接字名
const targetName = "SecureServerSocket"
