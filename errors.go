package netssl

import (
	"errors"

	"github.com/dep2p/go-netssl/pkg/types"
)

// ────────────────────────────────────────────────────────────────────────
// 错误分类
// ────────────────────────────────────────────────────────────────────────

var (
	// ErrEmptyAddress 空地址字面量
	ErrEmptyAddress = types.ErrEmptyAddress

	// ErrMalformedAddress 地址字面量格式错误
	ErrMalformedAddress = types.ErrMalformedAddress

	// ErrHostNotFound 主机名无法解析
	ErrHostNotFound = types.ErrHostNotFound

	// ErrServiceNotFound 服务名无法解析
	ErrServiceNotFound = types.ErrServiceNotFound

	// ErrConfiguration 安全配置缺失或非法
	ErrConfiguration = types.ErrConfiguration

	// ErrUnknownHandler 处理器名称未注册
	ErrUnknownHandler = types.ErrUnknownHandler

	// ErrUnsupportedOperation 安全监听套接字不支持的操作
	ErrUnsupportedOperation = types.ErrUnsupportedOperation

	// ErrTimedOut 操作超时
	ErrTimedOut = types.ErrTimedOut

	// ErrEngine 底层 TLS 或套接字原语失败
	ErrEngine = types.ErrEngine

	// ErrClosed 套接字已关闭
	ErrClosed = types.ErrClosed
)

// 结构化错误
type (
	ConfigError      = types.ConfigError
	HandlerError     = types.HandlerError
	UnsupportedError = types.UnsupportedError
	EngineError      = types.EngineError
)

// ────────────────────────────────────────────────────────────────────────
// 应用错误
// ────────────────────────────────────────────────────────────────────────

var (
	// ErrNotStarted 应用未启动
	ErrNotStarted = errors.New("netssl: app not started")

	// ErrAlreadyStarted 应用已启动
	ErrAlreadyStarted = errors.New("netssl: app already started")

	// ErrNoListener 应用未配置监听地址
	ErrNoListener = errors.New("netssl: no listener configured")
)
