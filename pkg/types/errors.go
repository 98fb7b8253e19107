// Package types 定义 go-netssl 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              地址相关错误
// ============================================================================

var (
	// ErrEmptyAddress 空地址字面量（调用方违反前置条件）
	ErrEmptyAddress = errors.New("empty address literal")

	// ErrMalformedAddress 地址字面量语法错误
	ErrMalformedAddress = errors.New("malformed address")

	// ErrHostNotFound 主机名解析无结果
	ErrHostNotFound = errors.New("host not found")

	// ErrServiceNotFound 服务名无法解析为端口
	ErrServiceNotFound = errors.New("service not found")
)

// ============================================================================
//                              安全层错误
// ============================================================================

var (
	// ErrConfiguration 安全配置缺失或无效
	ErrConfiguration = errors.New("configuration error")

	// ErrUnknownHandler 指定名称的处理器未注册
	ErrUnknownHandler = errors.New("unknown handler")

	// ErrEngine 底层 TLS/套接字原语失败
	ErrEngine = errors.New("engine error")
)

// ============================================================================
//                              套接字错误
// ============================================================================

var (
	// ErrUnsupportedOperation 对安全监听套接字的结构性非法调用
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrTimedOut 操作超时
	ErrTimedOut = errors.New("timed out")

	// ErrClosed 套接字已关闭
	ErrClosed = errors.New("socket closed")
)

// ============================================================================
//                              结构化错误
// ============================================================================

// ConfigError 配置错误，携带出错的配置键
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error [%s]: %s", e.Key, e.Message)
}

// Is 使 errors.Is(err, ErrConfiguration) 成立
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigError 创建配置错误
func NewConfigError(key, format string, args ...any) *ConfigError {
	return &ConfigError{Key: key, Message: fmt.Sprintf(format, args...)}
}

// HandlerError 处理器查找失败
type HandlerError struct {
	// Kind 处理器类别，如 "passphrase"、"certificate"
	Kind string
	// Name 查找的处理器名称
	Name string
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("unknown %s handler: no handler registered with the name %q", e.Kind, e.Name)
}

// Is 使 errors.Is(err, ErrUnknownHandler) 成立
func (e *HandlerError) Is(target error) bool {
	return target == ErrUnknownHandler
}

// UnsupportedError 不支持的操作，携带操作名
type UnsupportedError struct {
	Op     string
	Target string
}

func (e *UnsupportedError) Error() string {
	target := e.Target
	if target == "" {
		target = "socket"
	}
	return fmt.Sprintf("cannot %s() on a %s: %s", e.Op, target, ErrUnsupportedOperation)
}

// Is 使 errors.Is(err, ErrUnsupportedOperation) 成立
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// EngineError 包装底层原语返回的错误
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap 返回原始错误
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrEngine) 成立
func (e *EngineError) Is(target error) bool {
	return target == ErrEngine
}

// NewEngineError 包装引擎错误；err 为 nil 时返回 nil
func NewEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Err: err}
}
