// Package types 定义 go-netssl 公共类型
//
// 本文件定义事件总线上的通知事件类型。
package types

import (
	"time"
)

// ============================================================================
//                              Event - 事件接口
// ============================================================================

// Event 基础事件接口
type Event interface {
	// Type 返回事件类型
	Type() string

	// Timestamp 返回事件时间戳
	Timestamp() time.Time
}

// BaseEvent 基础事件实现
type BaseEvent struct {
	EventType string
	Time      time.Time
}

// Type 返回事件类型
func (e BaseEvent) Type() string {
	return e.EventType
}

// Timestamp 返回事件时间戳
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// NewBaseEvent 创建基础事件
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
	}
}

// 事件类型常量
const (
	EventTypeContextReady       = "security.context.ready"
	EventTypeContextFailed      = "security.context.failed"
	EventTypeVerificationFailed = "security.verification.failed"
	EventTypeConnectionAccepted = "transport.secure.accepted"
)

// ============================================================================
//                              安全事件
// ============================================================================

// EvtContextReady 某角色的默认安全上下文已构建完成
type EvtContextReady struct {
	BaseEvent
	Role Role
	Mode VerificationMode
}

// EvtContextFailed 某角色的默认安全上下文构建失败
type EvtContextFailed struct {
	BaseEvent
	Role Role
	Err  error
}

// EvtVerificationFailed 对端证书验证失败（含覆盖结果）
type EvtVerificationFailed struct {
	BaseEvent
	Role       Role
	Subject    string
	Depth      int
	Code       int
	Reason     string
	Overridden bool
}

// EvtConnectionAccepted 安全监听套接字接受了新连接
type EvtConnectionAccepted struct {
	BaseEvent
	ConnID string
	Peer   string
}
