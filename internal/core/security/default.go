package security

import (
	"sync"
	"sync/atomic"
)

var (
	defaultMu      sync.Mutex
	defaultManager atomic.Pointer[Manager]
)

// Default 返回进程级默认管理器，首次调用时以空配置创建
func Default() *Manager {
	if m := defaultManager.Load(); m != nil {
		return m
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if m := defaultManager.Load(); m != nil {
		return m
	}
	m := NewManager()
	defaultManager.Store(m)
	return m
}

// SetDefault 替换默认管理器，返回之前的实例（可能为 nil）
func SetDefault(m *Manager) *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultManager.Swap(m)
}

// ResetDefault 关闭并丢弃默认管理器，下次 Default 重新创建
func ResetDefault() error {
	if old := SetDefault(nil); old != nil {
		return old.Shutdown()
	}
	return nil
}
