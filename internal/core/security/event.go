package security

import (
	"sync"
)

// Event 同步事件，订阅者按注册顺序调用
//
// Notify 持有读锁调用订阅者，Subscribe 与取消订阅持有写锁，
// 因此取消订阅会等待正在进行的通知结束，之后该订阅者不会再被调用。
// 订阅者不能在回调中取消自身订阅。
type Event[T any] struct {
	mu   sync.RWMutex
	subs []*subscriber[T]
}

type subscriber[T any] struct {
	fn func(T)
}

// Subscribe 添加订阅者，返回取消订阅函数（可多次调用）
func (e *Event[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s := &subscriber[T]{fn: fn}

	e.mu.Lock()
	e.subs = append(e.subs, s)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.remove(s)
		})
	}
}

func (e *Event[T]) remove(s *subscriber[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, x := range e.subs {
		if x == s {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

// Notify 依次调用订阅者，返回被调用的订阅者数量
func (e *Event[T]) Notify(arg T) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.subs {
		s.fn(arg)
	}
	return len(e.subs)
}

// Clear 移除全部订阅者
func (e *Event[T]) Clear() {
	e.mu.Lock()
	e.subs = nil
	e.mu.Unlock()
}

// Len 订阅者数量
func (e *Event[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}
