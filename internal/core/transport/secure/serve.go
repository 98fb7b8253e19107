package secure

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dep2p/go-netssl/pkg/types"
)

// Handler 处理已完成握手的连接
type Handler interface {
	ServeConn(ctx context.Context, s *StreamSocket)
}

// HandlerFunc 函数形式的 Handler
type HandlerFunc func(ctx context.Context, s *StreamSocket)

// ServeConn 调用 f(ctx, s)
func (f HandlerFunc) ServeConn(ctx context.Context, s *StreamSocket) {
	f(ctx, s)
}

const maxAcceptBackoff = time.Second

// Serve 循环接受连接，每个连接在独立 goroutine 中握手并交给 h
//
// ctx 取消时关闭监听套接字，返回 ctx.Err()；监听套接字被其他调用方关闭时
// 返回 types.ErrClosed。两种情况下都先关闭所有活动连接，再等待处理器返回。
// 握手失败的连接直接关闭。
func (l *Listener) Serve(ctx context.Context, h Handler) error {
	var (
		mu     sync.Mutex
		active = make(map[*StreamSocket]struct{})
		wg     sync.WaitGroup
	)

	closeActive := func() {
		mu.Lock()
		for s := range active {
			_ = s.Close()
		}
		mu.Unlock()
	}

	stop := context.AfterFunc(ctx, func() {
		_ = l.Close()
		closeActive()
	})
	defer stop()
	defer wg.Wait()
	defer closeActive()

	var backoff time.Duration
	for {
		s, err := l.AcceptConnection(0, nil)
		if err != nil {
			if errors.Is(err, types.ErrClosed) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}

			// 暂时性错误退避重试
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			log.Warn("接受连接失败，稍后重试", "err", err, "backoff", backoff)
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		backoff = 0

		mu.Lock()
		if ctx.Err() != nil {
			mu.Unlock()
			_ = s.Close()
			return ctx.Err()
		}
		active[s] = struct{}{}
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				mu.Lock()
				delete(active, s)
				mu.Unlock()
				_ = s.Close()
			}()

			if err := s.Handshake(ctx); err != nil {
				return
			}
			h.ServeConn(ctx, s)
		}()
	}
}
