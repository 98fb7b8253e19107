package secure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/dep2p/go-netssl/internal/core/netaddr"
	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	"github.com/dep2p/go-netssl/internal/core/transport/tcp"
	"github.com/dep2p/go-netssl/internal/util/logger"
	pkgif "github.com/dep2p/go-netssl/pkg/interfaces"
	transportif "github.com/dep2p/go-netssl/pkg/interfaces/transport"
	"github.com/dep2p/go-netssl/pkg/types"
)

var log = logger.Logger("transport.secure")

// ============================================================================
//                              Listener 实现
// ============================================================================

// Listener 安全监听套接字
type Listener struct {
	plain   transportif.PlainListener
	tlsCtx  *tlsimpl.Context
	opts    options
	emitter pkgif.Emitter

	mu     sync.Mutex
	fd     int
	closed atomic.Bool
}

// 确保实现接口
var _ transportif.SocketImpl = (*Listener)(nil)

// New 使用新的 TCP 监听套接字创建安全监听套接字
func New(ctx *tlsimpl.Context, opts ...Option) (*Listener, error) {
	return NewWithSocket(tcp.NewServerSocket(), ctx, opts...)
}

// NewWithSocket 使用指定的普通监听套接字创建安全监听套接字
func NewWithSocket(plain transportif.PlainListener, ctx *tlsimpl.Context, opts ...Option) (*Listener, error) {
	switch {
	case plain == nil:
		return nil, ErrNilSocket
	case ctx == nil:
		return nil, ErrNilContext
	case !ctx.Role().IsServer():
		return nil, ErrNotServerContext
	}

	l := &Listener{plain: plain, tlsCtx: ctx, fd: -1}
	for _, opt := range opts {
		opt(&l.opts)
	}

	if l.opts.bus != nil {
		em, err := l.opts.bus.Emitter(new(types.EvtConnectionAccepted))
		if err != nil {
			log.Warn("创建连接事件发射器失败", "err", err)
		} else {
			l.emitter = em
		}
	}
	return l, nil
}

// Context 返回安全上下文
func (l *Listener) Context() *tlsimpl.Context {
	return l.tlsCtx
}

// Bind 绑定本地地址，成功后接管普通套接字的描述符
func (l *Listener) Bind(addr netaddr.Address, reuseAddress bool) error {
	if l.closed.Load() {
		return types.ErrClosed
	}
	if err := l.plain.Bind(addr, reuseAddress); err != nil {
		return err
	}
	l.adopt()
	return nil
}

// Listen 进入监听状态
func (l *Listener) Listen(backlog int) error {
	if l.closed.Load() {
		return types.ErrClosed
	}
	if err := l.plain.Listen(backlog); err != nil {
		return err
	}
	l.adopt()
	log.Info("安全监听已启动", "addr", l.plain.Address().String())
	return nil
}

func (l *Listener) adopt() {
	l.mu.Lock()
	l.fd = l.plain.Fd()
	l.mu.Unlock()
}

// AcceptConnection 接受一个连接
//
// 返回的 StreamSocket 尚未完成握手。clientAddress 非 nil 时写入对端地址。
// timeout 为 0 表示一直等待，包含限速等待的时间。
func (l *Listener) AcceptConnection(timeout time.Duration, clientAddress *netaddr.Address) (*StreamSocket, error) {
	if l.closed.Load() {
		return nil, types.ErrClosed
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	if l.opts.limiter != nil {
		if err := l.waitLimiter(deadline); err != nil {
			l.opts.metrics.AcceptFailed("rate_limited")
			return nil, err
		}
		if timeout > 0 {
			timeout = time.Until(deadline)
			if timeout <= 0 {
				l.opts.metrics.AcceptFailed("timeout")
				return nil, fmt.Errorf("secure accept: %w", types.ErrTimedOut)
			}
		}
	}

	conn, peer, err := l.plain.AcceptConnection(timeout)
	if err != nil {
		if l.closed.Load() {
			return nil, types.ErrClosed
		}
		l.opts.metrics.AcceptFailed(acceptKind(err))
		return nil, err
	}

	if clientAddress != nil {
		*clientAddress = peer
	}

	s := newStreamSocket(conn, l.tlsCtx.Server(conn), peer, &l.opts)
	l.opts.metrics.Accepted()
	if l.emitter != nil {
		_ = l.emitter.Emit(types.EvtConnectionAccepted{
			BaseEvent: types.NewBaseEvent(types.EventTypeConnectionAccepted),
			ConnID:    s.ID(),
			Peer:      peer.String(),
		})
	}

	log.Debug("接受连接", "conn", s.ID(), "peer", peer.String())
	return s, nil
}

func (l *Listener) waitLimiter(deadline time.Time) error {
	ctx := context.Background()
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}
	if err := l.opts.limiter.Wait(ctx); err != nil {
		if !deadline.IsZero() {
			return fmt.Errorf("secure accept: %w", types.ErrTimedOut)
		}
		return fmt.Errorf("secure accept: %w", err)
	}
	return nil
}

func acceptKind(err error) string {
	switch {
	case errors.Is(err, types.ErrTimedOut):
		return "timeout"
	case errors.Is(err, types.ErrClosed):
		return "closed"
	default:
		return "error"
	}
}

// Close 关闭套接字，可多次调用
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := l.plain.Close()
	if l.emitter != nil {
		err = multierr.Append(err, l.emitter.Close())
	}

	l.mu.Lock()
	l.fd = -1
	l.mu.Unlock()

	log.Info("安全监听已关闭", "addr", l.plain.Address().String())
	return err
}

// IsClosed 检查套接字是否已关闭
func (l *Listener) IsClosed() bool {
	return l.closed.Load()
}

// Fd 返回接管的描述符，未绑定或已关闭时返回 -1
func (l *Listener) Fd() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fd
}

// Address 返回本地地址
func (l *Listener) Address() netaddr.Address {
	return l.plain.Address()
}

// ============================================================================
//                              不支持的操作
// ============================================================================

func unsupported(op string) error {
	return &types.UnsupportedError{Op: op, Target: targetName}
}

// SendBytes 不支持
func (l *Listener) SendBytes([]byte) (int, error) {
	return 0, unsupported("sendBytes")
}

// ReceiveBytes 不支持
func (l *Listener) ReceiveBytes([]byte) (int, error) {
	return 0, unsupported("receiveBytes")
}

// SendTo 不支持
func (l *Listener) SendTo([]byte, netaddr.Address) (int, error) {
	return 0, unsupported("sendTo")
}

// ReceiveFrom 不支持
func (l *Listener) ReceiveFrom([]byte) (int, netaddr.Address, error) {
	return 0, netaddr.Address{}, unsupported("receiveFrom")
}

// SendUrgent 不支持
func (l *Listener) SendUrgent(byte) error {
	return unsupported("sendUrgent")
}

// Connect 不支持
func (l *Listener) Connect(netaddr.Address) error {
	return unsupported("connect")
}

// ConnectTimeout 不支持
func (l *Listener) ConnectTimeout(netaddr.Address, time.Duration) error {
	return unsupported("connect")
}

// ConnectNB 不支持
func (l *Listener) ConnectNB(netaddr.Address) error {
	return unsupported("connectNB")
}
