package tcp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dep2p/go-netssl/internal/core/netaddr"
	"github.com/dep2p/go-netssl/internal/util/logger"
	transportif "github.com/dep2p/go-netssl/pkg/interfaces/transport"
	"github.com/dep2p/go-netssl/pkg/types"
)

var log = logger.Logger("transport.tcp")

// ============================================================================
//                              ServerSocket 实现
// ============================================================================

// ServerSocket 普通 TCP 监听套接字
//
// 状态依次为：新建 → 已绑定 → 监听中 → 已关闭。
// 同一时刻只应有一个 AcceptConnection 调用，超时通过监听器截止时间实现。
type ServerSocket struct {
	mu     sync.Mutex
	raw    *boundSocket
	ln     *net.TCPListener
	local  netaddr.Address
	closed bool
}

// 确保实现接口
var _ transportif.PlainListener = (*ServerSocket)(nil)

// NewServerSocket 创建未绑定的监听套接字
func NewServerSocket() *ServerSocket {
	return &ServerSocket{}
}

// Listen 创建绑定到 addr 并进入监听状态的套接字
func Listen(addr netaddr.Address, reuseAddress bool, backlog int) (*ServerSocket, error) {
	s := NewServerSocket()
	if err := s.Bind(addr, reuseAddress); err != nil {
		return nil, err
	}
	if err := s.Listen(backlog); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Bind 绑定本地地址，零值地址视为 IPv4 通配地址的任意端口
func (s *ServerSocket) Bind(addr netaddr.Address, reuseAddress bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return types.ErrClosed
	case s.raw != nil || s.ln != nil:
		return ErrAlreadyBound
	}

	if addr.IsZero() {
		addr = netaddr.Wildcard(types.FamilyIPv4, 0)
	}

	raw, local, err := bindSocket(addr, reuseAddress)
	if err != nil {
		return fmt.Errorf("tcp bind %s: %w", addr, err)
	}
	s.raw = raw
	s.local = local

	log.Debug("套接字已绑定", "addr", local.String(), "reuse", reuseAddress)
	return nil
}

// Listen 进入监听状态，backlog 不大于 0 时使用系统默认值
func (s *ServerSocket) Listen(backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return types.ErrClosed
	case s.ln != nil:
		return ErrAlreadyListening
	case s.raw == nil:
		return ErrNotBound
	}

	ln, err := s.raw.listen(backlog)
	if err != nil {
		return fmt.Errorf("tcp listen %s: %w", s.local, err)
	}
	s.raw = nil
	s.ln = ln

	if local, err := netaddr.FromNetAddr(ln.Addr()); err == nil {
		s.local = local
	}

	log.Info("开始监听", "addr", s.local.String(), "backlog", backlog)
	return nil
}

// AcceptConnection 接受一个连接
//
// timeout 为 0 表示一直等待；超时返回包装 types.ErrTimedOut 的错误，
// 套接字关闭后返回 types.ErrClosed。
func (s *ServerSocket) AcceptConnection(timeout time.Duration) (net.Conn, netaddr.Address, error) {
	s.mu.Lock()
	ln, closed := s.ln, s.closed
	s.mu.Unlock()

	if closed {
		return nil, netaddr.Address{}, types.ErrClosed
	}
	if ln == nil {
		return nil, netaddr.Address{}, ErrNotListening
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := ln.SetDeadline(deadline); err != nil {
		return nil, netaddr.Address{}, acceptError(err)
	}

	conn, err := ln.AcceptTCP()
	if err != nil {
		return nil, netaddr.Address{}, acceptError(err)
	}

	// 设置连接选项
	_ = conn.SetNoDelay(true)
	_ = conn.SetKeepAlive(true)

	peer, err := netaddr.FromNetAddr(conn.RemoteAddr())
	if err != nil {
		_ = conn.Close()
		return nil, netaddr.Address{}, fmt.Errorf("tcp accept: %w", err)
	}
	return conn, peer, nil
}

// Close 关闭套接字，可多次调用
func (s *ServerSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	switch {
	case s.ln != nil:
		err = s.ln.Close()
	case s.raw != nil:
		err = s.raw.close()
	}
	s.ln, s.raw = nil, nil

	log.Debug("套接字已关闭", "addr", s.local.String())
	return err
}

// Fd 返回底层描述符，未打开时返回 -1
func (s *ServerSocket) Fd() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.ln != nil:
		return listenerFd(s.ln)
	case s.raw != nil:
		return s.raw.descriptor()
	default:
		return -1
	}
}

// Address 返回实际绑定的本地地址，未绑定时为零值
func (s *ServerSocket) Address() netaddr.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

// IsClosed 检查套接字是否已关闭
func (s *ServerSocket) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ============================================================================
//                              辅助方法
// ============================================================================

func acceptError(err error) error {
	var ne net.Error
	switch {
	case errors.Is(err, net.ErrClosed):
		return types.ErrClosed
	case errors.As(err, &ne) && ne.Timeout():
		return fmt.Errorf("tcp accept: %w", types.ErrTimedOut)
	default:
		return fmt.Errorf("tcp accept: %w", err)
	}
}

func listenerFd(ln *net.TCPListener) int {
	rc, err := ln.SyscallConn()
	if err != nil {
		return -1
	}
	fd := -1
	if err := rc.Control(func(v uintptr) { fd = int(v) }); err != nil {
		return -1
	}
	return fd
}
