package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dep2p/go-netssl/internal/core/netaddr"
)

// ============================================================================
//                              StreamSocket 实现
// ============================================================================

// StreamSocket 已建立的 TCP 字节流
type StreamSocket struct {
	conn  net.Conn
	local netaddr.Address
	peer  netaddr.Address

	closeOnce sync.Once
	closeErr  error
}

// NewStreamSocket 包装已建立的连接
func NewStreamSocket(conn net.Conn) (*StreamSocket, error) {
	local, err := netaddr.FromNetAddr(conn.LocalAddr())
	if err != nil {
		return nil, err
	}
	peer, err := netaddr.FromNetAddr(conn.RemoteAddr())
	if err != nil {
		return nil, err
	}
	return &StreamSocket{conn: conn, local: local, peer: peer}, nil
}

// Dial 连接到 addr
func Dial(ctx context.Context, addr netaddr.Address) (*StreamSocket, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, addr.Network(), addr.AddrPort().String())
	if err != nil {
		return nil, fmt.Errorf("tcp dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	s, err := NewStreamSocket(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	log.Debug("连接已建立", "local", s.local.String(), "peer", s.peer.String())
	return s, nil
}

// SendBytes 发送数据，返回写入的字节数
func (s *StreamSocket) SendBytes(p []byte) (int, error) {
	return s.conn.Write(p)
}

// ReceiveBytes 接收数据，对端关闭时返回 io.EOF
func (s *StreamSocket) ReceiveBytes(p []byte) (int, error) {
	return s.conn.Read(p)
}

// SetTimeout 设置后续收发的超时，0 表示不超时
func (s *StreamSocket) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return s.conn.SetDeadline(time.Time{})
	}
	return s.conn.SetDeadline(time.Now().Add(d))
}

// Address 返回本地地址
func (s *StreamSocket) Address() netaddr.Address {
	return s.local
}

// PeerAddress 返回对端地址
func (s *StreamSocket) PeerAddress() netaddr.Address {
	return s.peer
}

// NetConn 返回底层连接
func (s *StreamSocket) NetConn() net.Conn {
	return s.conn
}

// Close 关闭连接，可多次调用
func (s *StreamSocket) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
