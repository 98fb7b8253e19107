package secure

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-netssl/internal/core/netaddr"
	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	"github.com/dep2p/go-netssl/pkg/types"
)

// ============================================================================
//                              StreamSocket 实现
// ============================================================================

// StreamSocket 安全监听套接字接受的连接
//
// 首次收发前隐式完成握手；需要控制超时或检查握手结果时显式调用 Handshake。
type StreamSocket struct {
	id   string
	raw  net.Conn
	conn *tls.Conn
	peer netaddr.Address
	opts *options

	handshakeOnce sync.Once
	handshakeErr  error

	closeOnce sync.Once
	closeErr  error
}

func newStreamSocket(raw net.Conn, conn *tls.Conn, peer netaddr.Address, opts *options) *StreamSocket {
	return &StreamSocket{
		id:   uuid.NewString(),
		raw:  raw,
		conn: conn,
		peer: peer,
		opts: opts,
	}
}

// ID 返回连接标识
func (s *StreamSocket) ID() string {
	return s.id
}

// Handshake 完成 TLS 服务端握手，只执行一次，之后返回相同结果
func (s *StreamSocket) Handshake(ctx context.Context) error {
	s.handshakeOnce.Do(func() {
		if _, ok := ctx.Deadline(); !ok && s.opts.handshakeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opts.handshakeTimeout)
			defer cancel()
		}

		s.handshakeErr = tlsimpl.Handshake(ctx, s.conn)
		s.opts.metrics.Handshake(types.RoleServer, s.handshakeErr)
		if s.handshakeErr != nil {
			log.Debug("握手失败", "conn", s.id, "peer", s.peer.String(), "err", s.handshakeErr)
			return
		}

		state := s.conn.ConnectionState()
		log.Debug("握手完成",
			"conn", s.id,
			"peer", s.peer.String(),
			"version", tls.VersionName(state.Version),
			"cipher", tls.CipherSuiteName(state.CipherSuite))
	})
	return s.handshakeErr
}

// SendBytes 发送数据
func (s *StreamSocket) SendBytes(p []byte) (int, error) {
	if err := s.Handshake(context.Background()); err != nil {
		return 0, err
	}
	n, err := s.conn.Write(p)
	if s.opts.reporter != nil {
		s.opts.reporter.LogSent(int64(n))
	}
	return n, err
}

// ReceiveBytes 接收数据，对端关闭时返回 io.EOF
func (s *StreamSocket) ReceiveBytes(p []byte) (int, error) {
	if err := s.Handshake(context.Background()); err != nil {
		return 0, err
	}
	n, err := s.conn.Read(p)
	if s.opts.reporter != nil {
		s.opts.reporter.LogRecv(int64(n))
	}
	return n, err
}

// Read 实现 io.Reader
func (s *StreamSocket) Read(p []byte) (int, error) {
	return s.ReceiveBytes(p)
}

// Write 实现 io.Writer
func (s *StreamSocket) Write(p []byte) (int, error) {
	return s.SendBytes(p)
}

// SetTimeout 设置后续收发的超时，0 表示不超时
func (s *StreamSocket) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return s.conn.SetDeadline(time.Time{})
	}
	return s.conn.SetDeadline(time.Now().Add(d))
}

// ConnectionState 返回 TLS 连接状态
func (s *StreamSocket) ConnectionState() tls.ConnectionState {
	return s.conn.ConnectionState()
}

// Address 返回本地地址
func (s *StreamSocket) Address() netaddr.Address {
	local, _ := netaddr.FromNetAddr(s.raw.LocalAddr())
	return local
}

// PeerAddress 返回对端地址
func (s *StreamSocket) PeerAddress() netaddr.Address {
	return s.peer
}

// NetConn 返回 TLS 连接
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
