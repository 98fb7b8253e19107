package tcp

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-netssl/internal/core/netaddr"
	"github.com/dep2p/go-netssl/pkg/types"
)

func listenLoopback(t *testing.T) *ServerSocket {
	t.Helper()
	s, err := Listen(netaddr.MustParse("127.0.0.1:0"), true, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestServerSocket_Lifecycle 测试绑定、监听与接受
func TestServerSocket_Lifecycle(t *testing.T) {
	s := NewServerSocket()
	defer s.Close()

	assert.Equal(t, -1, s.Fd())
	assert.True(t, s.Address().IsZero())

	require.NoError(t, s.Bind(netaddr.MustParse("127.0.0.1:0"), true))
	assert.NotZero(t, s.Address().Port(), "port should be assigned after bind")
	assert.ErrorIs(t, s.Bind(netaddr.MustParse("127.0.0.1:0"), true), ErrAlreadyBound)

	_, _, err := s.AcceptConnection(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrNotListening)

	require.NoError(t, s.Listen(8))
	assert.ErrorIs(t, s.Listen(8), ErrAlreadyListening)
	assert.Equal(t, "127.0.0.1", s.Address().Host().String())

	client, err := net.Dial("tcp", s.Address().AddrPort().String())
	require.NoError(t, err)
	defer client.Close()

	conn, peer, err := s.AcceptConnection(time.Second)
	require.NoError(t, err)
	defer conn.Close()

	local, err := netaddr.FromNetAddr(client.LocalAddr())
	require.NoError(t, err)
	assert.True(t, peer.Equal(local))
}

// TestServerSocket_ListenWithoutBind 未绑定时监听失败
func TestServerSocket_ListenWithoutBind(t *testing.T) {
	s := NewServerSocket()
	defer s.Close()
	assert.ErrorIs(t, s.Listen(1), ErrNotBound)
}

// TestServerSocket_AcceptTimeout 超时返回 ErrTimedOut
func TestServerSocket_AcceptTimeout(t *testing.T) {
	s := listenLoopback(t)

	start := time.Now()
	conn, _, err := s.AcceptConnection(50 * time.Millisecond)
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, types.ErrTimedOut)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	// 超时后套接字仍可用
	client, err := net.Dial("tcp", s.Address().AddrPort().String())
	require.NoError(t, err)
	defer client.Close()

	conn, _, err = s.AcceptConnection(time.Second)
	require.NoError(t, err)
	conn.Close()
}

// TestServerSocket_Close 关闭可多次调用，之后操作返回 ErrClosed
func TestServerSocket_Close(t *testing.T) {
	s := listenLoopback(t)
	assert.NotEqual(t, -1, s.Fd())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.IsClosed())
	assert.Equal(t, -1, s.Fd())

	_, _, err := s.AcceptConnection(0)
	assert.ErrorIs(t, err, types.ErrClosed)
	assert.ErrorIs(t, s.Bind(netaddr.MustParse("127.0.0.1:0"), false), types.ErrClosed)
	assert.ErrorIs(t, s.Listen(1), types.ErrClosed)
}

// TestServerSocket_CloseUnblocksAccept 关闭唤醒阻塞中的接受
func TestServerSocket_CloseUnblocksAccept(t *testing.T) {
	s := listenLoopback(t)

	errCh := make(chan error, 1)
	go func() {
		_, _, err := s.AcceptConnection(0)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, types.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("accept not unblocked by close")
	}
}

// TestServerSocket_CloseBoundOnly 仅绑定的套接字也能关闭
func TestServerSocket_CloseBoundOnly(t *testing.T) {
	s := NewServerSocket()
	require.NoError(t, s.Bind(netaddr.MustParse("127.0.0.1:0"), false))
	require.NoError(t, s.Close())
	assert.Equal(t, -1, s.Fd())
}

// TestServerSocket_ZeroAddress 零值地址绑定到通配地址
func TestServerSocket_ZeroAddress(t *testing.T) {
	s := NewServerSocket()
	defer s.Close()
	require.NoError(t, s.Bind(netaddr.Address{}, false))
	assert.True(t, s.Address().IsWildcard())
}

// TestServerSocket_AddressInUse 端口被占用时绑定失败
func TestServerSocket_AddressInUse(t *testing.T) {
	s := listenLoopback(t)

	other := NewServerSocket()
	defer other.Close()
	err := other.Bind(s.Address(), false)
	if err == nil {
		err = other.Listen(1)
	}
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrClosed))
}
