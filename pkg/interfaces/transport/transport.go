// Package transport 定义套接字形态的传输接口
//
// PlainListener 是普通监听套接字原语；SocketImpl 是安全监听套接字对外暴露的
// 完整套接字操作集，其中面向连接与数据报的操作对监听套接字不适用。
package transport

import (
	"net"
	"time"

	"github.com/dep2p/go-netssl/internal/core/netaddr"
)

// PlainListener 普通监听套接字
type PlainListener interface {
	// Bind 绑定本地地址
	Bind(addr netaddr.Address, reuseAddress bool) error

	// Listen 进入监听状态
	Listen(backlog int) error

	// AcceptConnection 接受一个连接，timeout 为 0 表示不超时
	AcceptConnection(timeout time.Duration) (net.Conn, netaddr.Address, error)

	// Close 关闭套接字，可多次调用
	Close() error

	// Fd 返回底层描述符，未打开时返回 -1
	Fd() int

	// Address 返回实际绑定的本地地址
	Address() netaddr.Address
}

// SocketImpl 套接字操作集
type SocketImpl interface {
	// Bind 绑定本地地址
	Bind(addr netaddr.Address, reuseAddress bool) error

	// Listen 进入监听状态
	Listen(backlog int) error

	// Close 关闭套接字，可多次调用
	Close() error

	// Fd 返回底层描述符，未打开时返回 -1
	Fd() int

	// Address 返回本地地址
	Address() netaddr.Address

	// SendBytes 发送数据
	SendBytes(p []byte) (int, error)

	// ReceiveBytes 接收数据
	ReceiveBytes(p []byte) (int, error)

	// SendTo 向指定地址发送数据报
	SendTo(p []byte, addr netaddr.Address) (int, error)

	// ReceiveFrom 接收数据报及其来源
	ReceiveFrom(p []byte) (int, netaddr.Address, error)

	// SendUrgent 发送一个带外字节
	SendUrgent(b byte) error

	// Connect 连接到远端
	Connect(addr netaddr.Address) error

	// ConnectTimeout 带超时连接到远端
	ConnectTimeout(addr netaddr.Address, timeout time.Duration) error

	// ConnectNB 非阻塞连接到远端
	ConnectNB(addr netaddr.Address) error
}
