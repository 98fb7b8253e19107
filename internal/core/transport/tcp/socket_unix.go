//go:build unix

package tcp

import (
	"fmt"
	"net"
	"net/netip"
	"os"

	"golang.org/x/sys/unix"

	"github.com/dep2p/go-netssl/internal/core/netaddr"
	"github.com/dep2p/go-netssl/pkg/types"
)

// boundSocket 已绑定但未监听的描述符
type boundSocket struct {
	fd int
}

func bindSocket(addr netaddr.Address, reuseAddress bool) (*boundSocket, netaddr.Address, error) {
	domain, sa := sockaddr(addr)

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, netaddr.Address{}, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)

	if reuseAddress {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			_ = unix.Close(fd)
			return nil, netaddr.Address{}, os.NewSyscallError("setsockopt", err)
		}
	}

	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, netaddr.Address{}, os.NewSyscallError("bind", err)
	}

	local, err := unix.Getsockname(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, netaddr.Address{}, os.NewSyscallError("getsockname", err)
	}
	bound, err := fromSockaddr(local)
	if err != nil {
		_ = unix.Close(fd)
		return nil, netaddr.Address{}, err
	}
	return &boundSocket{fd: fd}, bound, nil
}

// listen 进入监听状态并交给 net 包的轮询器
func (b *boundSocket) listen(backlog int) (*net.TCPListener, error) {
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(b.fd, backlog); err != nil {
		return nil, os.NewSyscallError("listen", err)
	}

	// FileListener 复制描述符，原描述符随 f 一起关闭
	f := os.NewFile(uintptr(b.fd), "tcp-listener")
	l, err := net.FileListener(f)
	_ = f.Close()
	b.fd = -1
	if err != nil {
		return nil, err
	}

	tl, ok := l.(*net.TCPListener)
	if !ok {
		_ = l.Close()
		return nil, fmt.Errorf("unexpected listener type %T", l)
	}
	return tl, nil
}

func (b *boundSocket) descriptor() int {
	return b.fd
}

func (b *boundSocket) close() error {
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}

func sockaddr(addr netaddr.Address) (int, unix.Sockaddr) {
	if addr.Family() == types.FamilyIPv6 {
		return unix.AF_INET6, &unix.SockaddrInet6{Port: int(addr.Port()), Addr: addr.Host().As16()}
	}
	return unix.AF_INET, &unix.SockaddrInet4{Port: int(addr.Port()), Addr: addr.Host().As4()}
}

func fromSockaddr(sa unix.Sockaddr) (netaddr.Address, error) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return netaddr.FromIPAndPort(netip.AddrFrom4(v.Addr), uint16(v.Port))
	case *unix.SockaddrInet6:
		return netaddr.FromIPAndPort(netip.AddrFrom16(v.Addr), uint16(v.Port))
	default:
		return netaddr.Address{}, fmt.Errorf("unsupported socket address %T", sa)
	}
}
