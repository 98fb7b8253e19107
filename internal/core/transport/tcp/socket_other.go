//go:build !unix

package tcp

import (
	"net"

	"github.com/dep2p/go-netssl/internal/core/netaddr"
)

// boundSocket 记录绑定参数，监听器在 listen 时创建
type boundSocket struct {
	addr netaddr.Address
}

func bindSocket(addr netaddr.Address, _ bool) (*boundSocket, netaddr.Address, error) {
	return &boundSocket{addr: addr}, addr, nil
}

func (b *boundSocket) listen(_ int) (*net.TCPListener, error) {
	return net.ListenTCP(b.addr.Network(), b.addr.TCPAddr())
}

func (b *boundSocket) descriptor() int {
	return -1
}

func (b *boundSocket) close() error {
	return nil
}
