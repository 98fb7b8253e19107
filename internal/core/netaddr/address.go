package netaddr

import (
	"encoding/binary"
	"net"
	"net/netip"
	"strconv"

	"github.com/dep2p/go-netssl/pkg/types"
)

// ============================================================================
//                              Address - 端点地址
// ============================================================================

// Address 网络端点地址（IP + 端口）
//
// 零值表示未指定的地址，IsZero 返回 true。
// 地址族与原始字节长度始终一致：IPv4 为 4 字节，IPv6 为 16 字节。
// IPv4 映射的 IPv6 地址保持 IPv6 地址族；IPv6 区域标识（%eth0）随地址保留，
// 参与相等比较与字符串表示。
type Address struct {
	ip   netip.Addr
	port uint16
}

func newAddress(ip netip.Addr, port uint16) Address {
	return Address{ip: ip, port: port}
}

// Family 返回地址族
func (a Address) Family() types.Family {
	switch {
	case a.ip.Is4():
		return types.FamilyIPv4
	case a.ip.Is6():
		return types.FamilyIPv6
	default:
		return types.FamilyUnknown
	}
}

// Host 返回主机 IP
func (a Address) Host() netip.Addr {
	return a.ip
}

// Port 返回端口（主机字节序）
func (a Address) Port() uint16 {
	return a.port
}

// NetPort 返回网络字节序（大端）的端口
func (a Address) NetPort() [2]byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], a.port)
	return b
}

// Bytes 返回原始地址字节（4 或 16 字节），零值地址返回 nil
func (a Address) Bytes() []byte {
	if !a.ip.IsValid() {
		return nil
	}
	return a.ip.AsSlice()
}

// Length 返回原始地址字节长度
func (a Address) Length() int {
	return a.Family().AddrLen()
}

// IsZero 是否为零值地址
func (a Address) IsZero() bool {
	return !a.ip.IsValid()
}

// IsWildcard 主机部分是否为通配地址
func (a Address) IsWildcard() bool {
	return a.ip.IsUnspecified()
}

// String 返回地址字符串
//
// IPv4 为 host:port，IPv6 为 [host]:port。
func (a Address) String() string {
	if !a.ip.IsValid() {
		return ""
	}
	port := strconv.FormatUint(uint64(a.port), 10)
	if a.ip.Is6() {
		return "[" + a.ip.String() + "]:" + port
	}
	return a.ip.String() + ":" + port
}

// Equal 判断两个地址是否相等（地址族、原始字节、区域标识、端口全部相同）
func (a Address) Equal(other Address) bool {
	return a == other
}

// Compare 比较两个地址，依次按地址族、原始字节、端口排序
//
// 返回 -1、0 或 1。
func (a Address) Compare(other Address) int {
	if fa, fb := a.Family(), other.Family(); fa != fb {
		if fa < fb {
			return -1
		}
		return 1
	}
	if c := a.ip.Compare(other.ip); c != 0 {
		return c
	}
	switch {
	case a.port < other.port:
		return -1
	case a.port > other.port:
		return 1
	default:
		return 0
	}
}

// AddrPort 转换为 netip.AddrPort
func (a Address) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(a.ip, a.port)
}

// TCPAddr 转换为 *net.TCPAddr
func (a Address) TCPAddr() *net.TCPAddr {
	return net.TCPAddrFromAddrPort(a.AddrPort())
}

// Network 返回适用于 net 包的网络名
func (a Address) Network() string {
	if a.Family() == types.FamilyIPv6 {
		return "tcp6"
	}
	return "tcp4"
}

// ============================================================================
//                              辅助构造
// ============================================================================

// Wildcard 返回指定地址族的通配地址
func Wildcard(family types.Family, port uint16) Address {
	if family == types.FamilyIPv6 {
		return newAddress(netip.IPv6Unspecified(), port)
	}
	return newAddress(netip.IPv4Unspecified(), port)
}

// FromAddrPort 从 netip.AddrPort 构造地址
func FromAddrPort(ap netip.AddrPort) (Address, error) {
	return FromIPAndPort(ap.Addr(), ap.Port())
}

// FromNetAddr 从 net.Addr 构造地址，支持 *net.TCPAddr、*net.UDPAddr 与 host:port 形式
//
// 套接字上报的地址中 IPv4 常以 16 字节映射形式出现，这里还原为 IPv4。
func FromNetAddr(addr net.Addr) (Address, error) {
	var ap netip.AddrPort
	switch v := addr.(type) {
	case nil:
		return Address{}, types.ErrEmptyAddress
	case *net.TCPAddr:
		ap = v.AddrPort()
	case *net.UDPAddr:
		ap = v.AddrPort()
	default:
		var err error
		if ap, err = netip.ParseAddrPort(addr.String()); err != nil {
			return Address{}, malformed(addr.String(), err.Error())
		}
	}
	return FromIPAndPort(ap.Addr().Unmap(), ap.Port())
}
