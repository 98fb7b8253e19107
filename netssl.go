package netssl

import (
	"context"
	"crypto/tls"
	"net/netip"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/core/netaddr"
	"github.com/dep2p/go-netssl/internal/core/security"
	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	"github.com/dep2p/go-netssl/internal/core/transport"
	"github.com/dep2p/go-netssl/internal/core/transport/secure"
	"github.com/dep2p/go-netssl/internal/core/transport/tcp"
	"github.com/dep2p/go-netssl/internal/util/logger"
)

var log = logger.Logger("netssl")

// ════════════════════════════════════════════════════════════════════════════
//                              地址
// ════════════════════════════════════════════════════════════════════════════

// ParseAddress 解析 "host:service" 形式的组合字面量，IPv6 主机需加方括号
func ParseAddress(ctx context.Context, text string) (Address, error) {
	return netaddr.Parse(ctx, nil, text)
}

// MustParseAddress 解析地址字面量，失败时 panic
func MustParseAddress(text string) Address {
	return netaddr.MustParse(text)
}

// AddressFromIP 由 IP 与端口构造地址
func AddressFromIP(ip netip.Addr, port uint16) (Address, error) {
	return netaddr.FromIPAndPort(ip, port)
}

// AddressFromHostAndPort 解析主机名并构造地址
func AddressFromHostAndPort(ctx context.Context, host string, port uint16) (Address, error) {
	return netaddr.FromHostAndPort(ctx, nil, host, port)
}

// AddressFromHostAndService 解析主机名与服务名并构造地址
func AddressFromHostAndService(ctx context.Context, host, service string) (Address, error) {
	return netaddr.FromHostAndService(ctx, nil, host, service)
}

// WildcardAddress 返回指定地址族的通配地址
func WildcardAddress(family Family, port uint16) Address {
	return netaddr.Wildcard(family, port)
}

// ════════════════════════════════════════════════════════════════════════════
//                              安全管理器
// ════════════════════════════════════════════════════════════════════════════

// DefaultManager 返回进程级默认管理器，首次调用时创建
func DefaultManager() *Manager {
	return security.Default()
}

// SetDefaultManager 替换进程级默认管理器，返回旧实例
func SetDefaultManager(m *Manager) *Manager {
	return security.SetDefault(m)
}

// NewManager 按配置来源选项创建独立的管理器
func NewManager(opts ...Option) (*Manager, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return o.newManager(false)
}

// newManager 合并配置并创建管理器，requireServer 时要求服务端密钥材料
func (o *options) newManager(requireServer bool) (*Manager, error) {
	store := o.store()
	if o.validate {
		if err := validate(store, o.namespace, requireServer); err != nil {
			return nil, err
		}
	}
	return security.NewManager(
		security.WithConfig(store),
		security.WithConfigPrefix(o.namespace),
	), nil
}

// managerFor 选择管理器：显式指定 > 按选项新建 > 默认管理器
func (o *options) managerFor(requireServer bool) (*Manager, error) {
	switch {
	case o.manager != nil:
		return o.manager, nil
	case o.hasConfig():
		return o.newManager(requireServer)
	default:
		return security.Default(), nil
	}
}

func validate(store Store, namespace string, requireServer bool) error {
	v := config.NewValidator(store, namespace)
	v.ValidateRole(RoleServer, requireServer)
	v.ValidateRole(RoleClient, false)
	if errs := v.Errors(); errs.HasErrors() {
		return errs
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              监听与拨号
// ════════════════════════════════════════════════════════════════════════════

// Listen 使用服务端默认上下文创建已绑定并处于监听状态的安全监听套接字
//
// 提供了配置来源选项时使用按选项新建的管理器，否则使用默认管理器。
func Listen(ctx context.Context, address string, opts ...Option) (*Listener, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	m, err := o.managerFor(true)
	if err != nil {
		return nil, err
	}

	srvCtx, err := m.DefaultContext(ctx, RoleServer)
	if err != nil {
		return nil, err
	}
	addr, err := netaddr.Parse(ctx, o.resolver, address)
	if err != nil {
		return nil, err
	}
	lcfg, err := transport.ConfigFromStore(o.store())
	if err != nil {
		return nil, err
	}

	ln, err := secure.New(srvCtx, lcfg.Options()...)
	if err != nil {
		return nil, err
	}
	if err := ln.Bind(addr, lcfg.ReuseAddress); err != nil {
		_ = ln.Close()
		return nil, err
	}
	if err := ln.Listen(lcfg.Backlog); err != nil {
		_ = ln.Close()
		return nil, err
	}
	return ln, nil
}

// Dial 使用客户端默认上下文连接 address 并完成握手
//
// 证书按地址字面量中的主机部分校验。
func Dial(ctx context.Context, address string, opts ...Option) (*tls.Conn, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	m, err := o.managerFor(false)
	if err != nil {
		return nil, err
	}

	cliCtx, err := m.DefaultContext(ctx, RoleClient)
	if err != nil {
		return nil, err
	}
	host, _, err := netaddr.SplitLiteral(address)
	if err != nil {
		return nil, err
	}
	addr, err := netaddr.Parse(ctx, o.resolver, address)
	if err != nil {
		return nil, err
	}

	sock, err := tcp.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	conn := cliCtx.Client(sock.NetConn(), host)
	if err := tlsimpl.Handshake(ctx, conn); err != nil {
		_ = sock.Close()
		return nil, err
	}

	log.Debug("已建立安全连接", "addr", addr.String(), "server", host)
	return conn, nil
}
