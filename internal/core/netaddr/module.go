// Package netaddr 实现网络端点地址与名称解析
package netaddr

import (
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/pkg/types"
)

// 解析器配置键
const (
	// KeyResolverTimeout 单次解析超时（毫秒）
	KeyResolverTimeout = "resolver.timeoutMs"
	// KeyResolverCacheSize 缓存条目数
	KeyResolverCacheSize = "resolver.cacheSize"
	// KeyResolverServers 逗号分隔的 DNS 服务器列表，为空时使用系统解析器
	KeyResolverServers = "resolver.servers"
	// KeyResolverMode 配置了服务器时的查询方式：dns（默认）或 system
	KeyResolverMode = "resolver.mode"
)

// 解析器模式
const (
	// ResolverModeDNS 由 miekg/dns 直接查询全部配置的服务器
	ResolverModeDNS = "dns"
	// ResolverModeSystem 使用系统解析器，固定查询第一个配置的服务器
	ResolverModeSystem = "system"
)

// Params 解析器依赖参数
type Params struct {
	fx.In

	Config config.Store `optional:"true"`
}

// Module 返回 netaddr fx 模块
//
// 提供系统解析器（或配置的 DNS 服务器）外包缓存与超时的 Resolver。
func Module() fx.Option {
	return fx.Module("netaddr",
		fx.Provide(NewResolverFromParams),
	)
}

// NewResolverFromParams 从配置创建解析器
func NewResolverFromParams(p Params) (Resolver, error) {
	store := p.Config
	if store == nil {
		store = config.NewMapStore(nil)
	}

	timeoutMs, err := store.GetInt(KeyResolverTimeout, int(DefaultDNSTimeout/time.Millisecond))
	if err != nil {
		return nil, err
	}
	size, err := store.GetInt(KeyResolverCacheSize, DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(timeoutMs) * time.Millisecond

	var base Resolver = systemResolver
	servers := config.SplitList(store.GetString(KeyResolverServers, ""))
	switch mode := store.GetString(KeyResolverMode, ResolverModeDNS); mode {
	case ResolverModeDNS:
		if len(servers) > 0 {
			base, err = NewDNSResolver(DNSConfig{Servers: servers, Timeout: timeout})
			if err != nil {
				return nil, err
			}
		}
	case ResolverModeSystem:
		if len(servers) > 0 {
			base = NewSystemResolverWithServer(servers[0], timeout)
		}
	default:
		return nil, types.NewConfigError(KeyResolverMode, "unknown resolver mode %q", mode)
	}

	return NewCachingResolver(WithTimeout(base, timeout), size, DefaultCacheTTL), nil
}
