package netaddr

import (
	"context"
	"net/netip"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// 缓存默认值
const (
	// DefaultCacheSize 默认缓存条目数
	DefaultCacheSize = 256

	// DefaultCacheTTL 默认缓存 TTL
	DefaultCacheTTL = 5 * time.Minute
)

// ============================================================================
//                              CachingResolver
// ============================================================================

type serviceKey struct {
	network string
	service string
}

// CachingResolver 带 TTL 的 LRU 缓存解析器
//
// 只缓存成功结果，失败结果不缓存。
type CachingResolver struct {
	next     Resolver
	hosts    *expirable.LRU[string, []netip.Addr]
	services *expirable.LRU[serviceKey, uint16]
}

// 确保实现接口
var _ Resolver = (*CachingResolver)(nil)

// NewCachingResolver 创建缓存解析器，size/ttl 非正时使用默认值
func NewCachingResolver(next Resolver, size int, ttl time.Duration) *CachingResolver {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingResolver{
		next:     resolverOrDefault(next),
		hosts:    expirable.NewLRU[string, []netip.Addr](size, nil, ttl),
		services: expirable.NewLRU[serviceKey, uint16](size, nil, ttl),
	}
}

// LookupHost 解析主机名，命中缓存时返回副本
func (c *CachingResolver) LookupHost(ctx context.Context, name string) ([]netip.Addr, error) {
	if addrs, ok := c.hosts.Get(name); ok {
		log.Debug("使用缓存的解析结果", "host", name, "addrs", len(addrs))
		return append([]netip.Addr(nil), addrs...), nil
	}

	addrs, err := c.next.LookupHost(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(addrs) > 0 {
		c.hosts.Add(name, append([]netip.Addr(nil), addrs...))
	}
	return addrs, nil
}

// LookupService 解析服务名
func (c *CachingResolver) LookupService(ctx context.Context, network, service string) (uint16, error) {
	key := serviceKey{network: network, service: service}
	if port, ok := c.services.Get(key); ok {
		return port, nil
	}

	port, err := c.next.LookupService(ctx, network, service)
	if err != nil {
		return 0, err
	}
	c.services.Add(key, port)
	return port, nil
}

// Purge 清空缓存
func (c *CachingResolver) Purge() {
	c.hosts.Purge()
	c.services.Purge()
}

// Len 返回主机缓存条目数
func (c *CachingResolver) Len() int {
	return c.hosts.Len()
}
