package netaddr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-netssl/internal/util/logger"
	"github.com/dep2p/go-netssl/pkg/types"
)

var log = logger.Logger("netaddr")

// ============================================================================
//                              Resolver 接口
// ============================================================================

// Resolver 名称解析器
type Resolver interface {
	// LookupHost 将主机名解析为 IP 列表
	LookupHost(ctx context.Context, name string) ([]netip.Addr, error)

	// LookupService 将服务名解析为端口，network 为 "tcp" 或 "udp"
	LookupService(ctx context.Context, network, service string) (uint16, error)
}

// defaultResolver 包级默认解析器
var defaultResolver atomic.Pointer[resolverBox]

type resolverBox struct{ r Resolver }

// DefaultResolver 返回包级默认解析器
func DefaultResolver() Resolver {
	if b := defaultResolver.Load(); b != nil {
		return b.r
	}
	return systemResolver
}

// SetDefaultResolver 设置包级默认解析器，传入 nil 恢复为系统解析器
func SetDefaultResolver(r Resolver) {
	if r == nil {
		defaultResolver.Store(nil)
		return
	}
	defaultResolver.Store(&resolverBox{r: r})
}

func resolverOrDefault(r Resolver) Resolver {
	if r == nil {
		return DefaultResolver()
	}
	return r
}

// ============================================================================
//                              SystemResolver
// ============================================================================

var systemResolver = NewSystemResolver(nil)

// SystemResolver 基于 net.Resolver 的系统解析器
type SystemResolver struct {
	resolver *net.Resolver
}

// 确保实现接口
var _ Resolver = (*SystemResolver)(nil)

// NewSystemResolver 创建系统解析器，r 为 nil 时使用 net.DefaultResolver
func NewSystemResolver(r *net.Resolver) *SystemResolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &SystemResolver{resolver: r}
}

// NewSystemResolverWithServer 创建使用指定 DNS 服务器的系统解析器
//
// server 格式: <ip>:<port>，例如 "8.8.8.8:53"
func NewSystemResolverWithServer(server string, timeout time.Duration) *SystemResolver {
	return &SystemResolver{
		resolver: &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				d := net.Dialer{Timeout: timeout}
				return d.DialContext(ctx, network, server)
			},
		},
	}
}

// LookupHost 解析主机名
func (s *SystemResolver) LookupHost(ctx context.Context, name string) ([]netip.Addr, error) {
	addrs, err := s.resolver.LookupNetIP(ctx, "ip", name)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("lookup %s: %w", name, types.ErrTimedOut)
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, hostNotFound(name, nil)
		}
		return nil, err
	}

	// net 包以 16 字节映射形式返回 A 记录，且不区分映射形式的 AAAA 记录
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Unmap())
	}
	return out, nil
}

// LookupService 解析服务名
func (s *SystemResolver) LookupService(ctx context.Context, network, service string) (uint16, error) {
	port, err := s.resolver.LookupPort(ctx, network, service)
	if err != nil {
		if isTimeout(ctx, err) {
			return 0, fmt.Errorf("lookup service %s: %w", service, types.ErrTimedOut)
		}
		return 0, serviceNotFound(service, err)
	}
	if port < 0 || port > 0xFFFF {
		return 0, serviceNotFound(service, nil)
	}
	return uint16(port), nil
}

// isTimeout 判断错误是否由超时引起
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ============================================================================
//                              超时装饰器
// ============================================================================

// timeoutResolver 为每次查询施加超时
type timeoutResolver struct {
	next    Resolver
	timeout time.Duration
}

// WithTimeout 返回为每次查询施加超时的解析器，超时返回 types.ErrTimedOut
func WithTimeout(r Resolver, timeout time.Duration) Resolver {
	if timeout <= 0 {
		return resolverOrDefault(r)
	}
	return &timeoutResolver{next: resolverOrDefault(r), timeout: timeout}
}

// LookupHost 带超时解析主机名
func (t *timeoutResolver) LookupHost(ctx context.Context, name string) ([]netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		addrs []netip.Addr
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		addrs, err := t.next.LookupHost(ctx, name)
		ch <- result{addrs, err}
	}()

	select {
	case res := <-ch:
		return res.addrs, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("lookup %s: %w", name, timedOut(ctx))
	}
}

// LookupService 带超时解析服务名
func (t *timeoutResolver) LookupService(ctx context.Context, network, service string) (uint16, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		port uint16
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		port, err := t.next.LookupService(ctx, network, service)
		ch <- result{port, err}
	}()

	select {
	case res := <-ch:
		return res.port, res.err
	case <-ctx.Done():
		return 0, fmt.Errorf("lookup service %s: %w", service, timedOut(ctx))
	}
}

// timedOut 将上下文结束原因映射为错误，截止时间到达映射为 types.ErrTimedOut
func timedOut(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.ErrTimedOut
	}
	return ctx.Err()
}
