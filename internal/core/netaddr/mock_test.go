package netaddr

import (
	"context"
	"net/netip"
	"sync/atomic"

	"github.com/dep2p/go-netssl/pkg/types"
)

// mockResolver 测试用解析器
type mockResolver struct {
	hosts    map[string][]netip.Addr
	services map[string]uint16

	LookupHostFunc    func(ctx context.Context, name string) ([]netip.Addr, error)
	LookupServiceFunc func(ctx context.Context, network, service string) (uint16, error)

	hostCalls    atomic.Int32
	serviceCalls atomic.Int32
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		hosts:    make(map[string][]netip.Addr),
		services: make(map[string]uint16),
	}
}

func (m *mockResolver) LookupHost(ctx context.Context, name string) ([]netip.Addr, error) {
	m.hostCalls.Add(1)
	if m.LookupHostFunc != nil {
		return m.LookupHostFunc(ctx, name)
	}
	addrs, ok := m.hosts[name]
	if !ok {
		return nil, hostNotFound(name, nil)
	}
	return addrs, nil
}

func (m *mockResolver) LookupService(ctx context.Context, network, service string) (uint16, error) {
	m.serviceCalls.Add(1)
	if m.LookupServiceFunc != nil {
		return m.LookupServiceFunc(ctx, network, service)
	}
	port, ok := m.services[service]
	if !ok {
		return 0, serviceNotFound(service, nil)
	}
	return port, nil
}

var _ Resolver = (*mockResolver)(nil)

// blockingLookup 阻塞直到上下文结束
func blockingLookup(ctx context.Context, _ string) ([]netip.Addr, error) {
	<-ctx.Done()
	return nil, types.ErrTimedOut
}
