package netaddr

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/multierr"

	"github.com/dep2p/go-netssl/pkg/types"
)

// DefaultDNSTimeout 默认 DNS 查询超时
const DefaultDNSTimeout = 5 * time.Second

// ============================================================================
//                              DNSResolver
// ============================================================================

// DNSConfig DNS 解析器配置
type DNSConfig struct {
	// Servers DNS 服务器列表，格式 <ip>:<port>，按顺序尝试
	Servers []string

	// Net 传输协议，"udp"（默认）或 "tcp"
	Net string

	// Timeout 单次查询超时
	Timeout time.Duration

	// Services 服务名解析器，为 nil 时使用系统解析器
	Services Resolver
}

// DNSResolver 直接向指定 DNS 服务器查询 A/AAAA 记录的解析器
type DNSResolver struct {
	servers  []string
	client   *dns.Client
	services Resolver
}

// 确保实现接口
var _ Resolver = (*DNSResolver)(nil)

// NewDNSResolver 创建 DNS 解析器
func NewDNSResolver(cfg DNSConfig) (*DNSResolver, error) {
	if len(cfg.Servers) == 0 {
		return nil, types.NewConfigError("dns.servers", "at least one DNS server is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDNSTimeout
	}
	if cfg.Services == nil {
		cfg.Services = systemResolver
	}

	return &DNSResolver{
		servers: append([]string(nil), cfg.Servers...),
		client: &dns.Client{
			Net:     cfg.Net,
			Timeout: cfg.Timeout,
		},
		services: cfg.Services,
	}, nil
}

// LookupHost 查询 A 与 AAAA 记录，IPv4 结果在前
func (d *DNSResolver) LookupHost(ctx context.Context, name string) ([]netip.Addr, error) {
	fqdn := dns.Fqdn(name)

	v4, err4 := d.query(ctx, fqdn, dns.TypeA)
	if errors.Is(err4, types.ErrTimedOut) {
		return nil, fmt.Errorf("lookup %s: %w", name, types.ErrTimedOut)
	}
	v6, err6 := d.query(ctx, fqdn, dns.TypeAAAA)
	if errors.Is(err6, types.ErrTimedOut) {
		return nil, fmt.Errorf("lookup %s: %w", name, types.ErrTimedOut)
	}

	addrs := append(v4, v6...)
	if len(addrs) > 0 {
		return addrs, nil
	}

	if err := multierr.Combine(err4, err6); err != nil {
		return nil, hostNotFound(name, err)
	}
	return nil, hostNotFound(name, nil)
}

// LookupService 服务名交给服务解析器处理
func (d *DNSResolver) LookupService(ctx context.Context, network, service string) (uint16, error) {
	return d.services.LookupService(ctx, network, service)
}

// query 依次向各服务器查询指定类型记录
func (d *DNSResolver) query(ctx context.Context, fqdn string, qtype uint16) ([]netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = true

	var errs error
	for _, server := range d.servers {
		resp, _, err := d.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			if isTimeout(ctx, err) {
				return nil, types.ErrTimedOut
			}
			log.Debug("DNS 查询失败",
				"server", server,
				"name", fqdn,
				"type", dns.TypeToString[qtype],
				"err", err)
			errs = multierr.Append(errs, err)
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
			return extractAddrs(resp.Answer, qtype), nil
		case dns.RcodeNameError:
			return nil, nil
		default:
			errs = multierr.Append(errs, fmt.Errorf("%s: rcode %s", server, dns.RcodeToString[resp.Rcode]))
		}
	}
	return nil, errs
}

// extractAddrs 从应答中提取地址记录
func extractAddrs(answer []dns.RR, qtype uint16) []netip.Addr {
	var out []netip.Addr
	for _, rr := range answer {
		switch v := rr.(type) {
		case *dns.A:
			if qtype != dns.TypeA {
				continue
			}
			if ip, ok := netip.AddrFromSlice(v.A.To4()); ok {
				out = append(out, ip)
			}
		case *dns.AAAA:
			if qtype != dns.TypeAAAA {
				continue
			}
			if ip, ok := netip.AddrFromSlice(v.AAAA.To16()); ok {
				out = append(out, ip)
			}
		}
	}
	return out
}
