package netaddr

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/dep2p/go-netssl/pkg/types"
)

// ============================================================================
//                              错误辅助
// ============================================================================

func malformed(text, reason string) error {
	return fmt.Errorf("%w %q: %s", types.ErrMalformedAddress, text, reason)
}

func hostNotFound(host string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrHostNotFound, host, cause)
	}
	return fmt.Errorf("%w: %s", types.ErrHostNotFound, host)
}

func serviceNotFound(service string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrServiceNotFound, service, cause)
	}
	return fmt.Errorf("%w: %s", types.ErrServiceNotFound, service)
}

// ============================================================================
//                              构造函数
// ============================================================================

// FromIPAndPort 从 IP 和端口构造地址，地址族由 IP 推断
func FromIPAndPort(ip netip.Addr, port uint16) (Address, error) {
	if !ip.IsValid() {
		return Address{}, malformed(ip.String(), "invalid ip")
	}
	return newAddress(ip, port), nil
}

// FromHostAndPort 从主机文本和端口构造地址
//
// host 先按 IP 字面量解析，失败后通过 r 进行名称解析并取第一个结果。
func FromHostAndPort(ctx context.Context, r Resolver, host string, port uint16) (Address, error) {
	ip, err := ResolveHost(ctx, r, host)
	if err != nil {
		return Address{}, err
	}
	return newAddress(ip, port), nil
}

// FromHostAndService 从主机文本和服务文本构造地址
//
// 先解析服务得到端口，再解析主机。
func FromHostAndService(ctx context.Context, r Resolver, host, service string) (Address, error) {
	port, err := ResolveService(ctx, r, service)
	if err != nil {
		return Address{}, err
	}
	return FromHostAndPort(ctx, r, host, port)
}

// Parse 解析 host:port 或 [v6host]:port 形式的组合字面量
//
// 空字符串返回 types.ErrEmptyAddress；缺少端口或括号未闭合返回 types.ErrMalformedAddress。
// 端口部分可以是服务名，主机部分可以是主机名。
func Parse(ctx context.Context, r Resolver, text string) (Address, error) {
	host, service, err := SplitLiteral(text)
	if err != nil {
		return Address{}, err
	}
	return FromHostAndService(ctx, r, host, service)
}

// MustParse 解析地址字面量，失败时 panic
//
// 仅用于常量初始化或测试代码。
func MustParse(text string) Address {
	a, err := Parse(context.Background(), nil, text)
	if err != nil {
		panic(err)
	}
	return a
}

// SplitLiteral 按括号/冒号规则拆分组合字面量
//
// 以 '[' 开头时主机为直到匹配 ']' 的内容，']' 之后必须紧跟 ':'；
// 否则主机为第一个 ':' 之前的内容。
func SplitLiteral(text string) (host, service string, err error) {
	if text == "" {
		return "", "", types.ErrEmptyAddress
	}

	var rest string
	if text[0] == '[' {
		end := strings.IndexByte(text, ']')
		if end < 0 {
			return "", "", malformed(text, "missing ']'")
		}
		host = text[1:end]
		rest = text[end+1:]
		if rest == "" || rest[0] != ':' {
			return "", "", malformed(text, "missing port")
		}
		rest = rest[1:]
	} else {
		colon := strings.IndexByte(text, ':')
		if colon < 0 {
			return "", "", malformed(text, "missing port")
		}
		host = text[:colon]
		rest = text[colon+1:]
	}

	if rest == "" {
		return "", "", malformed(text, "missing port")
	}
	return host, rest, nil
}

// ============================================================================
//                              主机/服务解析
// ============================================================================

// ResolveHost 将主机文本解析为单个 IP
func ResolveHost(ctx context.Context, r Resolver, host string) (netip.Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip, nil
	}
	if host == "" {
		return netip.Addr{}, hostNotFound(host, nil)
	}

	addrs, err := resolverOrDefault(r).LookupHost(ctx, host)
	if err != nil {
		if errors.Is(err, types.ErrTimedOut) || errors.Is(err, types.ErrHostNotFound) {
			return netip.Addr{}, err
		}
		return netip.Addr{}, hostNotFound(host, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, hostNotFound(host, nil)
	}

	log.Debug("主机已解析", "host", host, "addrs", len(addrs), "selected", addrs[0])
	return addrs[0], nil
}

// ResolveService 将服务文本解析为端口
//
// 先尝试十进制无符号整数（≤65535），失败后查询服务表（TCP）。
func ResolveService(ctx context.Context, r Resolver, service string) (uint16, error) {
	if port, err := strconv.ParseUint(service, 10, 16); err == nil {
		return uint16(port), nil
	}
	if service == "" {
		return 0, serviceNotFound(service, nil)
	}

	port, err := resolverOrDefault(r).LookupService(ctx, "tcp", service)
	if err != nil {
		if errors.Is(err, types.ErrTimedOut) || errors.Is(err, types.ErrServiceNotFound) {
			return 0, err
		}
		return 0, serviceNotFound(service, err)
	}
	return port, nil
}
