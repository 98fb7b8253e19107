// Package netaddr 实现网络端点地址与名称解析
//
// Address 是不可变值类型，表示一个 (IP, 端口) 端点，屏蔽 IPv4/IPv6 表示差异。
// 可以直接比较（==），按值复制，多 goroutine 并发读取无需同步。
//
// # 构造
//
//	a, _ := netaddr.FromIPAndPort(netip.MustParseAddr("10.0.0.1"), 443)
//	b, _ := netaddr.FromHostAndPort(ctx, nil, "example.com", 443)
//	c, _ := netaddr.FromHostAndService(ctx, nil, "example.com", "https")
//	d, _ := netaddr.Parse(ctx, nil, "[::1]:8080")
//
// Resolver 参数为 nil 时使用包级默认解析器（系统解析器）。
//
// # 字面量规则
//
// 以 '[' 开头时，直到匹配的 ']' 为主机部分（IPv6 字面量必须加括号）；
// 否则主机部分为第一个 ':' 之前的内容。缺少端口或括号未闭合都是语法错误。
//
// # 解析顺序
//
// 主机文本先按 IP 字面量解析，失败后才进行名称解析并取结果集第一个地址。
// 端口文本先按十进制（≤65535）解析，失败后才查服务表。
//
// # 解析器
//
//   - SystemResolver：基于 net.Resolver
//   - DNSResolver：基于 miekg/dns，直接向指定服务器查询 A/AAAA
//   - CachingResolver：在任意解析器外包一层带 TTL 的 LRU 缓存
//   - WithTimeout：为每次查询施加超时，超时返回 types.ErrTimedOut
package netaddr
