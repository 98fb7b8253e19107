// Package types 定义 go-netssl 的基础类型
//
// 本包位于依赖层次的最底层，不依赖任何其他内部包：
//
//   - Family: 地址族（IPv4 / IPv6）
//   - Role: 安全上下文角色（server / client）
//   - VerificationMode: 证书验证模式（none / relaxed / strict / strict-once）
//   - 错误分类：ErrMalformedAddress、ErrConfiguration、ErrUnsupportedOperation 等
//   - 事件总线通知事件
package types
