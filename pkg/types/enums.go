package types

import (
	"fmt"
	"strings"
)

// ============================================================================
//                              Family - 地址族
// ============================================================================

// Family 地址族
type Family int

const (
	// FamilyUnknown 未知地址族（零值地址）
	FamilyUnknown Family = iota
	// FamilyIPv4 IPv4 地址族，原始地址 4 字节
	FamilyIPv4
	// FamilyIPv6 IPv6 地址族，原始地址 16 字节
	FamilyIPv6
)

// String 返回地址族的字符串表示
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// AddrLen 返回该地址族原始地址的字节长度
func (f Family) AddrLen() int {
	switch f {
	case FamilyIPv4:
		return 4
	case FamilyIPv6:
		return 16
	default:
		return 0
	}
}

// ============================================================================
//                              Role - 安全上下文角色
// ============================================================================

// Role 安全上下文的使用角色
type Role int

const (
	// RoleServer 服务端使用
	RoleServer Role = iota
	// RoleClient 客户端使用
	RoleClient
)

// Roles 所有角色，按索引顺序
var Roles = [...]Role{RoleServer, RoleClient}

// String 返回角色名，同时也是配置键前缀
func (r Role) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// IsServer 是否为服务端角色
func (r Role) IsServer() bool {
	return r == RoleServer
}

// Valid 角色是否合法
func (r Role) Valid() bool {
	return r == RoleServer || r == RoleClient
}

// ============================================================================
//                              VerificationMode - 证书验证模式
// ============================================================================

// VerificationMode 对端证书验证的严格程度
type VerificationMode int

const (
	// VerifyNone 不验证对端证书
	VerifyNone VerificationMode = iota
	// VerifyRelaxed 对端提供证书时验证
	VerifyRelaxed
	// VerifyStrict 要求并验证对端证书
	VerifyStrict
	// VerifyOnce 仅在首次握手时请求客户端证书
	VerifyOnce
)

// String 返回配置文件中使用的模式名
func (m VerificationMode) String() string {
	switch m {
	case VerifyNone:
		return "none"
	case VerifyRelaxed:
		return "relaxed"
	case VerifyStrict:
		return "strict"
	case VerifyOnce:
		return "strict-once"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseVerificationMode 解析验证模式字符串
//
// 接受 none / relaxed / strict / strict-once，"once" 作为 strict-once 的别名。
// 大小写不敏感。
func ParseVerificationMode(s string) (VerificationMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return VerifyNone, true
	case "relaxed":
		return VerifyRelaxed, true
	case "strict":
		return VerifyStrict, true
	case "strict-once", "once":
		return VerifyOnce, true
	default:
		return VerifyStrict, false
	}
}
