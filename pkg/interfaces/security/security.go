// Package security 定义安全层接口
//
// 包括私钥口令处理器、证书验证处理器，以及安全管理器分发给它们的事件载荷。
// 处理器由名称选择（见 internal/core/security/handler），
// 每个角色（server/client）各持有一个实例。
package security

import (
	"crypto/x509"
	"fmt"

	"github.com/dep2p/go-netssl/pkg/types"
)

// ============================================================================
//                              处理器接口
// ============================================================================

// PassphraseHandler 私钥口令处理器
//
// 安全管理器在 TLS 引擎需要私钥口令时触发 PrivateKeyPassphrase 事件，
// 处理器在回调中填写 args.Passphrase。
type PassphraseHandler interface {
	// OnPrivateKeyRequested 口令请求回调，只处理自身角色的请求
	OnPrivateKeyRequested(args *PassphraseArgs)

	// Close 释放处理器资源
	Close() error
}

// CertificateHandler 证书验证失败处理器
//
// 对端证书验证失败时被调用，可通过 args.SetIgnoreError(true) 接受该证书。
type CertificateHandler interface {
	// OnInvalidCertificate 验证失败回调，只处理自身角色的事件
	OnInvalidCertificate(args *VerificationErrorArgs)

	// Close 释放处理器资源
	Close() error
}

// ============================================================================
//                              事件载荷
// ============================================================================

// PassphraseArgs 口令请求事件载荷
type PassphraseArgs struct {
	// Role 请求口令的上下文角色
	Role types.Role

	// Passphrase 由订阅者填写
	Passphrase string
}

// VerificationErrorArgs 证书验证失败事件载荷
//
// 所有订阅者共享同一个载荷，最后一次 SetIgnoreError 的值决定是否接受。
type VerificationErrorArgs struct {
	// Role 发生验证的上下文角色
	Role types.Role

	// Certificate 验证失败的证书，可能为 nil（对端未提供证书）
	Certificate *x509.Certificate

	// Depth 失败证书在链中的深度，0 为对端证书
	Depth int

	// Code 错误码
	Code ErrorCode

	// Reason 可读的失败原因
	Reason string

	ignore bool
}

// SetIgnoreError 设置是否忽略该错误
func (a *VerificationErrorArgs) SetIgnoreError(ignore bool) {
	a.ignore = ignore
}

// IgnoreError 返回是否忽略该错误
func (a *VerificationErrorArgs) IgnoreError() bool {
	return a.ignore
}

// Subject 返回证书主题，证书为空时返回空字符串
func (a *VerificationErrorArgs) Subject() string {
	if a.Certificate == nil {
		return ""
	}
	return a.Certificate.Subject.String()
}

// ============================================================================
//                              错误码
// ============================================================================

// ErrorCode 证书验证错误码
type ErrorCode int

const (
	// CodeUnknown 未分类的验证错误
	CodeUnknown ErrorCode = iota + 1
	// CodeNoCertificate 对端未提供证书
	CodeNoCertificate
	// CodeUnknownAuthority 无法链接到受信任的根证书
	CodeUnknownAuthority
	// CodeExpired 证书已过期
	CodeExpired
	// CodeNotYetValid 证书尚未生效
	CodeNotYetValid
	// CodeHostnameMismatch 证书与主机名不匹配
	CodeHostnameMismatch
	// CodeChainTooLong 证书链超过验证深度
	CodeChainTooLong
	// CodeNotAuthorizedToSign 中间证书无签发权限
	CodeNotAuthorizedToSign
	// CodeIncompatibleUsage 证书用途不符
	CodeIncompatibleUsage
)

// String 返回错误码名称
func (c ErrorCode) String() string {
	switch c {
	case CodeUnknown:
		return "unknown"
	case CodeNoCertificate:
		return "no-certificate"
	case CodeUnknownAuthority:
		return "unknown-authority"
	case CodeExpired:
		return "expired"
	case CodeNotYetValid:
		return "not-yet-valid"
	case CodeHostnameMismatch:
		return "hostname-mismatch"
	case CodeChainTooLong:
		return "chain-too-long"
	case CodeNotAuthorizedToSign:
		return "not-authorized-to-sign"
	case CodeIncompatibleUsage:
		return "incompatible-usage"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}
