package netssl

import (
	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/core/metrics"
	"github.com/dep2p/go-netssl/internal/core/netaddr"
	"github.com/dep2p/go-netssl/internal/core/security"
	"github.com/dep2p/go-netssl/internal/core/security/handler"
	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	"github.com/dep2p/go-netssl/internal/core/transport/secure"
	securityif "github.com/dep2p/go-netssl/pkg/interfaces/security"
	"github.com/dep2p/go-netssl/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              地址
// ════════════════════════════════════════════════════════════════════════════

// Address 网络端点地址
type Address = netaddr.Address

// Resolver 主机名与服务名解析器
type Resolver = netaddr.Resolver

// Family 地址族
type Family = types.Family

const (
	FamilyIPv4 = types.FamilyIPv4
	FamilyIPv6 = types.FamilyIPv6
)

// ════════════════════════════════════════════════════════════════════════════
//                              安全
// ════════════════════════════════════════════════════════════════════════════

// Role 安全上下文角色
type Role = types.Role

const (
	RoleServer = types.RoleServer
	RoleClient = types.RoleClient
)

// VerificationMode 对端证书验证模式
type VerificationMode = types.VerificationMode

const (
	VerifyNone    = types.VerifyNone
	VerifyRelaxed = types.VerifyRelaxed
	VerifyStrict  = types.VerifyStrict
	VerifyOnce    = types.VerifyOnce
)

// Manager 安全管理器
type Manager = security.Manager

// Context 安全上下文
type Context = tlsimpl.Context

// Store 配置存储
type Store = config.Store

// PassphraseHandler 私钥口令处理器
type PassphraseHandler = securityif.PassphraseHandler

// CertificateHandler 无效证书处理器
type CertificateHandler = securityif.CertificateHandler

// PassphraseArgs 口令请求事件参数
type PassphraseArgs = securityif.PassphraseArgs

// VerificationErrorArgs 证书验证失败事件参数
type VerificationErrorArgs = securityif.VerificationErrorArgs

// HandlerEnv 处理器构造环境
type HandlerEnv = handler.Env

// ════════════════════════════════════════════════════════════════════════════
//                              监听
// ════════════════════════════════════════════════════════════════════════════

// Listener 安全监听套接字
type Listener = secure.Listener

// StreamSocket 安全监听套接字接受的连接
type StreamSocket = secure.StreamSocket

// Handler 连接处理器
type Handler = secure.Handler

// HandlerFunc 函数形式的连接处理器
type HandlerFunc = secure.HandlerFunc

// Metrics 指标
type Metrics = metrics.Metrics

// TrafficStats 流量统计快照
type TrafficStats = metrics.Stats
