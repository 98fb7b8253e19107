package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/util/logger"
	"github.com/dep2p/go-netssl/pkg/types"
)

var log = logger.Logger("security.tls")

// ============================================================================
//                              Engine
// ============================================================================

// Engine TLS 引擎，负责由参数构建安全上下文
type Engine interface {
	// NewContext 构建安全上下文
	NewContext(params Params, hooks Hooks) (*Context, error)
}

// EngineOption 引擎选项
type EngineOption func(*StdEngine)

// WithClock 设置证书验证使用的时钟
func WithClock(c clock.Clock) EngineOption {
	return func(e *StdEngine) {
		e.clock = c
	}
}

// StdEngine 基于 crypto/tls 的引擎
type StdEngine struct {
	clock clock.Clock
}

var _ Engine = (*StdEngine)(nil)

// NewStdEngine 创建引擎
func NewStdEngine(opts ...EngineOption) *StdEngine {
	e := &StdEngine{clock: clock.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewContext 加载证书、私钥与信任库并构建上下文
//
// 引擎层失败包装为 *types.EngineError，参数错误原样返回 *types.ConfigError。
func (e *StdEngine) NewContext(params Params, hooks Hooks) (*Context, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params = params.withDefaults()

	cert, err := e.loadKeyPair(params, hooks)
	if err != nil {
		return nil, err
	}

	suites, err := ParseCipherList(params.CipherList)
	if err != nil {
		return nil, err
	}

	var roots *x509.CertPool
	if params.VerificationMode != types.VerifyNone {
		roots, err = LoadTrustStore(params.CALocation, params.LoadDefaultCAs)
		if err != nil {
			return nil, types.NewEngineError("load trust store", err)
		}
	}

	cfg, err := NewConfigBuilder(params.Role, cert).
		WithClock(e.clock).
		WithCipherSuites(suites).
		WithVerification(params.VerificationMode, params.VerificationDepth).
		WithRoots(roots).
		WithHooks(hooks).
		Build()
	if err != nil {
		return nil, err
	}

	log.Debug("安全上下文已创建",
		"role", params.Role,
		"mode", params.VerificationMode,
		"depth", params.VerificationDepth,
		"suites", len(suites))

	return &Context{
		role:   params.Role,
		params: params,
		config: cfg,
		leaf:   cert.Leaf,
	}, nil
}

// loadKeyPair 加载证书链与私钥并检查是否匹配
func (e *StdEngine) loadKeyPair(params Params, hooks Hooks) (*tls.Certificate, error) {
	chain, err := LoadCertificateChain(params.CertificateFile)
	if err != nil {
		return nil, types.NewEngineError("load certificate", err)
	}

	key, err := LoadPrivateKey(params.PrivateKeyFile, func() []byte {
		return hooks.passphrase(params.Role)
	})
	if err != nil {
		return nil, types.NewEngineError("load private key", err)
	}

	if !keyMatches(chain[0], key) {
		return nil, types.NewEngineError("load private key", ErrKeyMismatch)
	}

	cert := &tls.Certificate{
		PrivateKey: key,
		Leaf:       chain[0],
	}
	for _, c := range chain {
		cert.Certificate = append(cert.Certificate, c.Raw)
	}
	return cert, nil
}

// ============================================================================
//                              ConfigBuilder
// ============================================================================

// ConfigBuilder tls.Config 构建器
type ConfigBuilder struct {
	role         types.Role
	cert         *tls.Certificate
	clock        clock.Clock
	cipherSuites []uint16
	mode         types.VerificationMode
	depth        int
	roots        *x509.CertPool
	hooks        Hooks
}

// NewConfigBuilder 创建构建器，默认严格验证
func NewConfigBuilder(role types.Role, cert *tls.Certificate) *ConfigBuilder {
	return &ConfigBuilder{
		role:  role,
		cert:  cert,
		clock: clock.New(),
		mode:  types.VerifyStrict,
		depth: config.DefaultVerificationDepth,
	}
}

// WithClock 设置验证时钟
func (b *ConfigBuilder) WithClock(c clock.Clock) *ConfigBuilder {
	if c != nil {
		b.clock = c
	}
	return b
}

// WithCipherSuites 设置加密套件（仅 TLS 1.2 有效）
func (b *ConfigBuilder) WithCipherSuites(suites []uint16) *ConfigBuilder {
	b.cipherSuites = suites
	return b
}

// WithVerification 设置验证模式与深度
func (b *ConfigBuilder) WithVerification(mode types.VerificationMode, depth int) *ConfigBuilder {
	b.mode = mode
	b.depth = depth
	return b
}

// WithRoots 设置信任库
func (b *ConfigBuilder) WithRoots(roots *x509.CertPool) *ConfigBuilder {
	b.roots = roots
	return b
}

// WithHooks 设置回调
func (b *ConfigBuilder) WithHooks(hooks Hooks) *ConfigBuilder {
	b.hooks = hooks
	return b
}

// Build 构建 tls.Config
//
// 证书验证由 VerifyConnection 完成，以便逐个错误交给 Hooks.Verify 决定。
//
//	模式        服务端                 客户端
//	none        NoClientCert          不验证
//	relaxed     RequestClientCert     验证
//	strict      RequireAnyClientCert  验证
//	once        RequestClientCert     验证
func (b *ConfigBuilder) Build() (*tls.Config, error) {
	if b.cert == nil {
		return nil, types.NewEngineError("build config", ErrNoCertificate)
	}
	if !b.role.Valid() {
		return nil, types.NewConfigError("role", "invalid role %d", int(b.role))
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{*b.cert},
		MinVersion:   tls.VersionTLS12,
		CipherSuites: b.cipherSuites,
	}

	v := &verifier{
		role:  b.role,
		mode:  b.mode,
		depth: b.depth,
		roots: b.roots,
		clock: b.clock,
		hooks: b.hooks,
	}
	if v.roots == nil {
		v.roots = x509.NewCertPool()
	}

	if b.role.IsServer() {
		switch b.mode {
		case types.VerifyNone:
			cfg.ClientAuth = tls.NoClientCert
		case types.VerifyRelaxed, types.VerifyOnce:
			cfg.ClientAuth = tls.RequestClientCert
			cfg.VerifyConnection = v.verifyConnection
		case types.VerifyStrict:
			cfg.ClientAuth = tls.RequireAnyClientCert
			cfg.VerifyConnection = v.verifyConnection
		default:
			return nil, types.NewConfigError(config.KeyVerificationMode, "unsupported mode %s", b.mode)
		}
		return cfg, nil
	}

	// 客户端自行验证服务端证书链
	cfg.InsecureSkipVerify = true //nolint:gosec // G402: 由 VerifyConnection 验证
	switch b.mode {
	case types.VerifyNone:
	case types.VerifyRelaxed, types.VerifyStrict, types.VerifyOnce:
		cfg.VerifyConnection = v.verifyConnection
	default:
		return nil, types.NewConfigError(config.KeyVerificationMode, "unsupported mode %s", b.mode)
	}
	return cfg, nil
}

// ============================================================================
//                              Context
// ============================================================================

// Context 安全上下文
//
// 构建后只读，可在多个连接间共享。
type Context struct {
	role   types.Role
	params Params
	config *tls.Config
	leaf   *x509.Certificate
}

// NewStaticContext 由现成的 tls.Config 构建上下文
func NewStaticContext(params Params, cfg *tls.Config) (*Context, error) {
	if cfg == nil {
		return nil, types.NewEngineError("static context", fmt.Errorf("nil tls config"))
	}
	if !params.Role.Valid() {
		return nil, types.NewConfigError("role", "invalid role %d", int(params.Role))
	}
	c := &Context{
		role:   params.Role,
		params: params,
		config: cfg.Clone(),
	}
	if len(cfg.Certificates) > 0 {
		c.leaf = cfg.Certificates[0].Leaf
	}
	return c, nil
}

// Role 上下文角色
func (c *Context) Role() types.Role {
	return c.role
}

// Params 构建参数
func (c *Context) Params() Params {
	return c.params
}

// Config 返回 tls.Config 的副本
func (c *Context) Config() *tls.Config {
	return c.config.Clone()
}

// Certificate 本端叶子证书，静态上下文可能为 nil
func (c *Context) Certificate() *x509.Certificate {
	return c.leaf
}

// Server 以服务端身份包装连接，握手延迟到首次读写或 Handshake
func (c *Context) Server(conn net.Conn) *tls.Conn {
	return tls.Server(conn, c.config)
}

// Client 以客户端身份包装连接
func (c *Context) Client(conn net.Conn, serverName string) *tls.Conn {
	cfg := c.config.Clone()
	cfg.ServerName = serverName

	// IP 地址不进入 SNI，ConnectionState.ServerName 为空，校验前补回
	if verify := cfg.VerifyConnection; verify != nil && serverName != "" {
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			cs.ServerName = serverName
			return verify(cs)
		}
	}
	return tls.Client(conn, cfg)
}
