package security

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/core/metrics"
	"github.com/dep2p/go-netssl/internal/core/security/handler"
	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	"github.com/dep2p/go-netssl/internal/util/logger"
	securityif "github.com/dep2p/go-netssl/pkg/interfaces/security"
	"github.com/dep2p/go-netssl/pkg/types"
)

var log = logger.Logger("security")

// ============================================================================
//                              角色状态
// ============================================================================

// State 角色配置状态
type State int32

const (
	// StateUnconfigured 尚未使用
	StateUnconfigured State = iota
	// StateConfiguring 正在构建，或只有处理器而没有上下文
	StateConfiguring
	// StateReady 默认上下文已就绪
	StateReady
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfiguring:
		return "configuring"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type passphraseSlot struct {
	handler     securityif.PassphraseHandler
	unsubscribe func()
}

type certificateSlot struct {
	handler     securityif.CertificateHandler
	unsubscribe func()
}

// roleState 单个角色的缓存
//
// 读取走原子指针；写入持有 mu。
type roleState struct {
	mu          sync.Mutex
	state       atomic.Int32
	ctx         atomic.Pointer[tlsimpl.Context]
	passphrase  atomic.Pointer[passphraseSlot]
	certificate atomic.Pointer[certificateSlot]
}

// settle 根据缓存内容更新状态，调用方持有 mu
func (st *roleState) settle() {
	switch {
	case st.ctx.Load() != nil:
		st.state.Store(int32(StateReady))
	case st.passphrase.Load() != nil || st.certificate.Load() != nil:
		st.state.Store(int32(StateConfiguring))
	default:
		st.state.Store(int32(StateUnconfigured))
	}
}

// ============================================================================
//                              Manager
// ============================================================================

// Manager 安全管理器
type Manager struct {
	config    config.Store
	namespace string
	engine    tlsimpl.Engine
	metrics   *metrics.Metrics
	console   handler.Console
	notifier  *notifier

	passphrases  *handler.PassphraseRegistry
	certificates *handler.CertificateRegistry

	// ServerVerificationError 服务端验证对端证书失败
	ServerVerificationError Event[*securityif.VerificationErrorArgs]

	// ClientVerificationError 客户端验证对端证书失败
	ClientVerificationError Event[*securityif.VerificationErrorArgs]

	// PrivateKeyPassphrase 需要私钥口令
	PrivateKeyPassphrase Event[*securityif.PassphraseArgs]

	roles [len(types.Roles)]roleState
	group singleflight.Group
}

// NewManager 创建管理器，内置处理器已注册
func NewManager(opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.config == nil {
		o.config = config.NewMapStore(nil)
	}
	if o.engine == nil {
		o.engine = tlsimpl.NewStdEngine()
	}

	m := &Manager{
		config:       o.config,
		namespace:    o.namespace,
		engine:       o.engine,
		metrics:      o.metrics,
		console:      o.console,
		notifier:     newNotifier(o.bus),
		passphrases:  handler.NewPassphraseRegistry(),
		certificates: handler.NewCertificateRegistry(),
	}
	handler.RegisterBuiltins(m.passphrases, m.certificates)
	return m
}

// Config 返回配置存储
func (m *Manager) Config() config.Store {
	return m.config
}

// PassphraseRegistry 口令处理器注册表
func (m *Manager) PassphraseRegistry() *handler.PassphraseRegistry {
	return m.passphrases
}

// CertificateRegistry 证书处理器注册表
func (m *Manager) CertificateRegistry() *handler.CertificateRegistry {
	return m.certificates
}

// State 返回角色状态
func (m *Manager) State(role types.Role) State {
	st, err := m.role(role)
	if err != nil {
		return StateUnconfigured
	}
	return State(st.state.Load())
}

func (m *Manager) role(role types.Role) (*roleState, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(role))
	}
	return &m.roles[role], nil
}

// do 在 singleflight 中执行 fn，ctx 结束时不再等待（构建继续进行）
func (m *Manager) do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	ch := m.group.DoChan(key, fn)
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ============================================================================
//                              默认上下文
// ============================================================================

// DefaultContext 返回角色的默认安全上下文，首次调用时构建
//
// 并发的首次调用只构建一次，全部调用者得到同一个上下文或同一个错误。
func (m *Manager) DefaultContext(ctx context.Context, role types.Role) (*tlsimpl.Context, error) {
	st, err := m.role(role)
	if err != nil {
		return nil, err
	}
	if c := st.ctx.Load(); c != nil {
		return c, nil
	}

	v, err := m.do(ctx, "context/"+role.String(), func() (any, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		return m.buildContextLocked(role, st)
	})
	if err != nil {
		return nil, err
	}
	return v.(*tlsimpl.Context), nil
}

// buildContextLocked 按配置构建默认上下文，调用方持有 st.mu
func (m *Manager) buildContextLocked(role types.Role, st *roleState) (*tlsimpl.Context, error) {
	if c := st.ctx.Load(); c != nil {
		return c, nil
	}
	st.state.Store(int32(StateConfiguring))
	defer st.settle()

	c, err := m.newContextLocked(role, st)
	if err != nil {
		log.Warn("默认安全上下文构建失败", "role", role, "err", err)
		m.metrics.ContextFailed(role)
		m.notifier.contextFailed(role, err)
		return nil, err
	}

	st.ctx.Store(c)
	log.Info("默认安全上下文已就绪",
		"role", role,
		"mode", c.Params().VerificationMode,
		"certificate", c.Params().CertificateFile)
	m.metrics.ContextInitialized(role)
	m.notifier.contextReady(role, c.Params().VerificationMode)
	return c, nil
}

func (m *Manager) newContextLocked(role types.Role, st *roleState) (*tlsimpl.Context, error) {
	params, err := m.readParams(role)
	if err != nil {
		return nil, err
	}

	// 构建上下文时可能立即需要口令，处理器先就位
	if _, err := m.passphraseHandlerLocked(role, st); err != nil {
		return nil, err
	}
	if _, err := m.certificateHandlerLocked(role, st); err != nil {
		return nil, err
	}

	return m.engine.NewContext(params, m.hooks())
}

// readParams 读取角色配置
func (m *Manager) readParams(role types.Role) (tlsimpl.Params, error) {
	prefix := config.RolePrefix(m.namespace, role)
	p := tlsimpl.DefaultParams(role)

	p.PrivateKeyFile = m.config.GetString(prefix+config.KeyPrivateKeyFile, "")
	p.CertificateFile = m.config.GetString(prefix+config.KeyCertificateFile, p.PrivateKeyFile)
	if p.PrivateKeyFile == "" && p.CertificateFile == "" {
		return p, types.NewConfigError(prefix+config.KeyCertificateFile, "no certificate file has been specified")
	}

	if m.config.Has(prefix + config.KeyVerificationMode) {
		text := m.config.GetString(prefix+config.KeyVerificationMode, "")
		mode, ok := types.ParseVerificationMode(text)
		if !ok {
			return p, types.NewConfigError(prefix+config.KeyVerificationMode, "unknown verification mode %q", text)
		}
		p.VerificationMode = mode
	}

	var err error
	if p.VerificationDepth, err = m.config.GetInt(prefix+config.KeyVerificationDepth, config.DefaultVerificationDepth); err != nil {
		return p, err
	}
	if p.LoadDefaultCAs, err = m.config.GetBool(prefix+config.KeyLoadDefaultCAFile, config.DefaultLoadDefaultCAFile); err != nil {
		return p, err
	}
	p.CALocation = m.config.GetString(prefix+config.KeyCALocation, "")
	p.CipherList = m.config.GetString(prefix+config.KeyCipherList, config.DefaultCipherList)
	return p, nil
}

// ============================================================================
//                              处理器
// ============================================================================

// PassphraseHandler 返回角色的口令处理器，首次调用时按配置创建
func (m *Manager) PassphraseHandler(ctx context.Context, role types.Role) (securityif.PassphraseHandler, error) {
	st, err := m.role(role)
	if err != nil {
		return nil, err
	}
	if s := st.passphrase.Load(); s != nil {
		return s.handler, nil
	}

	v, err := m.do(ctx, "passphrase/"+role.String(), func() (any, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		defer st.settle()
		return m.passphraseHandlerLocked(role, st)
	})
	if err != nil {
		return nil, err
	}
	return v.(securityif.PassphraseHandler), nil
}

// CertificateHandler 返回角色的证书处理器，首次调用时按配置创建
func (m *Manager) CertificateHandler(ctx context.Context, role types.Role) (securityif.CertificateHandler, error) {
	st, err := m.role(role)
	if err != nil {
		return nil, err
	}
	if s := st.certificate.Load(); s != nil {
		return s.handler, nil
	}

	v, err := m.do(ctx, "certificate/"+role.String(), func() (any, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		defer st.settle()
		return m.certificateHandlerLocked(role, st)
	})
	if err != nil {
		return nil, err
	}
	return v.(securityif.CertificateHandler), nil
}

func (m *Manager) env(role types.Role) handler.Env {
	return handler.Env{
		Role:    role,
		Config:  m.config,
		Prefix:  config.RolePrefix(m.namespace, role),
		Console: m.console,
	}
}

func (m *Manager) passphraseHandlerLocked(role types.Role, st *roleState) (securityif.PassphraseHandler, error) {
	if s := st.passphrase.Load(); s != nil {
		return s.handler, nil
	}

	env := m.env(role)
	name := m.config.GetString(env.Key(config.KeyPassphraseHandler), config.DefaultPassphraseHandler)
	factory, err := m.passphrases.Lookup(name)
	if err != nil {
		return nil, err
	}
	h, err := factory(env)
	if err != nil {
		return nil, fmt.Errorf("create passphrase handler %q: %w", name, err)
	}

	m.installPassphrase(st, h)
	log.Debug("口令处理器已创建", "role", role, "name", name)
	return h, nil
}

func (m *Manager) certificateHandlerLocked(role types.Role, st *roleState) (securityif.CertificateHandler, error) {
	if s := st.certificate.Load(); s != nil {
		return s.handler, nil
	}

	env := m.env(role)
	name := m.config.GetString(env.Key(config.KeyCertificateHandler), config.DefaultCertificateHandler)
	factory, err := m.certificates.Lookup(name)
	if err != nil {
		return nil, err
	}
	h, err := factory(env)
	if err != nil {
		return nil, fmt.Errorf("create certificate handler %q: %w", name, err)
	}

	m.installCertificate(role, st, h)
	log.Debug("证书处理器已创建", "role", role, "name", name)
	return h, nil
}

// installPassphrase 订阅并缓存处理器，返回被替换的旧处理器关闭错误
func (m *Manager) installPassphrase(st *roleState, h securityif.PassphraseHandler) error {
	slot := &passphraseSlot{
		handler:     h,
		unsubscribe: m.PrivateKeyPassphrase.Subscribe(h.OnPrivateKeyRequested),
	}
	return releasePassphrase(st.passphrase.Swap(slot))
}

func (m *Manager) installCertificate(role types.Role, st *roleState, h securityif.CertificateHandler) error {
	slot := &certificateSlot{
		handler:     h,
		unsubscribe: m.verificationEvent(role).Subscribe(h.OnInvalidCertificate),
	}
	return releaseCertificate(st.certificate.Swap(slot))
}

func releasePassphrase(s *passphraseSlot) error {
	if s == nil {
		return nil
	}
	s.unsubscribe()
	return s.handler.Close()
}

func releaseCertificate(s *certificateSlot) error {
	if s == nil {
		return nil
	}
	s.unsubscribe()
	return s.handler.Close()
}

// ============================================================================
//                              显式初始化与关闭
// ============================================================================

// Initialize 显式设置角色的处理器与上下文
//
// 参数为 nil 的部分保持不变；被替换的处理器先取消订阅再关闭。
// 设置上下文后 DefaultContext 不再读取配置。
func (m *Manager) Initialize(role types.Role, pp securityif.PassphraseHandler, cert securityif.CertificateHandler, ctx *tlsimpl.Context) error {
	st, err := m.role(role)
	if err != nil {
		return err
	}
	if ctx != nil && ctx.Role() != role {
		return fmt.Errorf("%w: %s context used for %s", ErrInvalidRole, ctx.Role(), role)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	defer st.settle()

	var errs error
	if pp != nil {
		errs = multierr.Append(errs, m.installPassphrase(st, pp))
	}
	if cert != nil {
		errs = multierr.Append(errs, m.installCertificate(role, st, cert))
	}
	if ctx != nil {
		st.ctx.Store(ctx)
		m.metrics.ContextInitialized(role)
		m.notifier.contextReady(role, ctx.Params().VerificationMode)
	}

	log.Info("安全角色已初始化",
		"role", role,
		"passphraseHandler", pp != nil,
		"certificateHandler", cert != nil,
		"context", ctx != nil)
	return errs
}

// Shutdown 释放全部处理器与上下文
//
// 先清空事件订阅，关闭期间不会再回调处理器。之后角色回到未配置状态，
// 再次使用时重新构建；总线通知不再发布。
func (m *Manager) Shutdown() error {
	m.ServerVerificationError.Clear()
	m.ClientVerificationError.Clear()
	m.PrivateKeyPassphrase.Clear()

	var errs error
	for i := range m.roles {
		st := &m.roles[i]
		st.mu.Lock()
		errs = multierr.Append(errs, releasePassphrase(st.passphrase.Swap(nil)))
		errs = multierr.Append(errs, releaseCertificate(st.certificate.Swap(nil)))
		st.ctx.Store(nil)
		st.settle()
		st.mu.Unlock()
	}
	errs = multierr.Append(errs, m.notifier.close())

	if errs != nil {
		log.Warn("安全管理器关闭时出错", "err", errs)
	} else {
		log.Debug("安全管理器已关闭")
	}
	return errs
}

// ============================================================================
//                              引擎回调
// ============================================================================

func (m *Manager) hooks() tlsimpl.Hooks {
	return tlsimpl.Hooks{
		Passphrase: m.requestPassphrase,
		Verify:     m.verify,
	}
}

// verificationEvent 返回角色对应的验证事件
func (m *Manager) verificationEvent(role types.Role) *Event[*securityif.VerificationErrorArgs] {
	if role.IsServer() {
		return &m.ServerVerificationError
	}
	return &m.ClientVerificationError
}

// requestPassphrase 触发口令事件，没有订阅者填写时返回空口令
func (m *Manager) requestPassphrase(role types.Role) string {
	args := &securityif.PassphraseArgs{Role: role}
	if n := m.PrivateKeyPassphrase.Notify(args); n == 0 {
		log.Debug("没有口令订阅者", "role", role)
	}
	return args.Passphrase
}

// verify 分发证书验证错误
//
// 全部订阅者执行后 IgnoreError 为 true 时接受；没有订阅者时拒绝。
func (m *Manager) verify(args *securityif.VerificationErrorArgs) bool {
	n := m.verificationEvent(args.Role).Notify(args)
	accepted := n > 0 && args.IgnoreError()

	log.Info("对端证书验证失败",
		"role", args.Role,
		"subject", args.Subject(),
		"depth", args.Depth,
		"code", args.Code,
		"subscribers", n,
		"accepted", accepted)
	m.metrics.Verification(args.Role, accepted)
	m.notifier.verificationFailed(args, accepted)
	return accepted
}
