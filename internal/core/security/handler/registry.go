package handler

import (
	"sort"
	"sync"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/util/logger"
	securityif "github.com/dep2p/go-netssl/pkg/interfaces/security"
	"github.com/dep2p/go-netssl/pkg/types"
)

var log = logger.Logger("security.handler")

// 处理器种类，用于错误信息
const (
	KindPassphrase  = "passphrase"
	KindCertificate = "certificate"
)

// ============================================================================
//                              工厂与环境
// ============================================================================

// Env 创建处理器时的环境
type Env struct {
	// Role 处理器所属角色
	Role types.Role

	// Config 配置存储
	Config config.Store

	// Prefix 角色配置键前缀，如 "server." 或 "openSSL.client."
	Prefix string

	// Console 交互式处理器使用的控制台
	Console Console
}

// Key 返回带角色前缀的配置键
func (e Env) Key(key string) string {
	return e.Prefix + key
}

// PassphraseFactory 口令处理器工厂
type PassphraseFactory func(env Env) (securityif.PassphraseHandler, error)

// CertificateFactory 证书处理器工厂
type CertificateFactory func(env Env) (securityif.CertificateHandler, error)

// ============================================================================
//                              Registry
// ============================================================================

// Registry 名称到工厂的映射，并发安全
type Registry[F any] struct {
	kind string

	mu        sync.RWMutex
	factories map[string]F
}

// PassphraseRegistry 口令处理器注册表
type PassphraseRegistry = Registry[PassphraseFactory]

// CertificateRegistry 证书处理器注册表
type CertificateRegistry = Registry[CertificateFactory]

// NewRegistry 创建注册表，kind 用于错误信息
func NewRegistry[F any](kind string) *Registry[F] {
	return &Registry[F]{
		kind:      kind,
		factories: make(map[string]F),
	}
}

// NewPassphraseRegistry 创建口令处理器注册表
func NewPassphraseRegistry() *PassphraseRegistry {
	return NewRegistry[PassphraseFactory](KindPassphrase)
}

// NewCertificateRegistry 创建证书处理器注册表
func NewCertificateRegistry() *CertificateRegistry {
	return NewRegistry[CertificateFactory](KindCertificate)
}

// Kind 返回注册表种类
func (r *Registry[F]) Kind() string {
	return r.kind
}

// Register 注册工厂，同名时覆盖
func (r *Registry[F]) Register(name string, factory F) {
	r.mu.Lock()
	_, replaced := r.factories[name]
	r.factories[name] = factory
	r.mu.Unlock()

	log.Debug("注册处理器", "kind", r.kind, "name", name, "replaced", replaced)
}

// Unregister 注销工厂，返回是否存在
func (r *Registry[F]) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.factories[name]
	delete(r.factories, name)
	return ok
}

// Has 是否已注册
func (r *Registry[F]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[name]
	return ok
}

// Lookup 查找工厂，未注册时返回 *types.HandlerError
func (r *Registry[F]) Lookup(name string) (F, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		var zero F
		return zero, &types.HandlerError{Kind: r.kind, Name: name}
	}
	return f, nil
}

// Names 返回已注册名称，按字典序
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 返回注册数量
func (r *Registry[F]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
