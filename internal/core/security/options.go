package security

import (
	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/core/metrics"
	"github.com/dep2p/go-netssl/internal/core/security/handler"
	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	pkgif "github.com/dep2p/go-netssl/pkg/interfaces"
)

// Option 管理器选项
type Option func(*options)

type options struct {
	config    config.Store
	namespace string
	engine    tlsimpl.Engine
	metrics   *metrics.Metrics
	bus       pkgif.EventBus
	console   handler.Console
}

func defaultOptions() *options {
	return &options{}
}

// WithConfig 设置配置存储
func WithConfig(store config.Store) Option {
	return func(o *options) {
		o.config = store
	}
}

// WithConfigPrefix 设置配置命名空间，键变为 "<ns>.server.<key>"
func WithConfigPrefix(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithEngine 设置 TLS 引擎
func WithEngine(engine tlsimpl.Engine) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithEventBus 设置事件总线，用于发布上下文与验证通知
func WithEventBus(bus pkgif.EventBus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithConsole 设置交互式处理器使用的控制台
func WithConsole(c handler.Console) Option {
	return func(o *options) {
		o.console = c
	}
}
