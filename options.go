package netssl

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/core/transport"
)

// Option 配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 配置来源，按优先级从高到低
	settings *config.MapStore
	files    []*config.MapStore
	stores   []config.Store

	// 配置命名空间
	namespace string

	// 启动前校验配置
	validate bool

	// 指标注册表
	registerer prometheus.Registerer

	// 共享的安全管理器
	manager *Manager

	// 名称解析器
	resolver Resolver

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

func newOptions() *options {
	return &options{
		settings: config.NewMapStore(nil),
		validate: true,
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	return o, nil
}

// store 合并所有配置来源
func (o *options) store() Store {
	layers := make([]config.Store, 0, 1+len(o.files)+len(o.stores))
	layers = append(layers, o.settings)
	for i := len(o.files) - 1; i >= 0; i-- {
		layers = append(layers, o.files[i])
	}
	layers = append(layers, o.stores...)
	return config.NewLayered(layers...)
}

// hasConfig 是否提供了任何配置来源
func (o *options) hasConfig() bool {
	return len(o.settings.Keys()) > 0 || len(o.files) > 0 || len(o.stores) > 0
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置来源
// ════════════════════════════════════════════════════════════════════════════

// WithSettings 设置配置键值，优先级最高
func WithSettings(values map[string]string) Option {
	return func(o *options) error {
		for k, v := range values {
			o.settings.Set(k, v)
		}
		return nil
	}
}

// WithSetting 设置单个配置键
func WithSetting(key, value string) Option {
	return func(o *options) error {
		o.settings.Set(key, value)
		return nil
	}
}

// WithConfigFile 加载配置文件（.json / .toml / .yaml / .yml）
//
// 后加载的文件优先于先加载的文件。
func WithConfigFile(path string) Option {
	return func(o *options) error {
		s, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.files = append(o.files, s)
		return nil
	}
}

// WithConfigStore 追加一个优先级最低的配置存储
func WithConfigStore(s Store) Option {
	return func(o *options) error {
		if s == nil {
			return fmt.Errorf("nil config store")
		}
		o.stores = append(o.stores, s)
		return nil
	}
}

// WithConfigPrefix 设置配置命名空间，键变为 "<prefix>.server.xxx"
func WithConfigPrefix(prefix string) Option {
	return func(o *options) error {
		o.namespace = prefix
		return nil
	}
}

// WithValidation 启动前是否一次性校验安全配置，默认开启
func WithValidation(enable bool) Option {
	return func(o *options) error {
		o.validate = enable
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              监听
// ════════════════════════════════════════════════════════════════════════════

// WithListenAddress 设置监听地址字面量
func WithListenAddress(addr string) Option {
	return WithSetting(transport.KeyListenAddress, addr)
}

// WithBacklog 设置监听队列长度
func WithBacklog(n int) Option {
	return WithSetting(transport.KeyBacklog, fmt.Sprint(n))
}

// WithReuseAddress 设置是否复用地址
func WithReuseAddress(reuse bool) Option {
	return WithSetting(transport.KeyReuseAddress, fmt.Sprint(reuse))
}

// WithAcceptRate 限制每秒接受的连接数
func WithAcceptRate(perSecond, burst int) Option {
	return func(o *options) error {
		if perSecond < 0 || burst < 0 {
			return fmt.Errorf("accept rate must not be negative")
		}
		o.settings.Set(transport.KeyAcceptRate, fmt.Sprint(perSecond))
		o.settings.Set(transport.KeyAcceptBurst, fmt.Sprint(burst))
		return nil
	}
}

// WithHandshakeTimeout 设置握手超时
func WithHandshakeTimeout(d time.Duration) Option {
	return WithSetting(transport.KeyHandshakeTimeout, fmt.Sprint(d.Milliseconds()))
}

// ════════════════════════════════════════════════════════════════════════════
//                              依赖
// ════════════════════════════════════════════════════════════════════════════

// WithRegisterer 指标注册到 reg，缺省使用独立注册表
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithManager 使用已有的安全管理器，配置来源选项对其不再生效
func WithManager(m *Manager) Option {
	return func(o *options) error {
		o.manager = m
		return nil
	}
}

// WithResolver 使用指定的名称解析器
func WithResolver(r Resolver) Option {
	return func(o *options) error {
		o.resolver = r
		return nil
	}
}

// WithFxOptions 追加 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
