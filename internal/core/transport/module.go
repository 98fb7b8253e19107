package transport

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/core/metrics"
	"github.com/dep2p/go-netssl/internal/core/netaddr"
	"github.com/dep2p/go-netssl/internal/core/security"
	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	"github.com/dep2p/go-netssl/internal/core/transport/secure"
	"github.com/dep2p/go-netssl/internal/util/logger"
	pkgif "github.com/dep2p/go-netssl/pkg/interfaces"
	"github.com/dep2p/go-netssl/pkg/types"
)

var log = logger.Logger("transport")

// 监听配置键
const (
	KeyListenAddress    = "listener.address"
	KeyReuseAddress     = "listener.reuseAddress"
	KeyBacklog          = "listener.backlog"
	KeyAcceptRate       = "listener.acceptRate"
	KeyAcceptBurst      = "listener.acceptBurst"
	KeyHandshakeTimeout = "listener.handshakeTimeoutMs"
)

// 默认值
const (
	DefaultBacklog = 64
)

// Config 监听配置
type Config struct {
	ListenAddress    string
	ReuseAddress     bool
	Backlog          int
	AcceptRate       int
	AcceptBurst      int
	HandshakeTimeout time.Duration
}

// NewConfig 创建默认配置
func NewConfig() Config {
	return Config{
		ReuseAddress:     true,
		Backlog:          DefaultBacklog,
		HandshakeTimeout: tlsimpl.DefaultHandshakeTimeout,
	}
}

// ConfigFromStore 从配置存储读取监听配置，缺失的键使用默认值
func ConfigFromStore(store config.Store) (Config, error) {
	cfg := NewConfig()
	if store == nil {
		return cfg, nil
	}

	var err error
	cfg.ListenAddress = store.GetString(KeyListenAddress, "")
	if cfg.ReuseAddress, err = store.GetBool(KeyReuseAddress, cfg.ReuseAddress); err != nil {
		return Config{}, err
	}
	if cfg.Backlog, err = store.GetInt(KeyBacklog, cfg.Backlog); err != nil {
		return Config{}, err
	}
	if cfg.AcceptRate, err = store.GetInt(KeyAcceptRate, 0); err != nil {
		return Config{}, err
	}
	if cfg.AcceptBurst, err = store.GetInt(KeyAcceptBurst, cfg.AcceptRate); err != nil {
		return Config{}, err
	}
	ms, err := store.GetInt(KeyHandshakeTimeout, int(cfg.HandshakeTimeout/time.Millisecond))
	if err != nil {
		return Config{}, err
	}
	cfg.HandshakeTimeout = time.Duration(ms) * time.Millisecond

	if cfg.AcceptRate < 0 {
		return Config{}, types.NewConfigError(KeyAcceptRate, "must not be negative: %d", cfg.AcceptRate)
	}
	return cfg, nil
}

// Options 把配置转换为监听套接字选项
func (c Config) Options() []secure.Option {
	opts := []secure.Option{secure.WithHandshakeTimeout(c.HandshakeTimeout)}
	if c.AcceptRate > 0 {
		burst := c.AcceptBurst
		if burst <= 0 {
			burst = c.AcceptRate
		}
		opts = append(opts, secure.WithAcceptRate(float64(c.AcceptRate), burst))
	}
	return opts
}

// ============================================================================
//                              Fx 模块
// ============================================================================

// Params 监听套接字依赖参数
type Params struct {
	fx.In

	Config   Config
	Manager  *security.Manager
	Metrics  *metrics.Metrics `optional:"true"`
	Reporter metrics.Reporter `optional:"true"`
	EventBus pkgif.EventBus   `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(
			ProvideConfig,
			ProvideListener,
		),
		fx.Invoke(registerLifecycle),
	)
}

// ConfigParams 配置依赖参数
type ConfigParams struct {
	fx.In

	Store config.Store `optional:"true"`
}

// ProvideConfig 从配置存储提供监听配置
func ProvideConfig(p ConfigParams) (Config, error) {
	return ConfigFromStore(p.Store)
}

// ProvideListener 使用服务端默认上下文创建安全监听套接字
func ProvideListener(p Params) (*secure.Listener, error) {
	if p.Config.ListenAddress == "" {
		return nil, ErrNoListenAddress
	}

	ctx, err := p.Manager.DefaultContext(context.Background(), types.RoleServer)
	if err != nil {
		return nil, err
	}

	opts := append(p.Config.Options(),
		secure.WithMetrics(p.Metrics),
		secure.WithEventBus(p.EventBus),
		secure.WithReporter(p.Reporter),
	)
	return secure.New(ctx, opts...)
}

// lifecycleParams 生命周期依赖参数
type lifecycleParams struct {
	fx.In

	LC       fx.Lifecycle
	Config   Config
	Listener *secure.Listener
	Resolver netaddr.Resolver `optional:"true"`
}

// registerLifecycle 启动时绑定并监听，停止时关闭
func registerLifecycle(p lifecycleParams) {
	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr, err := netaddr.Parse(ctx, p.Resolver, p.Config.ListenAddress)
			if err != nil {
				return err
			}
			if err := p.Listener.Bind(addr, p.Config.ReuseAddress); err != nil {
				return err
			}
			if err := p.Listener.Listen(p.Config.Backlog); err != nil {
				return err
			}
			log.Info("监听套接字已就绪", "addr", p.Listener.Address().String())
			return nil
		},
		OnStop: func(_ context.Context) error {
			return p.Listener.Close()
		},
	})
}
