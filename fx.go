package netssl

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/core/eventbus"
	"github.com/dep2p/go-netssl/internal/core/metrics"
	"github.com/dep2p/go-netssl/internal/core/netaddr"
	"github.com/dep2p/go-netssl/internal/core/security"
	"github.com/dep2p/go-netssl/internal/core/transport"
	"github.com/dep2p/go-netssl/internal/util/logger"
	pkgif "github.com/dep2p/go-netssl/pkg/interfaces"
)

var fxLogger = logger.Logger("netssl.fx")

// ════════════════════════════════════════════════════════════════════════════
//                              App
// ════════════════════════════════════════════════════════════════════════════

// App 由 Fx 组装的完整应用
type App struct {
	mu      sync.Mutex
	app     *fx.App
	started bool

	manager  *Manager
	listener *Listener
	metrics  *Metrics
	reporter metrics.Reporter
	bus      pkgif.EventBus
}

// New 创建应用
//
// 配置中存在 listener.address 时同时创建安全监听套接字，
// 启动时绑定并监听，停止时关闭。
func New(opts ...Option) (*App, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	store := o.store()
	listen := store.Has(transport.KeyListenAddress)
	if o.validate && o.manager == nil {
		if err := validate(store, o.namespace, listen); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	a := &App{}
	app := fx.New(buildModules(o, store, listen, a)...)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	a.app = app
	return a, nil
}

// buildModules 组装 Fx 模块
//
// 加载顺序：Config → EventBus → Metrics → Resolver → Security → Transport
func buildModules(o *options, store Store, listen bool, a *App) []fx.Option {
	modules := []fx.Option{
		config.Module(store),
		eventbus.Module(),
		metrics.Module,
	}

	if o.registerer != nil {
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return o.registerer }))
	}

	if o.resolver != nil {
		modules = append(modules, fx.Provide(func() netaddr.Resolver { return o.resolver }))
	} else {
		modules = append(modules, netaddr.Module())
	}

	// 共享的管理器由调用方负责关闭
	if o.manager != nil {
		modules = append(modules, fx.Supply(o.manager))
	} else {
		modules = append(modules,
			fx.Supply(fx.Annotated{Name: "security_namespace", Target: o.namespace}),
			security.Module(),
		)
	}

	modules = append(modules, fx.Populate(&a.manager, &a.metrics, &a.reporter, &a.bus))

	if listen {
		modules = append(modules,
			transport.Module(),
			fx.Populate(&a.listener),
		)
	}

	modules = append(modules, o.fxOptions...)

	// 禁用 Fx 日志输出（避免干扰用户日志）
	modules = append(modules, fx.WithLogger(func() fxevent.Logger {
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}))
	return modules
}

// Start 启动应用
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	a.started = true

	if a.listener != nil {
		fxLogger.Info("应用已启动", "listen", a.listener.Address().String())
	} else {
		fxLogger.Info("应用已启动")
	}
	return nil
}

// Stop 停止应用，关闭监听套接字并释放处理器
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return ErrNotStarted
	}
	a.started = false
	if err := a.app.Stop(ctx); err != nil {
		return fmt.Errorf("stop app: %w", err)
	}
	fxLogger.Info("应用已停止")
	return nil
}

// Serve 在监听套接字上循环接受连接，直到 ctx 取消
func (a *App) Serve(ctx context.Context, h Handler) error {
	a.mu.Lock()
	started, ln := a.started, a.listener
	a.mu.Unlock()

	switch {
	case ln == nil:
		return ErrNoListener
	case !started:
		return ErrNotStarted
	}
	return ln.Serve(ctx, h)
}

// Manager 返回安全管理器
func (a *App) Manager() *Manager {
	return a.manager
}

// Listener 返回安全监听套接字，未配置监听地址时为 nil
func (a *App) Listener() *Listener {
	return a.listener
}

// Metrics 返回指标
func (a *App) Metrics() *Metrics {
	return a.metrics
}

// Traffic 返回已接受连接上的流量统计
func (a *App) Traffic() TrafficStats {
	if a.reporter == nil {
		return TrafficStats{}
	}
	return a.reporter.Totals()
}

// EventBus 返回事件总线
func (a *App) EventBus() pkgif.EventBus {
	return a.bus
}
