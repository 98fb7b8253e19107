package security

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/core/metrics"
	"github.com/dep2p/go-netssl/internal/core/security/handler"
	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	pkgif "github.com/dep2p/go-netssl/pkg/interfaces"
	"github.com/dep2p/go-netssl/pkg/types"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 配置存储
	Config config.Store `optional:"true"`

	// Namespace 配置命名空间
	Namespace string `name:"security_namespace" optional:"true"`

	// Engine TLS 引擎，缺省为 crypto/tls 引擎
	Engine tlsimpl.Engine `optional:"true"`

	// Metrics 指标
	Metrics *metrics.Metrics `optional:"true"`

	// EventBus 事件总线
	EventBus pkgif.EventBus `optional:"true"`

	// Console 交互式处理器的控制台
	Console handler.Console `optional:"true"`
}

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Manager *Manager
}

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) ModuleOutput {
	return ModuleOutput{
		Manager: NewManager(
			WithConfig(input.Config),
			WithConfigPrefix(input.Namespace),
			WithEngine(input.Engine),
			WithMetrics(input.Metrics),
			WithEventBus(input.EventBus),
			WithConsole(input.Console),
		),
	}
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("security",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC      fx.Lifecycle
	Manager *Manager
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			log.Info("安全模块启动",
				"server", input.Manager.State(types.RoleServer),
				"client", input.Manager.State(types.RoleClient))
			return nil
		},
		OnStop: func(_ context.Context) error {
			log.Info("安全模块停止")
			return input.Manager.Shutdown()
		},
	})
}
