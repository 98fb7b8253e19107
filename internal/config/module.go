package config

import (
	"go.uber.org/fx"
)

// ============================================================================
//                              fx 模块
// ============================================================================

// ProviderResult fx 提供者结果
type ProviderResult struct {
	fx.Out

	Store Store
}

// Module 返回 config fx 模块
//
// store 为 nil 时提供一个空的 MapStore。
func Module(store Store) fx.Option {
	return fx.Module("config",
		fx.Provide(func() ProviderResult {
			if store == nil {
				store = NewMapStore(nil)
			}
			return ProviderResult{Store: store}
		}),
	)
}
