// Package config 提供分层配置存储
//
// 配置以扁平的点分键保存（如 "server.privateKeyFile"），
// 可来自内存、JSON / TOML / YAML 文件或自定义 Store。
//
// # 分层
//
// NewLayered 按顺序查询各层，第一个包含该键的层生效：
//
//	store := config.NewLayered(overrides, fileStore)
//	depth, err := store.GetInt("server.verificationDepth", config.DefaultVerificationDepth)
//
// # 校验
//
// Validator 一次收集某角色下的全部配置错误，返回的 ValidationErrors
// 满足 errors.Is(err, types.ErrConfiguration)。
package config
