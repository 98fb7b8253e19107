// Package security 实现安全管理器
//
// Manager 为 server 与 client 两个角色分别维护：
//   - 默认安全上下文（*tls.Context），首次使用时由配置构建
//   - 私钥口令处理器与证书验证失败处理器，按配置中的名称从注册表创建
//   - 三个可订阅的事件：ServerVerificationError、ClientVerificationError、
//     PrivateKeyPassphrase
//
// # 配置键
//
// 键带角色前缀 "server." / "client."（可通过 WithConfigPrefix 再加命名空间）：
//
//	privateKeyFile                    私钥文件
//	certificateFile                   证书文件，缺省为 privateKeyFile
//	caConfig                          信任库文件或目录
//	verificationMode                  none | relaxed | strict | strict-once，缺省 strict
//	verificationDepth                 验证深度，缺省 9
//	loadDefaultCAFile                 是否加载系统信任根，缺省 false
//	cypherList                        加密套件列表
//	privateKeyPassphraseHandler.name  口令处理器，缺省 KeyConsoleHandler
//	invalidCertificateHandler.name    证书处理器，缺省 ConsoleCertificateHandler
//
// # 并发
//
// 每个角色的上下文和处理器最多构建一次：并发的首次调用者共享同一次构建的
// 结果或错误，之后的访问只是一次原子读取。构建失败不会被缓存。
//
// 证书验证失败时按订阅顺序调用该角色事件的全部订阅者，
// 最后一次 SetIgnoreError 的值决定是否接受；没有订阅者时拒绝。
//
// # 使用
//
//	m := security.NewManager(security.WithConfig(store))
//	defer m.Shutdown()
//
//	ctx, err := m.DefaultContext(context.Background(), types.RoleServer)
package security
