// Package handler 实现按名称选择的处理器注册表与内置处理器
//
// 配置中的处理器名称（如 server.privateKeyPassphraseHandler.name）
// 在注册表中查找对应的工厂函数，再由工厂为某个角色创建实例。
//
// 内置处理器：
//
//	口令处理器                   证书处理器
//	KeyConsoleHandler（默认）    ConsoleCertificateHandler（默认）
//	KeyFileHandler               AcceptCertificateHandler
//	                             RejectCertificateHandler
//
// 注册同名工厂会覆盖旧工厂；查找未注册的名称返回 *types.HandlerError。
package handler
